// Package mount answers one question: is this device file currently
// mounted. The driver uses it as its sole concession to the single-user,
// exclusive-access assumption of the rest of the checker (spec §5).
package mount

import (
	"os"
	"strings"
)

// IsMounted reports whether device appears as the source field of any line
// in /proc/mounts, falling back to /etc/mtab on systems without /proc. A
// device path is compared after resolving symlinks so bind-mounted or
// dm-mapped paths still match their canonical form.
func IsMounted(device string) (bool, error) {
	resolved, err := resolveSymlink(device)
	if err != nil {
		resolved = device
	}

	for _, path := range []string{"/proc/mounts", "/etc/mtab"} {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			source := fields[0]
			if source == device || source == resolved {
				return true, nil
			}
		}
		return false, nil
	}

	return false, os.ErrNotExist
}

func resolveSymlink(path string) (string, error) {
	return os.Readlink(path)
}
