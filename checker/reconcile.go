// Package checker implements the reconciliation pass (C8) and the overall
// run sequencing (C10) that sit on top of the minix package's structural
// primitives.
package checker

import (
	"fmt"

	"github.com/dargueta/mfsck/minix"
)

// Reconcile implements C8: after the walk has populated InodeCount and
// ZoneCount, compare them against the on-disk bitmaps and link counts and
// propose fixes for every discrepancy. warnMode enables the -m diagnostic
// for allocated-but-cleared inodes that still carry a non-zero mode.
func Reconcile(fs *minix.FileSystem, warnMode bool) {
	reconcileInodes(fs, warnMode)
	reconcileZones(fs)
}

func reconcileInodes(fs *minix.FileSystem, warnMode bool) {
	sb := fs.Superblock
	for i := uint32(1); i <= sb.NInodes; i++ {
		ino := &fs.Inodes[i]
		inUse := fs.InodeInUse(i)
		count := fs.InodeCount[i]

		if !inUse && ino.Mode != 0 && warnMode {
			fs.Warn(fmt.Sprintf("inode %d is unallocated but mode is 0%o", i, ino.Mode))
		}

		if count == 0 && inUse {
			question := fmt.Sprintf("inode %d is allocated but not referenced, mark it free", i)
			if fs.Ask(question, true) {
				fs.SetInodeInUse(i, false)
			}
			continue
		}
		if count > 0 && !inUse {
			question := fmt.Sprintf("inode %d is referenced but marked free, mark it allocated", i)
			if fs.Ask(question, true) {
				fs.SetInodeInUse(i, true)
			}
		}

		if count > 0 && uint32(ino.Nlinks) != uint32(count) {
			question := fmt.Sprintf(
				"inode %d has nlinks=%d but %d directory entries reference it, correct nlinks",
				i, ino.Nlinks, count)
			if fs.Ask(question, true) {
				ino.Nlinks = uint16(count)
			}
		}
	}
}

func reconcileZones(fs *minix.FileSystem) {
	sb := fs.Superblock
	for z := sb.FirstDataZone; z < sb.NZones; z++ {
		inUse := fs.ZoneInUse(z)
		count := fs.ZoneCount[z]

		if inUse == (count > 0) {
			continue
		}

		if count == 0 && inUse {
			if fs.Device.BadZone(z) {
				// Unreadable: accept the allocated bit as a marker of
				// media damage rather than logical corruption.
				continue
			}
			question := fmt.Sprintf("zone %d is marked allocated but not referenced, mark it free", z)
			if fs.Ask(question, true) {
				fs.SetZoneInUse(z, false)
			}
			continue
		}

		// count > 0 and bit clear: the accountant already corrected the
		// bitmap the first time the zone was claimed, so this path is only
		// reached if that repair was declined. Diagnose without re-asking.
		fs.Uncorrected(fmt.Sprintf("zone %d is referenced but marked free in the zone bitmap", z))
	}
}
