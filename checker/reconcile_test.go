package checker_test

import (
	"testing"

	"github.com/dargueta/mfsck/arbiter"
	"github.com/dargueta/mfsck/blockio"
	"github.com/dargueta/mfsck/checker"
	"github.com/dargueta/mfsck/diagnostics"
	"github.com/dargueta/mfsck/minix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// buildSimpleImage returns a one-directory, one-file v1 image: inode 1 is
// the root (zone 5), inode 2 is a regular file (zone 6). ninodes=4,
// nzones=12, first_data_zone=5, dirsize=16.
func buildSimpleImage() []byte {
	img := make([]byte, 12*blockio.BlockSize)
	le := func(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }

	sb := img[blockio.BlockSize : 2*blockio.BlockSize]
	le(sb[0:2], 4)      // ninodes
	le(sb[2:4], 12)     // nzones
	le(sb[4:6], 1)      // imap_blocks
	le(sb[6:8], 1)      // zmap_blocks
	le(sb[8:10], 5)     // first_data_zone
	le(sb[10:12], 0)    // log_zone_size
	sb[12], sb[13], sb[14], sb[15] = byte(12 * blockio.BlockSize), 0, 0, 0
	le(sb[16:18], 0x137F) // magic: v1, 14-char names
	le(sb[18:20], 1)      // state valid

	img[2*blockio.BlockSize] = 0b0000_0111 // imap: convention, inode1, inode2
	img[3*blockio.BlockSize] = 0b0000_0111 // zmap: convention, zone5, zone6

	inodeTable := img[4*blockio.BlockSize : 5*blockio.BlockSize]
	putInode(inodeTable, 1, 0o040755, 1, 32, 5)
	putInode(inodeTable, 2, 0o100644, 1, 10, 6)

	root := img[5*blockio.BlockSize : 6*blockio.BlockSize]
	putEntry(root, 0, 1, ".")
	putEntry(root, 16, 1, "..")

	return img
}

func putInode(table []byte, inumber uint32, mode uint16, nlinks uint8, size uint32, zone0 uint16) {
	// Record 0 is the padding inode; inode i's record sits at index i.
	off := int(inumber) * 32
	rec := table[off : off+32]
	rec[0], rec[1] = byte(mode), byte(mode>>8)
	rec[4], rec[5], rec[6], rec[7] = byte(size), byte(size>>8), byte(size>>16), byte(size>>24)
	rec[13] = nlinks
	rec[14], rec[15] = byte(zone0), byte(zone0>>8)
}

func putEntry(block []byte, offset int, inumber uint16, name string) {
	block[offset], block[offset+1] = byte(inumber), byte(inumber>>8)
	copy(block[offset+2:offset+16], name)
}

func loadSimple(t *testing.T, img []byte, arb arbiter.Arbiter) *minix.FileSystem {
	t.Helper()
	report := diagnostics.New()
	dev := blockio.New(bytesextra.NewReadWriteSeeker(img), report.Warn)
	sb, err := minix.ReadSuperblock(dev, report.Warn)
	require.NoError(t, err)
	fs, err := minix.Load(sb, dev, arb, report)
	require.NoError(t, err)
	return fs
}

func TestReconcile_OrphanedAllocatedInode_OfferedFree(t *testing.T) {
	img := buildSimpleImage()
	// Inode 2 is allocated and has a valid mode, but nothing references it:
	// the root directory above only lists "." and "..".
	fs := loadSimple(t, img, &arbiter.Scripted{Answers: []bool{true}})
	fs.VisitRoot()
	fs.RecursiveCheck(minix.RootInode)

	sc := fs.Arbiter.(*arbiter.Scripted)
	checker.Reconcile(fs, false)

	found := false
	for _, q := range sc.Questions {
		if q == "inode 2 is allocated but not referenced, mark it free" {
			found = true
		}
	}
	assert.True(t, found, "questions: %v", sc.Questions)
	assert.False(t, fs.InodeInUse(2))
}

func TestReconcile_NlinksMismatch_Corrected(t *testing.T) {
	img := buildSimpleImage()
	// Give the root a second name for itself so InodeCount[1] ends up 2 but
	// Nlinks on disk still says 1.
	root := img[5*blockio.BlockSize : 6*blockio.BlockSize]
	putInode(img[4*blockio.BlockSize:5*blockio.BlockSize], 1, 0o040755, 1, 48, 5)
	putEntry(root, 32, 1, "self")

	fs := loadSimple(t, img, arbiter.Automatic{})
	fs.VisitRoot()
	fs.RecursiveCheck(minix.RootInode)
	checker.Reconcile(fs, false)

	assert.EqualValues(t, fs.InodeCount[1], fs.Inodes[1].Nlinks)
}

func TestReconcile_ZoneMarkedAllocatedButUnreferenced_Freed(t *testing.T) {
	img := buildSimpleImage()
	// Mark zone 7 allocated in the zone bitmap even though nothing claims it.
	img[3*blockio.BlockSize] = 0b0000_1111

	fs := loadSimple(t, img, arbiter.Automatic{})
	fs.VisitRoot()
	fs.RecursiveCheck(minix.RootInode)
	checker.Reconcile(fs, false)

	assert.False(t, fs.ZoneInUse(7))
}

func TestReconcile_WarnMode_FlagsUnallocatedInodeWithNonzeroMode(t *testing.T) {
	img := buildSimpleImage()
	// Inode 3 has a mode but its bit is clear in the inode bitmap.
	putInode(img[4*blockio.BlockSize:5*blockio.BlockSize], 3, 0o100644, 0, 0, 0)

	fs := loadSimple(t, img, arbiter.ReadOnly{})
	fs.VisitRoot()
	fs.RecursiveCheck(minix.RootInode)
	checker.Reconcile(fs, true)

	assert.Contains(t, fs.Report.String(), "inode 3 is unallocated but mode is 0100644")
}
