package minix_test

import (
	"testing"

	"github.com/dargueta/mfsck/arbiter"
	"github.com/dargueta/mfsck/blockio"
	"github.com/dargueta/mfsck/diagnostics"
	"github.com/dargueta/mfsck/minix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// TestLoadFlushRoundTrip guards against Load and Flush disagreeing about
// where an inode's record lives on disk: every inode, including the last
// one (fixtureNInodes), must read back exactly what was last flushed.
func TestLoadFlushRoundTrip(t *testing.T) {
	img := buildV1Image()
	// Give the last inode a distinct, recognizable record so a shift in
	// either direction is caught: nothing else in the fixture uses inode
	// fixtureNInodes or mode 0o100755.
	putInodeV1(img[4*blockio.BlockSize:5*blockio.BlockSize], fixtureNInodes, 0o100755, 1, 99, 0)
	lastImap := img[2*blockio.BlockSize]
	img[2*blockio.BlockSize] = lastImap | (1 << fixtureNInodes)

	report := diagnostics.New()
	stream := bytesextra.NewReadWriteSeeker(img)
	dev := blockio.New(stream, report.Warn)

	sb, err := minix.ReadSuperblock(dev, report.Warn)
	require.NoError(t, err)
	fs, err := minix.Load(sb, dev, arbiter.ReadOnly{}, report)
	require.NoError(t, err)
	require.EqualValues(t, 0o100755, fs.Inodes[fixtureNInodes].Mode)
	require.EqualValues(t, 99, fs.Inodes[fixtureNInodes].Size)

	fs.Inodes[2].Nlinks = 7
	fs.Inodes[1].Size = 48
	require.NoError(t, fs.Flush())

	// Reread through the same underlying stream, simulating a second run
	// against the just-repaired image (P2 idempotence).
	sb2, err := minix.ReadSuperblock(dev, report.Warn)
	require.NoError(t, err)
	reloaded, err := minix.Load(sb2, dev, arbiter.ReadOnly{}, report)
	require.NoError(t, err)

	assert.EqualValues(t, 7, reloaded.Inodes[2].Nlinks)
	assert.EqualValues(t, 48, reloaded.Inodes[1].Size)
	assert.EqualValues(t, 0o040755, reloaded.Inodes[1].Mode)
	assert.EqualValues(t, 0o100644, reloaded.Inodes[2].Mode)
	assert.EqualValues(t, 0o100755, reloaded.Inodes[fixtureNInodes].Mode, "last inode must survive a flush/reload cycle")
	assert.EqualValues(t, 99, reloaded.Inodes[fixtureNInodes].Size)
}
