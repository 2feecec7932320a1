package minix

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/mfsck/blockio"
	"github.com/dargueta/mfsck/errors"
)

const (
	StateValid = uint16(0x0001)
	StateError = uint16(0x0002)
)

// rawSuperblock is the on-disk layout shared by both variants - the same
// trick the real Minix superblock uses: v1 reads NZonesV1, v2 reads ZonesV2,
// and Magic sits at a fixed offset in both so the variant can be determined
// before anything variant-specific is interpreted.
type rawSuperblock struct {
	NInodes       uint16
	NZonesV1      uint16
	ImapBlocks    uint16
	ZmapBlocks    uint16
	FirstDataZone uint16
	LogZoneSize   uint16
	MaxSize       uint32
	Magic         uint16
	State         uint16
	ZonesV2       uint32
}

// Superblock is the in-memory, variant-resolved view of the superblock.
type Superblock struct {
	Layout

	NInodes       uint32
	NZones        uint32
	ImapBlocks    uint16
	ZmapBlocks    uint16
	FirstDataZone uint32
	LogZoneSize   uint16
	MaxSize       uint32
	Magic         uint16
	State         uint16

	// InodeBlocks is derived, not stored on disk: ceil((NInodes + 1) /
	// InodesPerBlock), counting the padding record at index 0.
	InodeBlocks uint32
}

// InodesPerBlock returns how many raw inodes fit in one block for this
// superblock's variant.
func (sb *Superblock) InodesPerBlock() uint32 {
	if sb.Variant == VariantV2 {
		return blockio.BlockSize / rawInodeV2Size
	}
	return blockio.BlockSize / rawInodeV1Size
}

// NormFirstZone computes the expected first_data_zone: two boot/superblock
// blocks, then the bitmaps, then the inode table.
func (sb *Superblock) NormFirstZone() uint32 {
	return 2 + uint32(sb.ImapBlocks) + uint32(sb.ZmapBlocks) + sb.InodeBlocks
}

// ReadSuperblock decodes block 1 of dev, validates the structural invariants
// from the data model (magic, log_zone_size, bitmap sizing), and returns the
// resolved Superblock. A bad magic or an unsupported log_zone_size is
// reported through errors.DriverError and is fatal - the caller should abort
// the run with exit code 8.
//
// first_data_zone/norm_first_zone disagreement and bitmap undersizing are
// reported via diagnose but do not prevent the Superblock from being
// returned; the driver treats those as uncorrected errors, not fatal ones.
func ReadSuperblock(dev *blockio.Device, diagnose func(string)) (*Superblock, error) {
	buf := make([]byte, blockio.BlockSize)
	if err := dev.ReadAt(buf, blockio.BlockSize); err != nil {
		return nil, err
	}

	var raw rawSuperblock
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
		return nil, errors.ErrShortRead.WrapError(err)
	}

	layout, ok := DecodeMagic(raw.Magic)
	if !ok {
		return nil, errors.ErrBadMagic.WithMessage(fmt.Sprintf("0x%04x", raw.Magic))
	}

	if raw.LogZoneSize != 0 {
		return nil, errors.ErrUnsupportedZoneSize.WithMessage(
			fmt.Sprintf("got %d", raw.LogZoneSize))
	}

	sb := &Superblock{
		Layout:        layout,
		NInodes:       uint32(raw.NInodes),
		ImapBlocks:    raw.ImapBlocks,
		ZmapBlocks:    raw.ZmapBlocks,
		FirstDataZone: uint32(raw.FirstDataZone),
		LogZoneSize:   raw.LogZoneSize,
		MaxSize:       raw.MaxSize,
		Magic:         raw.Magic,
		State:         raw.State,
	}
	if layout.Variant == VariantV2 {
		sb.NZones = raw.ZonesV2
	} else {
		sb.NZones = uint32(raw.NZonesV1)
	}
	// +1 accounts for the single-inode padding at index 0 that preserves
	// 1-based inode numbering within the on-disk table (spec §6).
	sb.InodeBlocks = (sb.NInodes + 1 + sb.InodesPerBlock() - 1) / sb.InodesPerBlock()

	if uint64(sb.ImapBlocks)*8192 < uint64(sb.NInodes)+1 {
		diagnose("inode bitmap is too small for the reported inode count")
	}
	if sb.NZones > sb.FirstDataZone {
		if uint64(sb.ZmapBlocks)*8192 < uint64(sb.NZones-sb.FirstDataZone)+1 {
			diagnose("zone bitmap is too small for the reported zone count")
		}
	}

	if norm := sb.NormFirstZone(); norm != sb.FirstDataZone {
		diagnose(fmt.Sprintf(
			"first data zone is %d but should be %d given the bitmap and inode table sizes",
			sb.FirstDataZone, norm))
	}

	return sb, nil
}

// ProbeDirSize inspects the root directory's first data block for ".." at
// candidate offsets 16, 32, 64, ... and returns the first offset at which it
// finds a match, which is also the corrected directory entry size. If no
// candidate offset matches, it returns the magic-derived default rather than
// guessing further (an unresolved open question in the original design: a
// failed probe falls back instead of extrapolating from a near-empty root).
func ProbeDirSize(rootBlock []byte, defaultDirSize int) int {
	for candidate := 16; candidate < len(rootBlock); candidate *= 2 {
		// The second directory entry, "..", starts at offset `candidate`.
		// Its name field begins two bytes in, after the inode number.
		nameStart := candidate + 2
		if nameStart+2 > len(rootBlock) {
			break
		}
		if bytes.HasPrefix(rootBlock[nameStart:], []byte("..")) {
			return candidate
		}
	}
	return defaultDirSize
}
