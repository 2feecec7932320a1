// Package minix implements the on-disk decoding, pointer resolution, zone
// accounting, and directory walking for a Minix-style filesystem image - the
// structural core described by components C1-C7 of the specification this
// package implements.
package minix

import (
	"encoding/binary"

	"github.com/dargueta/mfsck/arbiter"
	"github.com/dargueta/mfsck/bitset"
	"github.com/dargueta/mfsck/blockio"
	"github.com/dargueta/mfsck/diagnostics"
	"github.com/noxer/bytewriter"
)

const RootInode = 1

// FileSystem bundles everything the walker, accountant, and reconciler share
// for one checking run: the decoded superblock, the two bitmaps, the inode
// table, and the reconstructed reference-count tables. Design note: the
// original tool kept this as process-global mutable state; here it's a
// struct threaded explicitly through every call so a test can spin up as
// many independent instances as it likes.
type FileSystem struct {
	Superblock *Superblock
	Device     *blockio.Device
	Layout     PointerLayout

	InodeMap bitset.Map
	ZoneMap  bitset.Map

	// Inodes holds every inode record, index 0 unused to preserve 1-based
	// inode numbering, matching the on-disk padding inode at index 0.
	Inodes []Inode

	// InodeCount and ZoneCount are the reconstructed reference-count tables
	// from the data model: one saturating byte per inode/zone.
	InodeCount []byte
	ZoneCount  []byte

	Arbiter arbiter.Arbiter

	Changed           bool
	ErrorsUncorrected bool

	Report *diagnostics.Report

	// Summary accumulates per-type visit counts for the driver's verbose
	// report (-v).
	Summary Summary

	// List, if non-nil, is invoked once per directory entry visited by the
	// walker (-l).
	List ListFunc

	// PathStack is the walker's current descent, used to build the path
	// argument passed to List; bounded at maxDisplayDepth entries.
	PathStack []string
}

// Warn records a warning-tier diagnostic (spec.md §7): printed, but with no
// question attached and no effect on ErrorsUncorrected.
func (fs *FileSystem) Warn(msg string) {
	fs.Report.Warn(msg)
}

// Uncorrected records a correctable discrepancy the operator declined (or
// that read-only/automatic mode couldn't fix) and sets the sticky flag that
// surfaces in the exit code and persisted superblock state.
func (fs *FileSystem) Uncorrected(msg string) {
	fs.Report.Uncorrected(msg)
	fs.ErrorsUncorrected = true
}

// ask routes a proposed repair through the arbiter, marking fs.Changed if
// accepted and fs.ErrorsUncorrected (via Uncorrected) if declined.
func (fs *FileSystem) ask(question string, defaultYes bool) bool {
	accepted, err := fs.Arbiter.Ask(question, defaultYes)
	if err != nil {
		fs.Uncorrected(question + ": " + err.Error())
		return false
	}
	if accepted {
		fs.Changed = true
		return true
	}
	fs.Uncorrected(question + "? NO")
	return false
}

// zoneInUse reports whether the zone bitmap currently marks zone z as
// allocated. z is a physical zone number; bit j of the zone map covers
// first_data_zone + j - 1, per the data model.
func (fs *FileSystem) zoneInUse(z uint32) bool {
	if z < fs.Superblock.FirstDataZone {
		return false
	}
	bit := int(z-fs.Superblock.FirstDataZone) + 1
	return fs.ZoneMap.Bit(bit)
}

func (fs *FileSystem) setZoneInUse(z uint32, inUse bool) {
	bit := int(z-fs.Superblock.FirstDataZone) + 1
	if inUse {
		fs.ZoneMap.SetBit(bit)
	} else {
		fs.ZoneMap.ClrBit(bit)
	}
}

func (fs *FileSystem) inodeInUse(i uint32) bool {
	return fs.InodeMap.Bit(int(i))
}

func (fs *FileSystem) setInodeInUse(i uint32, inUse bool) {
	if inUse {
		fs.InodeMap.SetBit(int(i))
	} else {
		fs.InodeMap.ClrBit(int(i))
	}
}

// ZoneInUse, SetZoneInUse, InodeInUse, SetInodeInUse, and Ask export the
// bitmap and arbiter primitives the reconciler needs; the walker and
// accountant use the unexported forms directly since they live in this
// package.
func (fs *FileSystem) ZoneInUse(z uint32) bool         { return fs.zoneInUse(z) }
func (fs *FileSystem) SetZoneInUse(z uint32, v bool)   { fs.setZoneInUse(z, v) }
func (fs *FileSystem) InodeInUse(i uint32) bool        { return fs.inodeInUse(i) }
func (fs *FileSystem) SetInodeInUse(i uint32, v bool)  { fs.setInodeInUse(i, v) }
func (fs *FileSystem) Ask(question string, def bool) bool { return fs.ask(question, def) }

// saturate increments a per-inode/per-zone count, stopping at 255 and
// raising an uncorrected error the first time it saturates rather than
// silently wrapping.
func saturate(counts []byte, idx uint32, fs *FileSystem, what string) {
	if counts[idx] == 255 {
		fs.Uncorrected(what + " referenced more than 255 times, count is no longer accurate")
		return
	}
	counts[idx]++
}

// Load reads the inode bitmap, zone bitmap, and inode table from dev into a
// fresh FileSystem, per C4. The reconstructed count tables are allocated
// but left zeroed; the walker fills them in.
func Load(sb *Superblock, dev *blockio.Device, arb arbiter.Arbiter, report *diagnostics.Report) (*FileSystem, error) {
	dev.FirstDataZone = sb.FirstDataZone
	dev.NumZones = sb.NZones

	imapBytes := make([]byte, int(sb.ImapBlocks)*blockio.BlockSize)
	if err := dev.ReadAt(imapBytes, 2*blockio.BlockSize); err != nil {
		return nil, err
	}

	zmapBytes := make([]byte, int(sb.ZmapBlocks)*blockio.BlockSize)
	zmapOffset := int64(2+int(sb.ImapBlocks)) * blockio.BlockSize
	if err := dev.ReadAt(zmapBytes, zmapOffset); err != nil {
		return nil, err
	}

	inodeTableOffset := int64(2+int(sb.ImapBlocks)+int(sb.ZmapBlocks)) * blockio.BlockSize
	inodeTableBytes := make([]byte, int(sb.InodeBlocks)*blockio.BlockSize)
	if err := dev.ReadAt(inodeTableBytes, inodeTableOffset); err != nil {
		return nil, err
	}

	fs := &FileSystem{
		Superblock: sb,
		Device:     dev,
		Layout:     LayoutFor(sb.Variant),
		InodeMap:   bitset.Wrap(imapBytes, int(sb.NInodes)+1),
		ZoneMap:    bitset.Wrap(zmapBytes, int(sb.NZones-sb.FirstDataZone)+1),
		Inodes:     make([]Inode, sb.NInodes+1),
		InodeCount: make([]byte, sb.NInodes+1),
		ZoneCount:  make([]byte, sb.NZones),
		Arbiter:    arb,
		Report:     report,
	}

	recordSize := RawInodeSize(sb.Variant)
	for i := uint32(1); i <= sb.NInodes; i++ {
		// Record 0 is the always-zero padding inode (InodeBlocks is sized
		// for NInodes+1 records), so inode i's record sits at index i, not
		// i-1; this must stay in sync with Flush's placement.
		offset := int(i) * recordSize
		fs.Inodes[i] = DecodeInode(sb.Variant, inodeTableBytes[offset:offset+recordSize])
	}

	return fs, nil
}

// Flush writes the superblock, both bitmaps, and the inode table back to the
// image as four positioned writes, one per block-aligned region, in on-disk
// order. It always sets StateValid and reflects
// ErrorsUncorrected in StateError, even if nothing else changed - the
// driver calls Flush unconditionally when repair mode is on (step 9).
func (fs *FileSystem) Flush() error {
	sb := fs.Superblock
	sb.State = StateValid
	if fs.ErrorsUncorrected {
		sb.State |= StateError
	}

	// Each region is block-aligned on disk, so it's built as its own
	// fixed-size slice rather than one continuous bytewriter stream; only
	// the superblock itself (a handful of fields in a 1024-byte block)
	// needs padding out to a full block.
	sbBlock := make([]byte, blockio.BlockSize)
	sbWriter := bytewriter.New(sbBlock)

	raw := rawSuperblock{
		NInodes:       uint16(sb.NInodes),
		ImapBlocks:    sb.ImapBlocks,
		ZmapBlocks:    sb.ZmapBlocks,
		FirstDataZone: uint16(sb.FirstDataZone),
		LogZoneSize:   sb.LogZoneSize,
		MaxSize:       sb.MaxSize,
		Magic:         sb.Magic,
		State:         sb.State,
	}
	if sb.Variant == VariantV2 {
		raw.ZonesV2 = sb.NZones
	} else {
		raw.NZonesV1 = uint16(sb.NZones)
	}
	binary.Write(sbWriter, binary.LittleEndian, &raw)

	recordSize := RawInodeSize(sb.Variant)
	inodeTable := make([]byte, int(sb.InodeBlocks)*blockio.BlockSize)
	tableWriter := bytewriter.New(inodeTable)
	for i := uint32(0); i <= sb.NInodes; i++ {
		tableWriter.Write(EncodeInode(sb.Variant, fs.Inodes[i])[:recordSize])
	}

	imapOffset := int64(2) * blockio.BlockSize
	zmapOffset := imapOffset + int64(sb.ImapBlocks)*blockio.BlockSize
	inodeTableOffset := zmapOffset + int64(sb.ZmapBlocks)*blockio.BlockSize

	if err := fs.Device.WriteAt(sbBlock, blockio.BlockSize); err != nil {
		return err
	}
	if err := fs.Device.WriteAt(fs.InodeMap.Bytes(), imapOffset); err != nil {
		return err
	}
	if err := fs.Device.WriteAt(fs.ZoneMap.Bytes(), zmapOffset); err != nil {
		return err
	}
	return fs.Device.WriteAt(inodeTable, inodeTableOffset)
}
