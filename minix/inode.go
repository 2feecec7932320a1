package minix

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/mfsck/blockio"
)

const rawInodeV1Size = 32
const rawInodeV2Size = 64

// RawInodeV1 is the on-disk v1 inode: 9 zone slots (7 direct, 1 indirect, 1
// double-indirect), 16-bit pointers.
type RawInodeV1 struct {
	Mode   uint16
	UID    uint16
	Size   uint32
	Mtime  uint32
	GID    uint8
	Nlinks uint8
	Zone   [9]uint16
}

// RawInodeV2 is the on-disk v2 inode: 10 zone slots (7 direct, 1 indirect, 1
// double-indirect, 1 triple-indirect), 32-bit pointers.
type RawInodeV2 struct {
	Mode   uint16
	Nlinks uint16
	UID    uint16
	GID    uint16
	Size   uint32
	Atime  uint32
	Mtime  uint32
	Ctime  uint32
	Zone   [10]uint32
}

// Inode is the variant-independent view the rest of the checker operates on.
// Zone is always represented as uint32, widened from RawInodeV1.Zone where
// necessary.
type Inode struct {
	Mode   uint16
	Nlinks uint16
	UID    uint16
	GID    uint16
	Size   uint32
	Mtime  uint32
	Zone   [10]uint32
}

func (ino *Inode) IsDir() bool {
	return FileType(ino.Mode) == TypeDir
}

// DecodeInode reads one raw inode record (rawInodeV1Size or rawInodeV2Size
// bytes, depending on variant) and returns the unified view.
func DecodeInode(variant Variant, raw []byte) Inode {
	if variant == VariantV2 {
		var v2 RawInodeV2
		binary.Read(bytes.NewReader(raw), binary.LittleEndian, &v2)
		ino := Inode{
			Mode:   v2.Mode,
			Nlinks: v2.Nlinks,
			UID:    v2.UID,
			GID:    v2.GID,
			Size:   v2.Size,
			Mtime:  v2.Mtime,
		}
		copy(ino.Zone[:], v2.Zone[:])
		return ino
	}

	var v1 RawInodeV1
	binary.Read(bytes.NewReader(raw), binary.LittleEndian, &v1)
	ino := Inode{
		Mode:   v1.Mode,
		Nlinks: uint16(v1.Nlinks),
		UID:    v1.UID,
		GID:    uint16(v1.GID),
		Size:   v1.Size,
		Mtime:  v1.Mtime,
	}
	for i, z := range v1.Zone {
		ino.Zone[i] = uint32(z)
	}
	return ino
}

// EncodeInode is the inverse of DecodeInode, used when the reconciler
// rewrites Nlinks or the pointer resolver zeroes a corrupt slot.
func EncodeInode(variant Variant, ino Inode) []byte {
	buf := &bytes.Buffer{}
	if variant == VariantV2 {
		v2 := RawInodeV2{
			Mode:   ino.Mode,
			Nlinks: ino.Nlinks,
			UID:    ino.UID,
			GID:    ino.GID,
			Size:   ino.Size,
			Mtime:  ino.Mtime,
		}
		copy(v2.Zone[:], ino.Zone[:])
		binary.Write(buf, binary.LittleEndian, &v2)
		return buf.Bytes()
	}

	v1 := RawInodeV1{
		Mode:   ino.Mode,
		UID:    ino.UID,
		Size:   ino.Size,
		Mtime:  ino.Mtime,
		GID:    uint8(ino.GID),
		Nlinks: uint8(ino.Nlinks),
	}
	for i := 0; i < 9; i++ {
		v1.Zone[i] = uint16(ino.Zone[i])
	}
	binary.Write(buf, binary.LittleEndian, &v1)
	return buf.Bytes()
}

// RawInodeSize returns the on-disk size of a single inode record for the
// given variant.
func RawInodeSize(variant Variant) int {
	if variant == VariantV2 {
		return rawInodeV2Size
	}
	return rawInodeV1Size
}

// PointerLayout describes how many direct slots, indirection levels, and
// bytes per pointer a variant uses. This is the variant-polymorphic
// description the pointer resolver is built around, so the walker never
// needs a v1/v2 branch of its own.
type PointerLayout struct {
	DirectSlots     int
	IndirectLevels  int // 2 for v1 (indirect, double), 3 for v2 (+ triple)
	SlotSize        int // bytes per pointer within an indirect block
	PointersPerBlock int
}

func LayoutFor(variant Variant) PointerLayout {
	if variant == VariantV2 {
		return PointerLayout{
			DirectSlots:      7,
			IndirectLevels:   3,
			SlotSize:         4,
			PointersPerBlock: blockio.BlockSize / 4,
		}
	}
	return PointerLayout{
		DirectSlots:      7,
		IndirectLevels:   2,
		SlotSize:         2,
		PointersPerBlock: blockio.BlockSize / 2,
	}
}
