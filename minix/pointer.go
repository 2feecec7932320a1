package minix

import (
	"fmt"

	"github.com/dargueta/mfsck/blockio"
)

// checkZoneNr validates a single zone slot value read out of an inode or an
// indirect block. A value of 0 (empty slot) or one within
// [first_data_zone, nzones) passes through unchanged. Anything else is
// offered for repair: if accepted, the slot is zeroed and the caller is told
// the enclosing block changed and must be flushed.
func (fs *FileSystem) checkZoneNr(slot uint32, context string) (value uint32, zeroed bool) {
	sb := fs.Superblock
	if slot == 0 {
		return 0, false
	}
	if slot >= sb.FirstDataZone && slot < sb.NZones {
		return slot, false
	}

	question := fmt.Sprintf("%s: zone number %d out of range, zero it out", context, slot)
	if fs.ask(question, true) {
		return 0, true
	}
	return slot, false
}

// readIndirectSlots reads zone block into count pointer slots of the
// variant's pointer width and returns them widened to uint32.
func (fs *FileSystem) readIndirectSlots(zone uint32, count int) []uint32 {
	buf := make([]byte, blockio.BlockSize)
	fs.Device.ReadBlock(zone, buf)

	slots := make([]uint32, count)
	if fs.Layout.SlotSize == 4 {
		for i := 0; i < count; i++ {
			slots[i] = uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 |
				uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		}
	} else {
		for i := 0; i < count; i++ {
			slots[i] = uint32(buf[i*2]) | uint32(buf[i*2+1])<<8
		}
	}
	return slots
}

// writeIndirectSlots persists a repaired indirect block back to disk
// immediately. Unlike inode zone slots (held in memory and flushed with the
// rest of the inode table at the end of the run), indirect blocks live in
// the data zone region and are written back as soon as they're repaired.
func (fs *FileSystem) writeIndirectSlots(zone uint32, slots []uint32) {
	buf := make([]byte, blockio.BlockSize)
	if fs.Layout.SlotSize == 4 {
		for i, v := range slots {
			buf[i*4] = byte(v)
			buf[i*4+1] = byte(v >> 8)
			buf[i*4+2] = byte(v >> 16)
			buf[i*4+3] = byte(v >> 24)
		}
	} else {
		for i, v := range slots {
			buf[i*2] = byte(v)
			buf[i*2+1] = byte(v >> 8)
		}
	}
	fs.Device.WriteBlock(zone, buf)
}

// ResolveZone maps (inode, logical block k) to a physical zone number,
// following direct, indirect, double-indirect, and (v2) triple-indirect
// pointers per C5. It returns 0 for an empty slot or a slot repaired to
// empty. Every slot it reads passes through checkZoneNr first, so the
// resolver never recurses into an out-of-range zone. Repairs to a direct or
// top-level indirect inode slot are made in memory and picked up by the
// inode table flush at the end of the run; repairs inside an indirect block
// already on disk are written back immediately.
func (fs *FileSystem) ResolveZone(inumber uint32, k int) uint32 {
	layout := fs.Layout
	ppb := layout.PointersPerBlock
	ino := &fs.Inodes[inumber]

	if k < layout.DirectSlots {
		value, zeroed := fs.checkZoneNr(ino.Zone[k], "direct pointer")
		if zeroed {
			ino.Zone[k] = 0
		}
		return value
	}
	k -= layout.DirectSlots

	if k < ppb {
		indZone, zeroed := fs.checkZoneNr(ino.Zone[layout.DirectSlots], "indirect block pointer")
		if zeroed {
			ino.Zone[layout.DirectSlots] = 0
		}
		if indZone == 0 {
			return 0
		}
		return fs.resolveWithinIndirect(indZone, k)
	}
	k -= ppb

	if k < ppb*ppb {
		dindZone, zeroed := fs.checkZoneNr(ino.Zone[layout.DirectSlots+1], "double-indirect block pointer")
		if zeroed {
			ino.Zone[layout.DirectSlots+1] = 0
		}
		if dindZone == 0 {
			return 0
		}
		slots := fs.readIndirectSlots(dindZone, ppb)
		idx := k / ppb
		indZone, indZeroed := fs.checkZoneNr(slots[idx], "double-indirect inner pointer")
		if indZeroed {
			slots[idx] = 0
			fs.writeIndirectSlots(dindZone, slots)
		}
		if indZone == 0 {
			return 0
		}
		return fs.resolveWithinIndirect(indZone, k%ppb)
	}
	k -= ppb * ppb

	if layout.IndirectLevels < 3 || k >= ppb*ppb*ppb {
		return 0
	}
	tindZone, zeroed := fs.checkZoneNr(ino.Zone[layout.DirectSlots+2], "triple-indirect block pointer")
	if zeroed {
		ino.Zone[layout.DirectSlots+2] = 0
	}
	if tindZone == 0 {
		return 0
	}
	outerSlots := fs.readIndirectSlots(tindZone, ppb)
	outerIdx := k / (ppb * ppb)
	dindZone, outerZeroed := fs.checkZoneNr(outerSlots[outerIdx], "triple-indirect outer pointer")
	if outerZeroed {
		outerSlots[outerIdx] = 0
		fs.writeIndirectSlots(tindZone, outerSlots)
	}
	if dindZone == 0 {
		return 0
	}
	remainder := k % (ppb * ppb)
	innerSlots := fs.readIndirectSlots(dindZone, ppb)
	innerIdx := remainder / ppb
	indZone, innerZeroed := fs.checkZoneNr(innerSlots[innerIdx], "triple-indirect middle pointer")
	if innerZeroed {
		innerSlots[innerIdx] = 0
		fs.writeIndirectSlots(dindZone, innerSlots)
	}
	if indZone == 0 {
		return 0
	}
	return fs.resolveWithinIndirect(indZone, remainder%ppb)
}

func (fs *FileSystem) resolveWithinIndirect(indZone uint32, idx int) uint32 {
	slots := fs.readIndirectSlots(indZone, fs.Layout.PointersPerBlock)
	value, zeroed := fs.checkZoneNr(slots[idx], "indirect inner pointer")
	if zeroed {
		slots[idx] = 0
		fs.writeIndirectSlots(indZone, slots)
	}
	return value
}
