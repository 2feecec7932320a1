package minix

import "fmt"

// AddZone records that zone slot is referenced by the file currently being
// walked, per C6. It returns true if the caller should zero out its
// reference to slot (because the zone was already claimed by another file
// and the operator accepted clearing the duplicate).
func (fs *FileSystem) AddZone(slot uint32) (clearReference bool) {
	if slot == 0 {
		return false
	}

	if fs.ZoneCount[slot] > 0 {
		question := fmt.Sprintf(
			"zone %d is already allocated to another file, remove this reference", slot)
		if fs.ask(question, true) {
			return true
		}
		// Declined: count it anyway, saturating, same as a first-time claim.
	}

	if !fs.zoneInUse(slot) {
		question := fmt.Sprintf(
			"zone %d is in use but marked free in the zone bitmap, mark it allocated", slot)
		if fs.ask(question, true) {
			fs.setZoneInUse(slot, true)
		}
	}

	saturate(fs.ZoneCount, slot, fs, fmt.Sprintf("zone %d", slot))
	return false
}

// addZoneSlots applies checkZoneNr then AddZone to every entry of an
// already-loaded indirect block, zeroing and writing back any entry that
// turned out to be out of range or double-allocated.
func (fs *FileSystem) addZoneSlots(blockZone uint32, slots []uint32, context string) {
	changed := false
	for i, raw := range slots {
		value, zeroedInvalid := fs.checkZoneNr(raw, context)
		if zeroedInvalid {
			slots[i] = 0
			changed = true
			continue
		}
		if value == 0 {
			continue
		}
		if fs.AddZone(value) {
			slots[i] = 0
			changed = true
		}
	}
	if changed {
		fs.writeIndirectSlots(blockZone, slots)
	}
}

// AddZoneIndirect accounts for an indirect block's own zone, then every zone
// it points to.
func (fs *FileSystem) AddZoneIndirect(zone uint32) (clearReference bool) {
	if zone == 0 {
		return false
	}
	if fs.AddZone(zone) {
		return true
	}
	slots := fs.readIndirectSlots(zone, fs.Layout.PointersPerBlock)
	fs.addZoneSlots(zone, slots, "indirect entry")
	return false
}

// AddZoneDoubleIndirect accounts for a double-indirect block's own zone,
// every indirect block it points to, and everything those point to.
func (fs *FileSystem) AddZoneDoubleIndirect(zone uint32) (clearReference bool) {
	if zone == 0 {
		return false
	}
	if fs.AddZone(zone) {
		return true
	}
	ppb := fs.Layout.PointersPerBlock
	slots := fs.readIndirectSlots(zone, ppb)
	changed := false
	for i, raw := range slots {
		value, zeroedInvalid := fs.checkZoneNr(raw, "double-indirect entry")
		if zeroedInvalid {
			slots[i] = 0
			changed = true
			continue
		}
		if value == 0 {
			continue
		}
		if fs.AddZoneIndirect(value) {
			slots[i] = 0
			changed = true
		}
	}
	if changed {
		fs.writeIndirectSlots(zone, slots)
	}
	return false
}

// AddZoneTripleIndirect accounts for a triple-indirect block's own zone and
// recurses through every double-indirect block it points to. v2 only.
func (fs *FileSystem) AddZoneTripleIndirect(zone uint32) (clearReference bool) {
	if zone == 0 {
		return false
	}
	if fs.AddZone(zone) {
		return true
	}
	ppb := fs.Layout.PointersPerBlock
	slots := fs.readIndirectSlots(zone, ppb)
	changed := false
	for i, raw := range slots {
		value, zeroedInvalid := fs.checkZoneNr(raw, "triple-indirect entry")
		if zeroedInvalid {
			slots[i] = 0
			changed = true
			continue
		}
		if value == 0 {
			continue
		}
		if fs.AddZoneDoubleIndirect(value) {
			slots[i] = 0
			changed = true
		}
	}
	if changed {
		fs.writeIndirectSlots(zone, slots)
	}
	return false
}

// CheckZones walks every direct and indirect zone slot of inumber's inode,
// accounting for each referenced zone. It is called exactly once per inode,
// the first time the walker visits it (C7 step 6).
func (fs *FileSystem) CheckZones(inumber uint32) {
	ino := &fs.Inodes[inumber]
	layout := fs.Layout

	for i := 0; i < layout.DirectSlots; i++ {
		value, zeroedInvalid := fs.checkZoneNr(ino.Zone[i], "direct pointer")
		if zeroedInvalid {
			ino.Zone[i] = 0
			continue
		}
		if value == 0 {
			continue
		}
		if fs.AddZone(value) {
			ino.Zone[i] = 0
		}
	}

	idx := layout.DirectSlots
	if value, zeroedInvalid := fs.checkZoneNr(ino.Zone[idx], "indirect pointer"); zeroedInvalid {
		ino.Zone[idx] = 0
	} else if value != 0 && fs.AddZoneIndirect(value) {
		ino.Zone[idx] = 0
	}
	idx++

	if value, zeroedInvalid := fs.checkZoneNr(ino.Zone[idx], "double-indirect pointer"); zeroedInvalid {
		ino.Zone[idx] = 0
	} else if value != 0 && fs.AddZoneDoubleIndirect(value) {
		ino.Zone[idx] = 0
	}
	idx++

	if layout.IndirectLevels < 3 {
		return
	}
	if value, zeroedInvalid := fs.checkZoneNr(ino.Zone[idx], "triple-indirect pointer"); zeroedInvalid {
		ino.Zone[idx] = 0
	} else if value != 0 && fs.AddZoneTripleIndirect(value) {
		ino.Zone[idx] = 0
	}
}
