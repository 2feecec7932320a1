package minix_test

import (
	"encoding/binary"

	"github.com/dargueta/mfsck/blockio"
)

// v2 image layout: same five-block header region as the v1 fixture, but
// inode 2's data is reached purely through a triple-indirect chain so
// ResolveZone/AddZoneTripleIndirect (minix/pointer.go, minix/account.go)
// get exercised by a test instead of only by hand-reading the code.
//
// Chain: inode.Zone[9] (triple) -> zone 6, slot 0 -> zone 7 (double
// indirect), slot 0 -> zone 8 (indirect), slot 0 -> zone 9 (data). ppb is
// 256 for v2, so logical block 7+256+256*256 = 65799 lands on slot 0 of
// every level.
const (
	fixtureMagicV2       = 0x2468 // v2, 14-char names, dirsize 16
	fixtureV2NInodes     = 2
	fixtureV2NZones      = 10
	fixtureV2FirstZone   = 5
	fixtureV2RootZone    = 5
	fixtureTripleZone    = 6
	fixtureDoubleZone    = 7
	fixtureIndirectZone  = 8
	fixtureDataZone      = 9
	fixtureTripleIndirectLogicalBlock = 65799
)

func buildV2TripleIndirectImage() []byte {
	img := make([]byte, fixtureV2NZones*blockio.BlockSize)
	le := binary.LittleEndian

	sb := img[blockio.BlockSize : 2*blockio.BlockSize]
	le.PutUint16(sb[0:2], fixtureV2NInodes)
	le.PutUint16(sb[4:6], 1) // imap_blocks
	le.PutUint16(sb[6:8], 1) // zmap_blocks
	le.PutUint16(sb[8:10], fixtureV2FirstZone)
	le.PutUint16(sb[10:12], 0) // log_zone_size
	le.PutUint32(sb[12:16], uint32(fixtureV2NZones*blockio.BlockSize))
	le.PutUint16(sb[16:18], fixtureMagicV2)
	le.PutUint16(sb[18:20], 1) // state: VALID
	le.PutUint32(sb[20:24], fixtureV2NZones)

	imap := img[2*blockio.BlockSize : 3*blockio.BlockSize]
	imap[0] = 0b0000_0111 // convention bit, root, file

	zmap := img[3*blockio.BlockSize : 4*blockio.BlockSize]
	zmap[0] = 0b0011_1111 // convention bit + zones 5,6,7,8,9

	inodeTable := img[4*blockio.BlockSize : 5*blockio.BlockSize]
	putInodeV2(inodeTable, 1, 0o040755, 1, 3*fixtureDirSize, [10]uint32{fixtureV2RootZone})
	var fileZones [10]uint32
	fileZones[9] = fixtureTripleZone
	putInodeV2(inodeTable, 2, 0o100644, 1, 1, fileZones)

	root := img[fixtureV2RootZone*blockio.BlockSize : (fixtureV2RootZone+1)*blockio.BlockSize]
	putDirent(root, 0, 1, ".")
	putDirent(root, fixtureDirSize, 1, "..")
	putDirent(root, 2*fixtureDirSize, 2, "bigfile")

	tripleBlock := img[fixtureTripleZone*blockio.BlockSize : (fixtureTripleZone+1)*blockio.BlockSize]
	le.PutUint32(tripleBlock[0:4], fixtureDoubleZone)

	doubleBlock := img[fixtureDoubleZone*blockio.BlockSize : (fixtureDoubleZone+1)*blockio.BlockSize]
	le.PutUint32(doubleBlock[0:4], fixtureIndirectZone)

	indirectBlock := img[fixtureIndirectZone*blockio.BlockSize : (fixtureIndirectZone+1)*blockio.BlockSize]
	le.PutUint32(indirectBlock[0:4], fixtureDataZone)

	return img
}

func putInodeV2(table []byte, inumber uint32, mode uint16, nlinks uint16, size uint32, zones [10]uint32) {
	const recordSize = 64
	// Record 0 is the padding inode; inode i's record sits at index i.
	off := int(inumber) * recordSize
	le := binary.LittleEndian
	rec := table[off : off+recordSize]
	le.PutUint16(rec[0:2], mode)
	le.PutUint16(rec[2:4], nlinks)
	le.PutUint32(rec[8:12], size)
	for i, z := range zones {
		le.PutUint32(rec[24+i*4:28+i*4], z)
	}
}
