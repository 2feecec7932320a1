package minix_test

import (
	"encoding/binary"

	"github.com/dargueta/mfsck/blockio"
)

// v1 image layout for tests: block 0 boot, block 1 superblock, block 2
// imap, block 3 zmap, block 4 inode table, data zones from block 5.
const (
	fixtureMagicV1    = 0x137F // v1, 14-char names, dirsize 16
	fixtureNInodes    = 4
	fixtureNZones     = 12
	fixtureFirstZone  = 5
	fixtureDirSize    = 16
	fixtureRootZone   = 5
	fixtureFileZone   = 6
)

// buildV1Image constructs a minimal, valid v1 image: root directory (inode
// 1) containing "." , ".." and one regular file "greeting" (inode 2), with
// data in fixtureRootZone and fixtureFileZone. Tests corrupt specific
// records afterwards by rewriting them with putInodeV1/putDirent.
func buildV1Image() []byte {
	img := make([]byte, fixtureNZones*blockio.BlockSize)
	le := binary.LittleEndian

	sb := img[blockio.BlockSize : 2*blockio.BlockSize]
	le.PutUint16(sb[0:2], fixtureNInodes)
	le.PutUint16(sb[2:4], fixtureNZones)
	le.PutUint16(sb[4:6], 1) // imap_blocks
	le.PutUint16(sb[6:8], 1) // zmap_blocks
	le.PutUint16(sb[8:10], fixtureFirstZone)
	le.PutUint16(sb[10:12], 0) // log_zone_size
	le.PutUint32(sb[12:16], uint32(fixtureNZones*blockio.BlockSize))
	le.PutUint16(sb[16:18], fixtureMagicV1)
	le.PutUint16(sb[18:20], 1) // state: VALID

	imap := img[2*blockio.BlockSize : 3*blockio.BlockSize]
	imap[0] = 0b0000_0111 // bits 0,1,2 set: convention bit, root, file

	zmap := img[3*blockio.BlockSize : 4*blockio.BlockSize]
	zmap[0] = 0b0000_0111 // convention bit, zone 5, zone 6

	inodeTable := img[4*blockio.BlockSize : 5*blockio.BlockSize]
	// Inode 1 (root): directory, 3 entries.
	putInodeV1(inodeTable, 1, 0o040755, 1, 3*fixtureDirSize, fixtureRootZone)
	// Inode 2: regular file, one data zone.
	putInodeV1(inodeTable, 2, 0o100644, 1, 10, fixtureFileZone)

	root := img[fixtureRootZone*blockio.BlockSize : (fixtureRootZone+1)*blockio.BlockSize]
	putDirent(root, 0, 1, ".")
	putDirent(root, fixtureDirSize, 1, "..")
	putDirent(root, 2*fixtureDirSize, 2, "greeting")

	return img
}

func putInodeV1(table []byte, inumber uint32, mode uint16, nlinks uint8, size uint32, zone0 uint16) {
	const recordSize = 32
	// Record 0 is the padding inode; inode i's record sits at index i.
	off := int(inumber) * recordSize
	le := binary.LittleEndian
	rec := table[off : off+recordSize]
	le.PutUint16(rec[0:2], mode)
	le.PutUint16(rec[2:4], 0) // uid
	le.PutUint32(rec[4:8], size)
	le.PutUint32(rec[8:12], 0) // mtime
	rec[12] = 0                // gid
	rec[13] = nlinks
	le.PutUint16(rec[14:16], zone0)
}

func putDirent(block []byte, offset int, inumber uint16, name string) {
	binary.LittleEndian.PutUint16(block[offset:offset+2], inumber)
	copy(block[offset+2:offset+2+fixtureDirSize-2], name)
}
