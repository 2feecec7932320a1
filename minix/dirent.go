package minix

import "bytes"

// Dirent is a decoded directory entry: a 16-bit inode number followed by a
// fixed-width, NUL-padded (not necessarily NUL-terminated) name field.
type Dirent struct {
	Inumber uint32
	Name    string
}

// decodeDirent reads one directory entry of dirSize bytes starting at
// offset within block.
func decodeDirent(block []byte, offset, namelen int) Dirent {
	inumber := uint32(block[offset]) | uint32(block[offset+1])<<8
	nameBytes := block[offset+2 : offset+2+namelen]
	end := bytes.IndexByte(nameBytes, 0)
	if end < 0 {
		end = len(nameBytes)
	}
	return Dirent{Inumber: inumber, Name: string(nameBytes[:end])}
}

// encodeDirentInumber zeroes out just the inode-number field of a directory
// entry in place, used to repair a reference to an out-of-range inode
// without disturbing the stored name.
func encodeDirentInumber(block []byte, offset int, inumber uint32) {
	block[offset] = byte(inumber)
	block[offset+1] = byte(inumber >> 8)
}
