package minix

import (
	"fmt"
	"strings"

	"github.com/dargueta/mfsck/blockio"
)

const maxDisplayDepth = 50

// Summary accumulates the verbose per-run statistics described in the
// driver's step 8: per-type file counts and a links figure that discounts
// "." and ".." in every directory.
type Summary struct {
	TotalInodesVisited int
	Directories        int
	Regular            int
	CharSpecial        int
	BlockSpecial       int
	Symlinks           int
	Sockets            int
	Fifos              int
	Unknown            int
}

// VisibleLinks is the "links" figure the summary prints: the raw reference
// count reconstructed by the walker, discounting the "." and ".." entries
// every directory contributes to its own link count.
func (s *Summary) VisibleLinks(totalReferences int) int {
	return totalReferences - (2*s.Directories - 1)
}

// ListFunc, if set on FileSystem, is invoked once per directory entry
// visited (the -l flag), receiving the inode number, its mode, its link
// count, and the path built up so far.
type ListFunc func(inumber uint32, mode uint16, nlinks uint16, path string)

// VisitRoot performs the first-visit bookkeeping for the root inode before
// the walk starts. Every other inode's first visit is driven by the
// directory entry that names it, but nothing names the root, so the driver
// calls this once (spec.md §4.9 step 7) in place of that missing parent
// entry: classify it, count it, confirm it's marked allocated, and account
// for its zones.
func (fs *FileSystem) VisitRoot() {
	ino := &fs.Inodes[RootInode]
	fs.Summary.TotalInodesVisited++
	fs.classify(ino)
	if !fs.inodeInUse(RootInode) {
		question := "root inode is marked free but is in use, mark it allocated"
		if fs.ask(question, true) {
			fs.setInodeInUse(RootInode, true)
		}
	}
	saturate(fs.InodeCount, RootInode, fs, "root inode")
	fs.CheckZones(RootInode)
}

// RecursiveCheck implements C7: a DFS from inumber, requiring it to be a
// directory, validating its minimum size, and walking every directory entry
// slot.
func (fs *FileSystem) RecursiveCheck(inumber uint32) {
	ino := &fs.Inodes[inumber]
	if !ino.IsDir() {
		fs.Uncorrected(fmt.Sprintf("inode %d is not a directory", inumber))
		return
	}

	dirSize := fs.Superblock.DirSize
	if int(ino.Size) < 2*dirSize {
		fs.Uncorrected(fmt.Sprintf("directory inode %d is smaller than two entries", inumber))
	}

	for offset := 0; offset+dirSize <= int(ino.Size); offset += dirSize {
		fs.checkFile(inumber, offset)
	}
}

// checkFile implements C7's check_file: decode one directory entry,
// validate its inode reference, classify and count it, and recurse into
// subdirectories on first visit.
func (fs *FileSystem) checkFile(dirInumber uint32, offset int) {
	sb := fs.Superblock
	logicalBlock := offset / blockio.BlockSize
	posInBlock := offset % blockio.BlockSize

	zone := fs.ResolveZone(dirInumber, logicalBlock)
	block := make([]byte, blockio.BlockSize)
	fs.Device.ReadBlock(zone, block)

	entry := decodeDirent(block, posInBlock, sb.NameLen)

	if entry.Inumber > sb.NInodes {
		question := fmt.Sprintf(
			"directory entry %q has out-of-range inode %d, clear the entry",
			entry.Name, entry.Inumber)
		if zone != 0 && fs.ask(question, true) {
			encodeDirentInumber(block, posInBlock, 0)
			fs.Device.WriteBlock(zone, block)
			entry.Inumber = 0
		}
	}

	if len(fs.PathStack) < maxDisplayDepth {
		fs.PathStack = append(fs.PathStack, entry.Name)
		defer func() { fs.PathStack = fs.PathStack[:len(fs.PathStack)-1] }()
	} else if len(fs.PathStack) == maxDisplayDepth {
		fs.Warn("path depth exceeds " + fmt.Sprint(maxDisplayDepth) + ", further names are not displayed")
	}

	if entry.Inumber == 0 || entry.Inumber > sb.NInodes {
		return
	}

	ino := &fs.Inodes[entry.Inumber]
	firstVisit := fs.InodeCount[entry.Inumber] == 0

	if offset == 0 && entry.Name != "." {
		fs.Uncorrected(fmt.Sprintf("'.' isn't first in directory %d", dirInumber))
	}
	if offset == sb.DirSize && entry.Name != ".." {
		fs.Uncorrected(fmt.Sprintf("'..' isn't second in directory %d", dirInumber))
	}

	if firstVisit {
		fs.Summary.TotalInodesVisited++
		fs.classify(ino)
		if !fs.inodeInUse(entry.Inumber) {
			question := fmt.Sprintf("inode %d is marked free but is in use, mark it allocated", entry.Inumber)
			if fs.ask(question, true) {
				fs.setInodeInUse(entry.Inumber, true)
			}
		}
	}

	saturate(fs.InodeCount, entry.Inumber, fs, fmt.Sprintf("inode %d", entry.Inumber))

	if fs.List != nil {
		fs.List(entry.Inumber, ino.Mode, fs.visitedLinks(entry.Inumber), strings.Join(fs.PathStack, "/"))
	}

	visitedOnce := fs.InodeCount[entry.Inumber] == 1
	ftype := FileType(ino.Mode)
	if visitedOnce && (ftype == TypeRegular || ftype == TypeDir || ftype == TypeSymlink) {
		fs.CheckZones(entry.Inumber)
	}
	if visitedOnce && ftype == TypeDir {
		fs.RecursiveCheck(entry.Inumber)
	}
}

func (fs *FileSystem) visitedLinks(inumber uint32) uint16 {
	return fs.Inodes[inumber].Nlinks
}

func (fs *FileSystem) classify(ino *Inode) {
	switch FileType(ino.Mode) {
	case TypeRegular:
		fs.Summary.Regular++
	case TypeDir:
		fs.Summary.Directories++
	case TypeChar:
		fs.Summary.CharSpecial++
	case TypeBlock:
		fs.Summary.BlockSpecial++
	case TypeSymlink:
		fs.Summary.Symlinks++
	case TypeSocket:
		fs.Summary.Sockets++
	case TypeFIFO:
		fs.Summary.Fifos++
	default:
		fs.Summary.Unknown++
		fs.Warn(fmt.Sprintf("inode has unrecognized mode 0%o", ino.Mode))
	}
}
