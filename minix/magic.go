package minix

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Variant distinguishes the two on-disk inode/zone-pointer layouts the
// checker understands.
type Variant int

const (
	VariantV1 Variant = 1
	VariantV2 Variant = 2
)

// magicRow is one row of the embedded recognized-magic table. The four
// recognized magic values are data, not a switch statement, so adding a
// fifth variant later is a CSV edit rather than a code change.
type magicRow struct {
	Magic    uint16 `csv:"magic"`
	Variant  int    `csv:"variant"`
	NameLen  int    `csv:"namelen"`
	DirSize  int    `csv:"dirsize"`
	FSName   string `csv:"name"`
}

//go:embed magic_table.csv
var magicTableRawCSV string

var magicTable map[uint16]magicRow

func init() {
	magicTable = make(map[uint16]magicRow)
	reader := strings.NewReader(magicTableRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row magicRow) error {
		if _, exists := magicTable[row.Magic]; exists {
			return fmt.Errorf("duplicate magic table entry for %d", row.Magic)
		}
		magicTable[row.Magic] = row
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("minix: failed to parse embedded magic table: %s", err))
	}
}

// Layout describes how a magic value's variant resolves. DirSize is the
// magic-derived default; the driver replaces it (and NameLen) with the
// result of ProbeDirSize after inspecting the root directory's first block.
type Layout struct {
	Variant Variant
	NameLen int
	DirSize int
	Name    string
}

// DecodeMagic looks up a raw superblock magic value. The second return value
// is false for any value not in the recognized set of four.
func DecodeMagic(magic uint16) (Layout, bool) {
	row, ok := magicTable[magic]
	if !ok {
		return Layout{}, false
	}
	return Layout{
		Variant: Variant(row.Variant),
		NameLen: row.NameLen,
		DirSize: row.DirSize,
		Name:    row.FSName,
	}, true
}
