// Package bitset implements the bit-addressed primitives the checker uses
// for the inode allocation map and the zone allocation map.
//
// Bit numbering follows the on-disk convention: byte = n>>3, mask = 1<<(n&7),
// little-endian within a byte. This is the same layout boljen/go-bitmap uses
// internally, so the map is a direct wrapper rather than a reimplementation.
package bitset

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// Map wraps a byte-addressed bitmap loaded verbatim from an on-disk image.
// Unlike bitmap.Bitmap on its own, every accessor bounds-checks against the
// number of bits the map actually covers, since a corrupt superblock can
// otherwise drive an out-of-range bit index straight into a slice-out-of-
// bounds panic.
type Map struct {
	buf  bitmap.Bitmap
	nbit int
}

// New creates a Map over nbit bits, backed by a freshly zeroed buffer sized
// to the nearest byte.
func New(nbit int) Map {
	return Map{buf: bitmap.New(nbit), nbit: nbit}
}

// Wrap adapts an existing byte slice, as read from disk, into a Map covering
// nbit bits. The slice is not copied; mutations through the Map are visible
// in buf and vice versa.
func Wrap(buf []byte, nbit int) Map {
	return Map{buf: bitmap.Bitmap(buf), nbit: nbit}
}

// Bytes returns the backing buffer, suitable for writing straight back to
// disk.
func (m Map) Bytes() []byte {
	return []byte(m.buf)
}

// NumBits returns how many bits this map covers.
func (m Map) NumBits() int {
	return m.nbit
}

func (m Map) checkRange(n int) error {
	if n < 0 || n >= m.nbit {
		return fmt.Errorf("bit %d out of range [0, %d)", n, m.nbit)
	}
	return nil
}

// Bit returns whether bit n is set. It is the caller's responsibility to
// bounds-check n against NumBits() first; Bit returns false for an
// out-of-range n rather than panicking.
func (m Map) Bit(n int) bool {
	if m.checkRange(n) != nil {
		return false
	}
	return m.buf.Get(n)
}

// SetBit sets bit n. Returns an error if n is out of range.
func (m Map) SetBit(n int) error {
	if err := m.checkRange(n); err != nil {
		return err
	}
	m.buf.Set(n, true)
	return nil
}

// ClrBit clears bit n. Returns an error if n is out of range.
func (m Map) ClrBit(n int) error {
	if err := m.checkRange(n); err != nil {
		return err
	}
	m.buf.Set(n, false)
	return nil
}

// Popcount returns the number of set bits in [0, NumBits()), used for the
// verbose usage-percentage summary.
func (m Map) Popcount() int {
	count := 0
	for i := 0; i < m.nbit; i++ {
		if m.buf.Get(i) {
			count++
		}
	}
	return count
}
