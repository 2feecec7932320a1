// Package blockio implements positioned, fixed-size block reads and writes
// against a filesystem image, grounded in the driver's own raw read-at/
// write-at pattern (see file_systems/common/basicstream in the image driver
// this package was adapted from).
//
// Every method is synchronous and blocking; there is no caching layer here
// on purpose; the checker revisits indirect blocks only a handful of times
// per inode and a cache would mask the exact short-read/short-write
// conditions the reconciler needs to detect.
package blockio

import (
	"io"

	"github.com/dargueta/mfsck/errors"
)

// BlockSize is the fixed block size of a Minix-style image. log_zone_size
// must be 0, meaning one zone is exactly one block.
const BlockSize = 1024

// Device is a block-oriented view over a filesystem image.
type Device struct {
	stream io.ReadWriteSeeker

	// FirstDataZone and NumZones bound the range write_block will accept.
	// They are set once the superblock has been decoded; before that,
	// writes are refused entirely.
	FirstDataZone uint32
	NumZones      uint32

	// Uncorrected is set whenever a read or write fails in a way the
	// checker cannot repair (short read/write, seek failure, or a write
	// attempt outside the valid zone range).
	Uncorrected bool

	onDiagnostic func(string)
}

// New wraps stream for block I/O. onDiagnostic, if non-nil, receives a
// human-readable message every time Uncorrected is newly set.
func New(stream io.ReadWriteSeeker, onDiagnostic func(string)) *Device {
	return &Device{stream: stream, onDiagnostic: onDiagnostic}
}

func (d *Device) diagnose(message string) {
	d.Uncorrected = true
	if d.onDiagnostic != nil {
		d.onDiagnostic(message)
	}
}

// ReadBlock fills buf (which must be exactly BlockSize bytes) with the
// contents of zone/block nr. Block 0 is a sentinel for "no block"; reading
// it zero-fills buf without touching the stream. A seek failure or short
// read zero-fills buf, raises Uncorrected, and emits a diagnostic, but never
// returns an error - callers always get a block-sized buffer back.
func (d *Device) ReadBlock(nr uint32, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	if nr == 0 {
		return
	}

	offset := int64(nr) * BlockSize
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		d.diagnose(errors.ErrSeekFailed.WithMessage(err.Error()).Error())
		return
	}

	n, err := io.ReadFull(d.stream, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		d.diagnose(errors.ErrShortRead.WithMessage(err.Error()).Error())
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	if n != len(buf) {
		d.diagnose(errors.ErrShortRead.WithMessage("unexpected end of image").Error())
		for i := range buf {
			buf[i] = 0
		}
	}
}

// WriteBlock writes buf (exactly BlockSize bytes) to zone nr. Writing block
// 0 is a silent no-op. Writing outside [FirstDataZone, NumZones) is refused
// as an internal error and raises Uncorrected without touching the image.
func (d *Device) WriteBlock(nr uint32, buf []byte) {
	if nr == 0 {
		return
	}
	if nr < d.FirstDataZone || nr >= d.NumZones {
		d.diagnose(errors.ErrZoneOutOfRange.WithMessage(
			"refusing to write zone outside valid range").Error())
		return
	}

	offset := int64(nr) * BlockSize
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		d.diagnose(errors.ErrSeekFailed.WithMessage(err.Error()).Error())
		return
	}

	n, err := d.stream.Write(buf)
	if err != nil {
		d.diagnose(errors.ErrShortWrite.WithMessage(err.Error()).Error())
		return
	}
	if n != len(buf) {
		d.diagnose(errors.ErrShortWrite.WithMessage("incomplete write").Error())
	}
}

// BadZone attempts to read zone z purely to distinguish "media-bad" from
// "logically unused" during reconciliation. It never sets Uncorrected and
// never zero-fills the caller's state - it's a probe, not a read.
func (d *Device) BadZone(z uint32) bool {
	if z == 0 {
		return false
	}
	offset := int64(z) * BlockSize
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return true
	}
	buf := make([]byte, BlockSize)
	n, err := io.ReadFull(d.stream, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return true
	}
	return n != len(buf)
}

// ReadAt reads an arbitrary-length region starting at byte offset, used for
// the superblock block and for loading both bitmaps and the inode table.
// Unlike ReadBlock it returns an error instead of zero-filling.
func (d *Device) ReadAt(buf []byte, offset int64) error {
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.ErrSeekFailed.WrapError(err)
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return errors.ErrShortRead.WrapError(err)
	}
	return nil
}

// WriteAt writes an arbitrary-length region starting at byte offset, used
// for the superblock, both bitmaps, and the inode table in one positioned
// pass during flush.
func (d *Device) WriteAt(buf []byte, offset int64) error {
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.ErrSeekFailed.WrapError(err)
	}
	n, err := d.stream.Write(buf)
	if err != nil {
		return errors.ErrShortWrite.WrapError(err)
	}
	if n != len(buf) {
		return errors.ErrShortWrite.WithMessage("incomplete write")
	}
	return nil
}
