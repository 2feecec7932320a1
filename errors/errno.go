// Package errors defines the sentinel error values used across mfsck's
// components. Each one represents a distinct on-disk inconsistency or I/O
// failure that the driver needs to classify as fatal, correctable, or a
// warning (see the driver's exit code mapping).
package errors

import (
	"fmt"
)

// MfsckError is a sentinel error, analogous to a POSIX errno code but carrying
// a human-readable description instead of a numeric value.
type MfsckError string

const ErrBadMagic = MfsckError("unrecognized superblock magic")
const ErrUnsupportedZoneSize = MfsckError("log_zone_size must be 0")
const ErrBitmapTooSmall = MfsckError("bitmap block count too small for inode/zone count")
const ErrInodeSizeMismatch = MfsckError("on-disk inode size does not match expected layout")
const ErrRootNotDirectory = MfsckError("root inode is not a directory")
const ErrShortRead = MfsckError("short read from image")
const ErrShortWrite = MfsckError("short write to image")
const ErrSeekFailed = MfsckError("seek failed on image")
const ErrZoneOutOfRange = MfsckError("zone number outside valid range")
const ErrInodeOutOfRange = MfsckError("inode number outside valid range")
const ErrBitmapDesync = MfsckError("bitmap disagrees with reconstructed usage")
const ErrNotADirectory = MfsckError("inode is not a directory")
const ErrTTYRequired = MfsckError("interactive repair requires a TTY on stdin and stdout")
const ErrUsage = MfsckError("usage error")

func (e MfsckError) Error() string {
	return string(e)
}

func (e MfsckError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e MfsckError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}
