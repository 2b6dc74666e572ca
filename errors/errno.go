// Package errors defines the fixed taxonomy of negative-code failures the
// filesystem engine can return, in the style of POSIX errno but scoped to
// this filesystem's own operations rather than the host OS's.
package errors

import (
	"fmt"
)

// Code is one of the engine's fixed error codes. Codes are always negative;
// zero is success and is never represented by a Code.
type Code int

const (
	// EInvalidInode indicates an inode number out of range, an inode of the
	// wrong type for the requested operation, or a corrupt type field.
	EInvalidInode Code = -(iota + 1)
	// EInvalidSize indicates a negative size, or a size that would require
	// more direct pointers than an inode has.
	EInvalidSize
	// EInvalidName indicates a name that's too long, contains a forbidden
	// character, or names "." or ".." where that's not allowed.
	EInvalidName
	// EInvalidType indicates Create found an existing entry of a different
	// type than the one requested.
	EInvalidType
	// ENotAllocated indicates an operation targeted an inode whose bitmap
	// bit is clear.
	ENotAllocated
	// EWriteToDir indicates a write targeted a directory inode.
	EWriteToDir
	// ENotEnoughSpace indicates no free inode or data block was available.
	ENotEnoughSpace
	// ENotFound indicates a lookup found no matching directory entry.
	ENotFound
	// EDirNotEmpty indicates Unlink targeted a non-empty directory.
	EDirNotEmpty
)

var codeNames = map[Code]string{
	EInvalidInode:   "invalid inode",
	EInvalidSize:    "invalid size",
	EInvalidName:    "invalid name",
	EInvalidType:    "invalid type",
	ENotAllocated:   "inode not allocated",
	EWriteToDir:     "write to directory",
	ENotEnoughSpace: "not enough space",
	ENotFound:       "not found",
	EDirNotEmpty:    "directory not empty",
}

// Error implements the `error` interface. It returns the code's canonical,
// human-readable description.
func (c Code) Error() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// WithMessage attaches additional context to a Code, returning a FSError
// that still compares equal to the original Code via errors.Is.
func (c Code) WithMessage(message string) FSError {
	return customError{
		code:          c,
		message:       message,
		originalError: c,
	}
}

// WrapError attaches an underlying error to a Code, returning a FSError
// whose message incorporates both.
func (c Code) WrapError(err error) FSError {
	return customError{
		code:          c,
		message:       fmt.Sprintf("%s: %s", c.Error(), err.Error()),
		originalError: err,
	}
}
