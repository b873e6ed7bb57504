package store

import (
	"errors"

	"github.com/kjk/flatkv/codec"
)

var (
	ErrUnsupportedFormat = codec.ErrUnsupportedFormat
	ErrUnparseable       = codec.ErrUnparseable
	ErrKeyNotFound       = errors.New("key not found")
	ErrDuplicateKey      = errors.New("key already exists")
	// ErrInvalidKey is returned for keys that can't be stored in a file:
	// empty or with leading or trailing whitespace
	ErrInvalidKey = errors.New("invalid key")
	// ErrIO wraps failures to read or write the backing file
	ErrIO = errors.New("i/o error")
)
