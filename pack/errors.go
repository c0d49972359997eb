package pack

import "errors"

var (
	ErrBadMagic           = errors.New("pack: bad magic header")
	ErrUnsupportedVersion = errors.New("pack: unsupported packfile version")
	ErrTrailerMismatch    = errors.New("pack: trailer hash does not match packfile contents")
	ErrUnknownKind        = errors.New("pack: unknown object kind")
	ErrEmptyIndex         = errors.New("pack: index has no entries")
	ErrNotFound           = errors.New("pack: object id not present in index")
	ErrUnknownCompression = errors.New("pack: unknown compression flag")
)
