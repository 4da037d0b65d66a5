package ospfs

import "errors"

// Error taxonomy for the filesystem core, grounded on the teacher's
// maggiefs/errors.go convention: plain package-level sentinel errors
// checked with errors.Is, never custom error types. Package vfs (its
// toStatus helper) is the only place that translates these into
// fuse.Status codes.
var (
	ErrNoSpace      = errors.New("ospfs: no space")
	ErrNameTooLong  = errors.New("ospfs: name too long")
	ErrExists       = errors.New("ospfs: exists")
	ErrNotFound     = errors.New("ospfs: not found")
	ErrBadAddress   = errors.New("ospfs: bad address")
	ErrIO           = errors.New("ospfs: io error")
	ErrNotPermitted = errors.New("ospfs: not permitted")
	ErrNoMemory     = errors.New("ospfs: out of memory")
	ErrNoBlock      = errors.New("ospfs: no block at offset")
)
