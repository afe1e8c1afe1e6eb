package btree

import "github.com/cellkv/cellkv/common"

// Status is a coarse-grained result code, kept for callers that want a
// status instead of an error chain to inspect.
type Status int

const (
	StatusOK Status = iota
	StatusError
	StatusNotFound
	StatusDuplicate
	StatusFull
	StatusExists
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusDuplicate:
		return "DUPLICATE"
	case StatusFull:
		return "FULL"
	case StatusExists:
		return "EXISTS"
	default:
		return "ERROR"
	}
}

// StatusOf maps a sentinel error returned by this package to its Status
// code. A nil error maps to StatusOK; any unrecognized error maps to
// StatusError.
func StatusOf(err error) Status {
	switch err {
	case nil:
		return StatusOK
	case common.ErrKeyNotFound:
		return StatusNotFound
	case ErrAlreadyExists:
		return StatusExists
	case ErrFull:
		return StatusFull
	default:
		return StatusError
	}
}
