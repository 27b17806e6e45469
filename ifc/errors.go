package ifc

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrParseFailure matches every container level failure: the file cannot
	// be read as an ISO 10303-21 exchange file at all.
	ErrParseFailure = errors.New("ifc: parse failure")
	// ErrUnknownElement is returned by Model.Record for IDs not in the file
	ErrUnknownElement = errors.New("ifc: unknown express id")
	ErrClosed         = errors.New("ifc: model is closed")
)

// ParseError describes a container level failure.
//
// errors.Is(err, ErrParseFailure) holds for every *ParseError.
type ParseError struct {
	Path   string
	Offset int64 // -1 when not tied to a position
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("ifc: cannot parse %s at byte %d: %v", e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("ifc: cannot parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParseFailure }

// ElementError is the failure of a single entity statement. It never aborts a walk.
type ElementError struct {
	ExpressID int64
	Err       error
}

func (e *ElementError) Error() string {
	return "ifc: element #" + strconv.FormatInt(e.ExpressID, 10) + ": " + e.Err.Error()
}

func (e *ElementError) Unwrap() error { return e.Err }
