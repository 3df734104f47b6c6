package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind string

const (
	// KindConnection means the backend could not be reached or did not answer usefully.
	KindConnection Kind = "connection"
	// KindServerRejected means the backend answered with a non-2xx status.
	KindServerRejected Kind = "server_rejected"
	// KindParse means a staged numeric value could not be parsed.
	KindParse Kind = "parse"
	// KindValidation means a required value was blank before dispatch.
	KindValidation Kind = "validation"
	// KindOCRUnavailable means the receipt upload could not be completed.
	KindOCRUnavailable Kind = "ocr_unavailable"
)

// Error is returned by every Client method on failure.
type Error struct {
	Op         string // client operation, e.g. "updateRecord"
	Kind       Kind
	StatusCode int // HTTP status when the server answered, 0 otherwise
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// IsKind reports whether err carries a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrBlankField is wrapped by KindValidation errors.
var ErrBlankField = errors.New("all fields are required")

func newError(op string, kind Kind, status int, err error) *Error {
	return &Error{Op: op, Kind: kind, StatusCode: status, Err: err}
}
