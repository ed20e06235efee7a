package allocation

import (
	"errors"
)

// Kind classifies errors so that callers (e.g., a transport layer) can react without knowing every sentinel.
type Kind int

const (
	// KindInternal covers everything that is not an expected business failure, e.g., a lost database connection.
	KindInternal Kind = iota

	// KindNotFound means a referenced allocation, user, or resource does not exist.
	KindNotFound

	// KindInvalidInput means an identifier was blank or malformed.
	KindInvalidInput

	// KindInvalidState means the operation is not allowed in the current state of the record.
	KindInvalidState

	// KindConflict means the operation collides with an existing allocation.
	KindConflict
)

// String provides a string representation of Kind for logging and metrics.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified, expected failure.
type Error struct {
	kind Kind
	msg  string
}

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Kind returns the classification of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf returns the Kind of the first classified error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.kind
	}

	return KindInternal
}

var (
	ErrAllocationNotFound = newError(KindNotFound, "allocation not found")
	ErrUserNotFound       = newError(KindNotFound, "user not found")
	ErrResourceNotFound   = newError(KindNotFound, "resource not found")

	ErrBlankAllocationID = newError(KindInvalidInput, "allocation id cannot be blank")
	ErrBlankUserID       = newError(KindInvalidInput, "user id cannot be blank")
	ErrBlankResourceID   = newError(KindInvalidInput, "resource id cannot be blank")

	ErrUserInactive           = newError(KindInvalidState, "user is not active")
	ErrAllocationAlreadyEnded = newError(KindInvalidState, "allocation has already been ended")
	ErrCannotDeleteClosed     = newError(KindInvalidState, "cannot delete an ended allocation")

	ErrResourceUnavailable = newError(KindConflict, "resource is already allocated")
	ErrResourceInUse       = newError(KindConflict, "resource is referenced by allocations")
)

// Infrastructure errors. Engines join them with the underlying driver error.
var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTableName            = errors.New("empty table name supplied")
	ErrBuildingQueryFailed       = errors.New("building the query failed")
	ErrQueryingAllocationsFailed = errors.New("querying allocations failed")
	ErrScanningDBRowFailed       = errors.New("scanning the database row failed")
	ErrWritingAllocationFailed   = errors.New("writing the allocation failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
	ErrQueryingDirectoryFailed   = errors.New("querying users or resources failed")
)
