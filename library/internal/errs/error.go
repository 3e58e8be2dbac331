package errs

import (
	"errors"
)

// Kinds. Every error returned by the service unwraps to at most one of them;
// anything else is internal.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrMemberNotFound = newErr(ErrNotFound, "member not found")
	ErrBookNotFound   = newErr(ErrNotFound, "book not found")
	ErrLoanNotFound   = newErr(ErrNotFound, "loan not found")
	ErrFineNotFound   = newErr(ErrNotFound, "fine not found")

	ErrMemberNotActive    = newErr(ErrForbidden, "member not active")
	ErrUnpaidFines        = newErr(ErrForbidden, "unpaid fines")
	ErrBorrowLimitReached = newErr(ErrForbidden, "borrow limit reached")

	ErrBookUnavailable = newErr(ErrBadRequest, "book unavailable")
	ErrAlreadyReturned = newErr(ErrBadRequest, "already returned")
	ErrAlreadyPaid     = newErr(ErrBadRequest, "already paid")
	ErrInvalidCopies   = newErr(ErrBadRequest, "available copies must be within [0, total copies]")
	ErrInvalidStatus   = newErr(ErrBadRequest, "invalid status")

	ErrConstraint = newErr(ErrBadRequest, "constraint violated")

	ErrDuplicate = newErr(ErrConflict, "already exists")
	ErrInUse     = newErr(ErrConflict, "referenced by loans or fines")
)

type kindError struct {
	kind error
	msg  string
}

func newErr(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
