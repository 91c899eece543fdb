package app

import (
	"errors"
)

// Error kinds. Every error returned by the services matches exactly one of
// these under errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrTransient    = errors.New("temporary failure")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a service error with a message fit for the admin.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Kind returns one of the Err* kind sentinels.
func (e *Error) Kind() error { return e.kind }

var (
	ErrAdminNotAuthorized = &Error{kind: ErrUnauthorized, msg: "performing user is not authorized as an admin"}

	ErrActiveCycleExists = &Error{kind: ErrConflict, msg: "An active cycle already exists"}
	ErrCycleAlreadyEnded = &Error{kind: ErrConflict, msg: "Cycle has already ended"}
	ErrCycleNotFound     = &Error{kind: ErrNotFound, msg: "Cycle not found"}
	ErrNoActiveCycle     = &Error{kind: ErrValidation, msg: "Members cannot make deposits until a cycle is started"}

	ErrMemberNotFound      = &Error{kind: ErrNotFound, msg: "Member not found"}
	ErrMemberAlreadyExists = &Error{kind: ErrConflict, msg: "Member already exists"}

	ErrPaymentNotFound = &Error{kind: ErrNotFound, msg: "Payment transaction not found"}

	ErrWithdrawalNotFound        = &Error{kind: ErrNotFound, msg: "Withdrawal request not found"}
	ErrWithdrawalAlreadyReviewed = &Error{kind: ErrConflict, msg: "Withdrawal request has already been processed"}
)

func validation(msg string) error {
	return &Error{kind: ErrValidation, msg: msg}
}

// storageFailure marks err as transient unless it already carries a kind.
func storageFailure(msg string, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{kind: ErrTransient, msg: msg, cause: err}
}

const retryMessage = "Temporary failure, please retry"

// Message renders err for display. Transient and unclassified errors get a
// generic retry prompt so storage details never reach the admin.
func Message(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.kind == ErrTransient {
		return retryMessage
	}
	return appErr.msg
}
