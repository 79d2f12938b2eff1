package service

import (
	"errors"
)

// Code is the stable identifier of a failure, safe to hand to clients.
type Code string

const (
	CodeInvalidInput         Code = "invalid_input"
	CodeAlreadyExists        Code = "already_exists"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeUnknownDestination   Code = "unknown_destination"
	CodeInvalidOrExpiredCode Code = "invalid_or_expired_code"
	CodeDeliveryFailed       Code = "delivery_failed"
	CodeUnauthenticated      Code = "unauthenticated"
	CodeInternal             Code = "internal"
)

// Error is returned by every AuthService flow. Message is human readable and
// safe to show; Detail carries the dispatcher diagnostic for delivery
// failures; Err is the cause and is never exposed to clients.
type Error struct {
	Code    Code
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err,
// ErrInvalidCredentials) holds for every variant of that failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidInput         = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrAlreadyExists        = &Error{Code: CodeAlreadyExists, Message: "an account with this email already exists"}
	ErrInvalidCredentials   = &Error{Code: CodeInvalidCredentials, Message: "invalid email or password"}
	ErrUnknownDestination   = &Error{Code: CodeUnknownDestination, Message: "no account is registered for this email"}
	ErrInvalidOrExpiredCode = &Error{Code: CodeInvalidOrExpiredCode, Message: "invalid or expired code"}
	ErrDeliveryFailed       = &Error{Code: CodeDeliveryFailed, Message: "could not deliver the access code"}
	ErrUnauthenticated      = &Error{Code: CodeUnauthenticated, Message: "missing or invalid session token"}
	ErrInternal             = &Error{Code: CodeInternal, Message: "internal server error"}
)

func invalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

// wrap returns a copy of base carrying cause.
func wrap(base *Error, cause error) *Error {
	e := *base
	e.Err = cause
	return &e
}

// CodeOf returns the code of the first *Error in err's chain, CodeInternal
// for any other non-nil error and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
