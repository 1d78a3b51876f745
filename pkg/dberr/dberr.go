// Package dberr defines the closed error taxonomy shared by every layer of
// the database core. Callers distinguish failure classes with errors.Is
// against the sentinel Err* values (or by comparing CodeOf(err) with a
// Code); the front-ends (out of scope here) map these onto wire-level
// status codes.
package dberr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	Unauthorized     Code = "unauthorized"
	NotFound         Code = "not_found"
	NotSupported     Code = "not_supported"
	InvalidTag       Code = "invalid_tag"
	CannotGetPeer    Code = "cannot_get_peer"
	InvalidSignature Code = "invalid_signature"
	Unknown          Code = "unknown"
)

// Error wraps an underlying cause with a Code so callers can branch on
// failure class without string matching.
type Error struct {
	Code  Code
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, dberr.ErrUnauthorized)-style checks by comparing codes.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New creates an *Error with no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap creates an *Error wrapping cause, or returns nil if cause is nil.
func Wrap(code Code, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, cause: cause}
}

// sentinels, usable directly with errors.Is(err, dberr.ErrNotFound)
var (
	ErrUnauthorized     = &Error{Code: Unauthorized, Msg: "unauthorized"}
	ErrNotFound         = &Error{Code: NotFound, Msg: "not found"}
	ErrNotSupported     = &Error{Code: NotSupported, Msg: "not supported"}
	ErrInvalidTag       = &Error{Code: InvalidTag, Msg: "invalid tag"}
	ErrCannotGetPeer    = &Error{Code: CannotGetPeer, Msg: "cannot get peer"}
	ErrInvalidSignature = &Error{Code: InvalidSignature, Msg: "invalid signature"}
)

// CodeOf extracts the Code from err, or Unknown if err isn't a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}
