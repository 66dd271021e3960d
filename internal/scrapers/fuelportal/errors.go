package fuelportal

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	// KindClient is any unexpected failure.
	KindClient ErrorKind = iota
	// KindAuthentication means the portal rejected the credentials.
	KindAuthentication
	// KindCommunication is a transport failure (timeout, DNS, connection, bad status).
	KindCommunication
	// KindNavigation means the tank page was never reached even after logging in.
	KindNavigation
	// KindExtraction means a mandatory element was missing from an otherwise
	// successful page load.
	KindExtraction
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindCommunication:
		return "communication"
	case KindNavigation:
		return "navigation"
	case KindExtraction:
		return "extraction"
	default:
		return "client"
	}
}

// Error is the only error type returned by this package.
type Error struct {
	Kind    ErrorKind
	Message string
	// Expected and Actual are the target location and the location that was
	// landed on instead, set for navigation and authentication errors.
	Expected string
	Actual   string
	// Field names the mandatory element that could not be extracted.
	Field string
	Cause error
}

func (e *Error) Error() string {
	var out strings.Builder
	out.WriteString("fuel portal: ")
	out.WriteString(e.Kind.String())
	if e.Field != "" {
		fmt.Fprintf(&out, ": %s", e.Field)
	}
	if e.Message != "" {
		fmt.Fprintf(&out, ": %s", e.Message)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&out, " (expected %s, wound up at %s)", e.Expected, e.Actual)
	}
	if e.Cause != nil {
		fmt.Fprintf(&out, ": %v", e.Cause)
	}
	return out.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrNavigation)
// works on any navigation error. An error that carries an expected and actual
// location never reached the target, so it also matches ErrNavigation
// whatever its kind.
func (e *Error) Is(target error) bool {
	if target == ErrNavigation && (e.Expected != "" || e.Actual != "") {
		return true
	}
	sentinel, ok := sentinels[e.Kind]
	return ok && target == sentinel
}

var (
	ErrClient         error = &Error{Kind: KindClient}
	ErrAuthentication error = &Error{Kind: KindAuthentication}
	ErrCommunication  error = &Error{Kind: KindCommunication}
	ErrNavigation     error = &Error{Kind: KindNavigation}
	ErrExtraction     error = &Error{Kind: KindExtraction}
)

var sentinels = map[ErrorKind]error{
	KindClient:         ErrClient,
	KindAuthentication: ErrAuthentication,
	KindCommunication:  ErrCommunication,
	KindNavigation:     ErrNavigation,
	KindExtraction:     ErrExtraction,
}

// KindOf returns the kind of the first *Error in err's chain, errors from
// outside this package are KindClient.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindClient
}

// asClientError leaves errors of this package untouched and wraps any other
// error as a KindClient error.
func asClientError(err error, message string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindClient, Message: message, Cause: err}
}

func extractionError(field, message string) *Error {
	return &Error{Kind: KindExtraction, Field: field, Message: message}
}
