// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package errcode defines the closed set of failure codes shared by the
// planning, preimage and compile phases of the signing engine.
//
// Every public operation in this module returns a plain Go error. When the
// failure belongs to the taxonomy below, the error carries a Code that can be
// recovered with CodeOf or matched with errors.Is against one of the exported
// sentinel values:
//
//	if errors.Is(err, errcode.ErrInsufficientFunds) {
//		// Re-plan with a lower fee rate.
//	}
package errcode

import (
	"errors"
	"fmt"
)

// Code is a closed enumeration of the failures the engine can report. The
// zero value is OK, the success sentinel.
type Code uint8

const (
	// OK signals success.
	OK Code = iota

	// InsufficientFunds is returned when the candidate inputs cannot cover
	// the outputs plus the projected fee.
	InsufficientFunds

	// InvalidSignature is returned when a caller-supplied signature does
	// not verify against its digest and public key.
	InvalidSignature

	// SignaturesCountMismatch is returned when the signature or public key
	// arrays passed to the compiler do not align 1:1 with the inputs.
	SignaturesCountMismatch

	// UnsupportedScriptVariant is returned when a script or spend condition
	// has no canonical encoding, or is not supported by the selected chain.
	UnsupportedScriptVariant

	// UnsupportedSighashFlag is returned for flag/algorithm combinations
	// with no defined meaning.
	UnsupportedSighashFlag

	// MalformedTransaction is returned when a serialized transaction is
	// truncated, carries trailing bytes or is otherwise undecodable.
	MalformedTransaction

	// NoChangeScript is returned when change is enabled but neither the
	// request nor the coin adapter provide a change destination.
	NoChangeScript

	// InvalidInput is returned when a request field is malformed, e.g. a
	// public key that does not parse or a zero output amount.
	InvalidInput

	// NoInputs is returned when a request carries no inputs.
	NoInputs

	// NoOutputs is returned when a request carries no outputs.
	NoOutputs

	// SighashFailed is returned when the digest computation itself fails.
	SighashFailed

	// UnsupportedModule is returned when an optional coin adapter module is
	// invoked on a chain that does not provide it.
	UnsupportedModule
)

// String returns the name of the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case InsufficientFunds:
		return "InsufficientFunds"
	case InvalidSignature:
		return "InvalidSignature"
	case SignaturesCountMismatch:
		return "SignaturesCountMismatch"
	case UnsupportedScriptVariant:
		return "UnsupportedScriptVariant"
	case UnsupportedSighashFlag:
		return "UnsupportedSighashFlag"
	case MalformedTransaction:
		return "MalformedTransaction"
	case NoChangeScript:
		return "NoChangeScript"
	case InvalidInput:
		return "InvalidInput"
	case NoInputs:
		return "NoInputs"
	case NoOutputs:
		return "NoOutputs"
	case SighashFailed:
		return "SighashFailed"
	case UnsupportedModule:
		return "UnsupportedModule"
	default:
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
}

// Error is an error value tagged with a Code.
type Error struct {
	// Code is the taxonomy entry this error belongs to.
	Code Code

	// Reason is an optional human readable detail.
	Reason string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code. This lets
// callers match on the exported sentinels regardless of the attached reason.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return other.Code == e.Code
}

var (
	// ErrInsufficientFunds matches errors with the InsufficientFunds code.
	ErrInsufficientFunds = &Error{Code: InsufficientFunds}

	// ErrInvalidSignature matches errors with the InvalidSignature code.
	ErrInvalidSignature = &Error{Code: InvalidSignature}

	// ErrSignaturesCountMismatch matches errors with the
	// SignaturesCountMismatch code.
	ErrSignaturesCountMismatch = &Error{Code: SignaturesCountMismatch}

	// ErrUnsupportedScriptVariant matches errors with the
	// UnsupportedScriptVariant code.
	ErrUnsupportedScriptVariant = &Error{Code: UnsupportedScriptVariant}

	// ErrUnsupportedSighashFlag matches errors with the
	// UnsupportedSighashFlag code.
	ErrUnsupportedSighashFlag = &Error{Code: UnsupportedSighashFlag}

	// ErrMalformedTransaction matches errors with the MalformedTransaction
	// code.
	ErrMalformedTransaction = &Error{Code: MalformedTransaction}

	// ErrNoChangeScript matches errors with the NoChangeScript code.
	ErrNoChangeScript = &Error{Code: NoChangeScript}

	// ErrInvalidInput matches errors with the InvalidInput code.
	ErrInvalidInput = &Error{Code: InvalidInput}

	// ErrNoInputs matches errors with the NoInputs code.
	ErrNoInputs = &Error{Code: NoInputs}

	// ErrNoOutputs matches errors with the NoOutputs code.
	ErrNoOutputs = &Error{Code: NoOutputs}

	// ErrSighashFailed matches errors with the SighashFailed code.
	ErrSighashFailed = &Error{Code: SighashFailed}

	// ErrUnsupportedModule matches errors with the UnsupportedModule code.
	ErrUnsupportedModule = &Error{Code: UnsupportedModule}
)

// New returns an error with the given code and a formatted reason.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Wrap tags err with the given code. A nil err yields nil.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:   code,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

// CodeOf returns the code carried by err. A nil error maps to OK and an error
// without a code is reported as InvalidInput.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return InvalidInput
}
