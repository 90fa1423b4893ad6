package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for propagation and HTTP mapping.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindNotFound
	KindInsufficientSupply
	KindInsufficientBalance
	KindLedger
	KindConsistency
	KindInternal
)

// Error is the application error carried from services to the edge. Callers
// can always distinguish "nothing happened" (any kind except Consistency)
// from "chain mutated, ledger not yet synced" (KindConsistency, which always
// carries the chain TxRef).
type Error struct {
	Kind    Kind
	Message string
	// TxRef is the confirmed chain reference for consistency errors, so an
	// operator can manually reconcile.
	TxRef string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Consistency marks the off-chain leg as failed after a confirmed chain
// write. txRef is mandatory.
func Consistency(txRef string, err error) *Error {
	return &Error{
		Kind:    KindConsistency,
		Message: "off-chain ledger update failed after confirmed chain transaction",
		TxRef:   txRef,
		Err:     err,
	}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusCode maps an error kind to an HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInsufficientSupply, KindInsufficientBalance:
		return 400
	case KindAuthorization:
		return 403
	case KindNotFound:
		return 404
	case KindLedger:
		return 502
	default:
		return 500
	}
}
