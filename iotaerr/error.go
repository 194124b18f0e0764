// Package iotaerr defines the error taxonomy shared across the client: every
// fallible operation in codec, nodeclient, nodepool, transfer, retry and
// events returns (or wraps) an *Error carrying one of the Kinds below, so
// callers can switch on failure class without string matching.
package iotaerr

import (
	"fmt"

	"github.com/go-errors/errors"
)

// Kind classifies an error into one of the taxonomy buckets from the spec.
type Kind int

const (
	// Configuration errors, raised by the Builder before a Client exists.
	KindNoNodesConfigured Kind = iota
	KindInvalidTimeout
	KindInvalidNetwork

	// Validation errors, returned without ever contacting the network.
	KindInvalidSeed
	KindInvalidBip32Path
	KindInvalidAddress
	KindInvalidSendRequest
	KindMalformedMessage

	// Ledger logic errors.
	KindInsufficientBalance
	KindAlreadyConfirmed
	KindNoActionNeeded
	KindNoUnspentOutput

	// Network/node errors.
	KindNoSyncedNodes
	KindTimeout
	KindTransport
	KindHTTPStatus
	KindMalformedResponse
	KindQuorumFailed
	KindAddressQueryFailed

	// Subscription errors.
	KindInvalidTopic
	KindBrokerUnreachable

	// Lifecycle.
	KindCancelled
)

// String implements fmt.Stringer for logging.
func (k Kind) String() string {
	switch k {
	case KindNoNodesConfigured:
		return "NoNodesConfigured"
	case KindInvalidTimeout:
		return "InvalidTimeout"
	case KindInvalidNetwork:
		return "InvalidNetwork"
	case KindInvalidSeed:
		return "InvalidSeed"
	case KindInvalidBip32Path:
		return "InvalidBip32Path"
	case KindInvalidAddress:
		return "InvalidAddress"
	case KindInvalidSendRequest:
		return "InvalidSendRequest"
	case KindMalformedMessage:
		return "MalformedMessage"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindAlreadyConfirmed:
		return "AlreadyConfirmed"
	case KindNoActionNeeded:
		return "NoActionNeeded"
	case KindNoUnspentOutput:
		return "NoUnspentOutput"
	case KindNoSyncedNodes:
		return "NoSyncedNodes"
	case KindTimeout:
		return "Timeout"
	case KindTransport:
		return "Transport"
	case KindHTTPStatus:
		return "HttpStatus"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindQuorumFailed:
		return "QuorumFailed"
	case KindAddressQueryFailed:
		return "AddressQueryFailed"
	case KindInvalidTopic:
		return "InvalidTopic"
	case KindBrokerUnreachable:
		return "BrokerUnreachable"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across package boundaries. It
// wraps an underlying cause (if any) with a stack trace via go-errors/errors,
// the same wrapping library the teacher repo depends on.
type Error struct {
	Kind Kind
	Msg  string

	// HTTPCode is only meaningful when Kind == KindHTTPStatus.
	HTTPCode int

	// Address is only meaningful when Kind == KindAddressQueryFailed.
	Address string

	cause error
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write `errors.Is(err, iotaerr.New(KindNoSyncedNodes, ""))`-style checks, or
// more idiomatically use iotaerr.KindOf below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New creates a fresh Error of the given Kind, capturing a stack trace.
func New(kind Kind, msg string) *Error {
	return &Error{
		Kind:  kind,
		Msg:   msg,
		cause: errors.New(msg),
	}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a Kind to an existing error, preserving it as the cause.
func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return nil
	}
	wrapped := errors.Wrap(cause, 1)
	return &Error{
		Kind:  kind,
		Msg:   wrapped.Error(),
		cause: cause,
	}
}

// HTTPStatus builds a KindHTTPStatus error carrying the offending code.
func HTTPStatus(code int) *Error {
	return &Error{
		Kind:     KindHTTPStatus,
		Msg:      fmt.Sprintf("unexpected HTTP status %d", code),
		HTTPCode: code,
	}
}

// AddressQueryFailed builds a KindAddressQueryFailed error naming the address.
func AddressQueryFailed(address string, cause error) *Error {
	return &Error{
		Kind:    KindAddressQueryFailed,
		Msg:     fmt.Sprintf("query failed for address %s", address),
		Address: address,
		cause:   cause,
	}
}

// KindOf extracts the Kind from err, returning ok=false if err is nil or not
// one of ours.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
