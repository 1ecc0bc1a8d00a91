package proto

import "errors"

// Error conditions from spec.md §4.1. All are recoverable at the message
// layer (the broker/client drop the offending connection) but fatal to
// that connection.
var (
	ErrUnexpectedEoi       = errors.New("proto: unexpected end of input")
	ErrTrailingData        = errors.New("proto: trailing data after message")
	ErrInvalidSerialization = errors.New("proto: invalid serialization")
	ErrUnexpectedMessage    = errors.New("proto: unexpected message kind")
)
