package value

import "errors"

var (
	// ErrUnexpectedEoi indicates the decoder ran out of bytes mid-value.
	ErrUnexpectedEoi = errors.New("value: unexpected end of input")

	// ErrTrailingData indicates bytes remained after a top-level value was
	// fully decoded.
	ErrTrailingData = errors.New("value: trailing data after value")

	// ErrInvalidSerialization indicates a kind byte or internal length did
	// not match what was expected at this position.
	ErrInvalidSerialization = errors.New("value: invalid serialization")

	// ErrDepthExceeded indicates recursive encoding/decoding exceeded MaxDepth.
	ErrDepthExceeded = errors.New("value: nesting depth exceeded")

	// ErrEmptyValue indicates an empty byte slice was presented as a
	// SerializedValue; an empty slice is never valid since the first byte
	// must be the kind discriminant.
	ErrEmptyValue = errors.New("value: empty serialized value")

	// ErrVarintOverflow indicates a varint decoded past the 32-bit range.
	ErrVarintOverflow = errors.New("value: varint overflow")

	// ErrInvalidKeyKind indicates a kind not permitted in the key-only
	// variant (map keys, set elements) was encountered.
	ErrInvalidKeyKind = errors.New("value: kind not valid as a map key or set element")
)
