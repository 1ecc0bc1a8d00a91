package proto

import (
	"encoding/binary"

	"github.com/aldrin-go/aldrin/value"
)

// Message is implemented by every message kind. EncodeFields returns the
// message's structural (non-self-describing) fields; ValueField carries
// the single embedded generic value for kinds where Kind().CarriesValue()
// is true, and is nil otherwise.
type Message interface {
	Kind() Kind
	EncodeFields() []byte
	ValueField() value.SerializedValue
}

type decodeFunc func(fr *FieldReader, val value.SerializedValue) (Message, error)

var decoders = map[Kind]decodeFunc{}

func register(k Kind, fn decodeFunc) {
	decoders[k] = fn
}

// EncodeFrame renders m as a complete wire frame: len:u32-LE (including
// itself) | kind:u8 | [value-len:u32-LE | value-bytes] | fields.
//
// This is the bit-exact codec a concrete byte-stream transport (out of
// this module's scope) would use; the in-process transport this module
// ships for tests instead passes Message values directly, skipping this
// encode/decode round trip entirely.
func EncodeFrame(m Message) ([]byte, error) {
	k := m.Kind()
	if !k.IsValid() {
		return nil, ErrInvalidSerialization
	}

	fields := m.EncodeFields()
	var val value.SerializedValue
	if k.CarriesValue() {
		val = m.ValueField()
	} else if m.ValueField() != nil {
		return nil, ErrInvalidSerialization
	}

	total := 1 + len(fields) // kind + fields
	if k.CarriesValue() {
		total += 4 + len(val)
	}

	frame := make([]byte, 4+total)
	binary.LittleEndian.PutUint32(frame[0:4], uint32(4+total))
	frame[4] = byte(k)
	off := 5
	if k.CarriesValue() {
		binary.LittleEndian.PutUint32(frame[off:off+4], uint32(len(val)))
		off += 4
		copy(frame[off:], val)
		off += len(val)
	}
	copy(frame[off:], fields)
	return frame, nil
}

// DecodeFrame parses one complete frame from data, which must contain
// exactly one frame (the length prefix must match len(data)); trailing or
// short data is an error. It returns the decoded Message.
func DecodeFrame(data []byte) (Message, error) {
	if len(data) < 5 {
		return nil, ErrUnexpectedEoi
	}
	length := binary.LittleEndian.Uint32(data[0:4])
	if int(length) != len(data) {
		if int(length) > len(data) {
			return nil, ErrUnexpectedEoi
		}
		return nil, ErrTrailingData
	}

	k := Kind(data[4])
	if !k.IsValid() || k.IsReserved() {
		return nil, ErrUnexpectedMessage
	}

	pos := 5
	var val value.SerializedValue
	if k.CarriesValue() {
		if len(data) < pos+4 {
			return nil, ErrUnexpectedEoi
		}
		vlen := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		if len(data) < pos+int(vlen) {
			return nil, ErrUnexpectedEoi
		}
		if vlen > 0 {
			val = value.SerializedValue(data[pos : pos+int(vlen)])
			if err := val.Validate(); err != nil {
				return nil, err
			}
		}
		pos += int(vlen)
	}

	dec, ok := decoders[k]
	if !ok {
		return nil, ErrUnexpectedMessage
	}
	fr := NewFieldReader(data[pos:])
	msg, err := dec(fr, val)
	if err != nil {
		return nil, err
	}
	if fr.Remaining() != 0 {
		return nil, ErrTrailingData
	}
	return msg, nil
}
