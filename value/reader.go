package value

import (
	"encoding/binary"
	"math"

	"github.com/aldrin-go/aldrin/ident"
)

// Reader decodes a single SerializedValue. It is not safe for concurrent
// use.
type Reader struct {
	data  []byte
	pos   int
	depth int
}

// NewReader returns a Reader positioned at the start of b. b must not be
// empty; callers should check EmptyValue themselves (or call Decode, which
// does).
func NewReader(b SerializedValue) *Reader {
	return &Reader{data: []byte(b)}
}

// Remaining reports whether unread bytes remain.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) enter() error {
	r.depth++
	if r.depth > MaxDepth {
		return ErrDepthExceeded
	}
	return nil
}

func (r *Reader) leave() { r.depth-- }

func (r *Reader) require(n int) error {
	if r.pos+n > len(r.data) {
		return ErrUnexpectedEoi
	}
	return nil
}

func (r *Reader) peekKind() (Kind, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	k := Kind(r.data[r.pos])
	if !k.IsValid() {
		return 0, ErrInvalidSerialization
	}
	return k, nil
}

func (r *Reader) expect(k Kind) error {
	got, err := r.peekKind()
	if err != nil {
		return err
	}
	if got != k {
		return ErrInvalidSerialization
	}
	r.pos++
	return nil
}

func (r *Reader) ReadNone() error { return r.expect(KindNone) }

// ReadSome consumes the Some wrapper and decodes the inner value via
// decode. Callers first peek IsNone to distinguish None from Some.
func (r *Reader) ReadSome(decode func(*Reader) error) error {
	if err := r.expect(KindSome); err != nil {
		return err
	}
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()
	return decode(r)
}

// IsNone reports whether the next value is None without consuming it.
func (r *Reader) IsNone() (bool, error) {
	k, err := r.peekKind()
	if err != nil {
		return false, err
	}
	return k == KindNone, nil
}

func (r *Reader) ReadBool() (bool, error) {
	if err := r.expect(KindBool); err != nil {
		return false, err
	}
	if err := r.require(1); err != nil {
		return false, err
	}
	v := r.data[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.expect(KindU8); err != nil {
		return 0, err
	}
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadI8() (int8, error) {
	if err := r.expect(KindI8); err != nil {
		return 0, err
	}
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := int8(r.data[r.pos])
	r.pos++
	return v, nil
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.expect(KindU16); err != nil {
		return 0, err
	}
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.expect(KindU32); err != nil {
		return 0, err
	}
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.expect(KindU64); err != nil {
		return 0, err
	}
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	if err := r.expect(KindF32); err != nil {
		return 0, err
	}
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadF64() (float64, error) {
	if err := r.expect(KindF64); err != nil {
		return 0, err
	}
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *Reader) readVarint() (uint32, error) {
	v, n, err := readVarint(r.data, r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *Reader) ReadString() (string, error) {
	if err := r.expect(KindString); err != nil {
		return "", err
	}
	n, err := r.readVarint()
	if err != nil {
		return "", err
	}
	if err := r.require(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	if err := r.expect(KindBytes); err != nil {
		return nil, err
	}
	n, err := r.readVarint()
	if err != nil {
		return nil, err
	}
	if err := r.require(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *Reader) ReadUuid() ([16]byte, error) {
	var out [16]byte
	if err := r.expect(KindUuid); err != nil {
		return out, err
	}
	if err := r.require(16); err != nil {
		return out, err
	}
	copy(out[:], r.data[r.pos:r.pos+16])
	r.pos += 16
	return out, nil
}

func (r *Reader) ReadObjectId() (ident.ObjectId, error) {
	var out ident.ObjectId
	if err := r.expect(KindObjectId); err != nil {
		return out, err
	}
	if err := r.require(32); err != nil {
		return out, err
	}
	var uu, cc [16]byte
	copy(uu[:], r.data[r.pos:r.pos+16])
	copy(cc[:], r.data[r.pos+16:r.pos+32])
	r.pos += 32
	out.Uuid = ident.ObjectUuid(uu)
	out.Cookie = ident.ObjectCookie(cc)
	return out, nil
}

func (r *Reader) ReadServiceId() (ident.ServiceId, error) {
	var out ident.ServiceId
	if err := r.expect(KindServiceId); err != nil {
		return out, err
	}
	if err := r.require(64); err != nil {
		return out, err
	}
	var ou, oc, su, sc [16]byte
	copy(ou[:], r.data[r.pos:r.pos+16])
	copy(oc[:], r.data[r.pos+16:r.pos+32])
	copy(su[:], r.data[r.pos+32:r.pos+48])
	copy(sc[:], r.data[r.pos+48:r.pos+64])
	r.pos += 64
	out.Object.Uuid = ident.ObjectUuid(ou)
	out.Object.Cookie = ident.ObjectCookie(oc)
	out.Uuid = ident.ServiceUuid(su)
	out.Cookie = ident.ServiceCookie(sc)
	return out, nil
}

func (r *Reader) ReadSender() (ident.ChannelCookie, error) {
	if err := r.expect(KindSender); err != nil {
		return ident.ChannelCookie{}, err
	}
	if err := r.require(16); err != nil {
		return ident.ChannelCookie{}, err
	}
	var c [16]byte
	copy(c[:], r.data[r.pos:r.pos+16])
	r.pos += 16
	return ident.ChannelCookie(c), nil
}

func (r *Reader) ReadReceiver() (ident.ChannelCookie, error) {
	if err := r.expect(KindReceiver); err != nil {
		return ident.ChannelCookie{}, err
	}
	if err := r.require(16); err != nil {
		return ident.ChannelCookie{}, err
	}
	var c [16]byte
	copy(c[:], r.data[r.pos:r.pos+16])
	r.pos += 16
	return ident.ChannelCookie(c), nil
}

// ReadVec reads a Vec header and invokes decode(i, r) for each of the n
// elements it reports.
func (r *Reader) ReadVec(decode func(i int, r *Reader) error) (int, error) {
	if err := r.expect(KindVec); err != nil {
		return 0, err
	}
	n, err := r.readVarint()
	if err != nil {
		return 0, err
	}
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.leave()
	for i := 0; i < int(n); i++ {
		if err := decode(i, r); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// ReadMap reads a Map header and invokes decode(i, r) for each of the n
// key/value pairs it reports; decode is responsible for reading both the
// key and the value in order.
func (r *Reader) ReadMap(decode func(i int, r *Reader) error) (int, error) {
	if err := r.expect(KindMap); err != nil {
		return 0, err
	}
	n, err := r.readVarint()
	if err != nil {
		return 0, err
	}
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.leave()
	for i := 0; i < int(n); i++ {
		if err := decode(i, r); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// ReadSet reads a Set header and invokes decode(i, r) for each element.
func (r *Reader) ReadSet(decode func(i int, r *Reader) error) (int, error) {
	if err := r.expect(KindSet); err != nil {
		return 0, err
	}
	n, err := r.readVarint()
	if err != nil {
		return 0, err
	}
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.leave()
	for i := 0; i < int(n); i++ {
		if err := decode(i, r); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// checkKeyKind validates that the next value's kind is permitted as a map
// key or set element, without consuming it.
func (r *Reader) checkKeyKind() error {
	k, err := r.peekKind()
	if err != nil {
		return err
	}
	if !k.IsKeyKind() {
		return ErrInvalidKeyKind
	}
	return nil
}

// StructReader exposes a decoded Struct's tagged fields, letting callers
// Take() the ones they recognize and preserve the rest as Unknown().
type StructReader struct {
	fields map[uint32]SerializedValue
	order  []uint32
}

// ReadStruct decodes a Struct's field count and every field's raw
// (self-describing) encoding, without interpreting field contents.
func (r *Reader) ReadStruct() (*StructReader, error) {
	if err := r.expect(KindStruct); err != nil {
		return nil, err
	}
	n, err := r.readVarint()
	if err != nil {
		return nil, err
	}
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	sr := &StructReader{fields: make(map[uint32]SerializedValue, n), order: make([]uint32, 0, n)}
	for i := uint32(0); i < n; i++ {
		id, err := r.readVarint()
		if err != nil {
			return nil, err
		}
		raw, err := readRawValue(r)
		if err != nil {
			return nil, err
		}
		sr.fields[id] = raw
		sr.order = append(sr.order, id)
	}
	return sr, nil
}

// Take extracts and removes a known field, returning its raw encoding and
// whether it was present. Decode it with NewReader(raw).
func (sr *StructReader) Take(id uint32) (SerializedValue, bool) {
	raw, ok := sr.fields[id]
	if ok {
		delete(sr.fields, id)
	}
	return raw, ok
}

// Unknown returns every field not yet Take()n, keyed by field id, for
// forward-compatible re-emission. Being a map, it does not keep the
// fields' encounter order.
func (sr *StructReader) Unknown() map[uint32]SerializedValue {
	out := make(map[uint32]SerializedValue, len(sr.fields))
	for id, raw := range sr.fields {
		out[id] = raw
	}
	return out
}

// ReadEnum decodes an Enum's discriminant and its raw payload value,
// without interpreting the payload. Unrecognized variants can be held as
// (variant, raw) and re-emitted byte-for-byte via Writer.WriteEnumRaw.
func (r *Reader) ReadEnum() (variant uint32, payload SerializedValue, err error) {
	if err = r.expect(KindEnum); err != nil {
		return 0, nil, err
	}
	variant, err = r.readVarint()
	if err != nil {
		return 0, nil, err
	}
	if err = r.enter(); err != nil {
		return 0, nil, err
	}
	defer r.leave()
	payload, err = readRawValue(r)
	if err != nil {
		return 0, nil, err
	}
	return variant, payload, nil
}

// readRawValue reads one complete self-describing value starting at the
// reader's current position (kind byte plus payload, recursing through
// containers) and returns the raw bytes spanned, advancing pos past it.
// This is what lets unknown struct fields and enum variants survive a
// decode/re-encode round trip unchanged.
func readRawValue(r *Reader) (SerializedValue, error) {
	start := r.pos
	k, err := r.peekKind()
	if err != nil {
		return nil, err
	}

	if n, ok := k.fixedSize(); ok {
		if err := r.require(1 + n); err != nil {
			return nil, err
		}
		r.pos += 1 + n
		return SerializedValue(r.data[start:r.pos]), nil
	}

	switch k {
	case KindSome:
		r.pos++
		if err := r.enter(); err != nil {
			return nil, err
		}
		_, err := readRawValue(r)
		r.leave()
		if err != nil {
			return nil, err
		}
	case KindString, KindBytes:
		r.pos++
		n, err := r.readVarint()
		if err != nil {
			return nil, err
		}
		if err := r.require(int(n)); err != nil {
			return nil, err
		}
		r.pos += int(n)
	case KindVec, KindSet:
		r.pos++
		n, err := r.readVarint()
		if err != nil {
			return nil, err
		}
		if err := r.enter(); err != nil {
			return nil, err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := readRawValue(r); err != nil {
				r.leave()
				return nil, err
			}
		}
		r.leave()
	case KindMap:
		r.pos++
		n, err := r.readVarint()
		if err != nil {
			return nil, err
		}
		if err := r.enter(); err != nil {
			return nil, err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := readRawValue(r); err != nil {
				r.leave()
				return nil, err
			}
			if _, err := readRawValue(r); err != nil {
				r.leave()
				return nil, err
			}
		}
		r.leave()
	case KindStruct:
		r.pos++
		n, err := r.readVarint()
		if err != nil {
			return nil, err
		}
		if err := r.enter(); err != nil {
			return nil, err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := r.readVarint(); err != nil {
				r.leave()
				return nil, err
			}
			if _, err := readRawValue(r); err != nil {
				r.leave()
				return nil, err
			}
		}
		r.leave()
	case KindEnum:
		r.pos++
		if _, err := r.readVarint(); err != nil {
			return nil, err
		}
		if err := r.enter(); err != nil {
			return nil, err
		}
		_, err := readRawValue(r)
		r.leave()
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidSerialization
	}

	return SerializedValue(r.data[start:r.pos]), nil
}
