package value

import (
	"encoding/binary"
	"math"

	"github.com/aldrin-go/aldrin/ident"
)

// Writer builds a single self-describing SerializedValue. It is not safe
// for concurrent use; callers construct one Writer per value.
type Writer struct {
	buf   []byte
	depth int
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated encoding. Exactly one top-level Write*
// call must have been made before calling Bytes.
func (w *Writer) Bytes() SerializedValue {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return SerializedValue(out)
}

func (w *Writer) enter() error {
	w.depth++
	if w.depth > MaxDepth {
		return ErrDepthExceeded
	}
	return nil
}

func (w *Writer) leave() { w.depth-- }

func (w *Writer) kind(k Kind) { w.buf = append(w.buf, byte(k)) }

func (w *Writer) WriteNone() { w.kind(KindNone) }

// WriteSome writes the Some wrapper and then the inner value via encode.
func (w *Writer) WriteSome(encode func(*Writer) error) error {
	w.kind(KindSome)
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	return encode(w)
}

func (w *Writer) WriteBool(v bool) {
	w.kind(KindBool)
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteU8(v uint8) {
	w.kind(KindU8)
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteI8(v int8) {
	w.kind(KindI8)
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) WriteU16(v uint16) {
	w.kind(KindU16)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	w.kind(KindU32)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	w.kind(KindU64)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) {
	w.kind(KindF32)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteF64(v float64) {
	w.kind(KindF64)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteString(s string) {
	w.kind(KindString)
	w.buf = appendVarint(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteBytes(b []byte) {
	w.kind(KindBytes)
	w.buf = appendVarint(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteUuid(u [16]byte) {
	w.kind(KindUuid)
	w.buf = append(w.buf, u[:]...)
}

func (w *Writer) WriteObjectId(id ident.ObjectId) {
	w.kind(KindObjectId)
	uu := id.Uuid.Bytes()
	cc := id.Cookie.Bytes()
	w.buf = append(w.buf, uu[:]...)
	w.buf = append(w.buf, cc[:]...)
}

func (w *Writer) WriteServiceId(id ident.ServiceId) {
	w.kind(KindServiceId)
	ou := id.Object.Uuid.Bytes()
	oc := id.Object.Cookie.Bytes()
	su := id.Uuid.Bytes()
	sc := id.Cookie.Bytes()
	w.buf = append(w.buf, ou[:]...)
	w.buf = append(w.buf, oc[:]...)
	w.buf = append(w.buf, su[:]...)
	w.buf = append(w.buf, sc[:]...)
}

func (w *Writer) WriteSender(c ident.ChannelCookie) {
	w.kind(KindSender)
	b := c.Bytes()
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteReceiver(c ident.ChannelCookie) {
	w.kind(KindReceiver)
	b := c.Bytes()
	w.buf = append(w.buf, b[:]...)
}

// WriteVec writes a Vec of n elements, invoking encode(i, w) for each.
func (w *Writer) WriteVec(n int, encode func(i int, w *Writer) error) error {
	w.kind(KindVec)
	w.buf = appendVarint(w.buf, uint32(n))
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	for i := 0; i < n; i++ {
		if err := encode(i, w); err != nil {
			return err
		}
	}
	return nil
}

// WriteMap writes a Map of n entries. encode(i, w) writes entry i's key,
// which must be a key-kind value (validated only on decode), and then its
// paired value.
func (w *Writer) WriteMap(n int, encode func(i int, w *Writer) error) error {
	w.kind(KindMap)
	w.buf = appendVarint(w.buf, uint32(n))
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	for i := 0; i < n; i++ {
		if err := encode(i, w); err != nil {
			return err
		}
	}
	return nil
}

// WriteSet writes a Set of n key-kind elements.
func (w *Writer) WriteSet(n int, encode func(i int, w *Writer) error) error {
	w.kind(KindSet)
	w.buf = appendVarint(w.buf, uint32(n))
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	for i := 0; i < n; i++ {
		if err := encode(i, w); err != nil {
			return err
		}
	}
	return nil
}

// StructWriter emits a Struct's tagged fields after WriteStruct has written
// the field count.
type StructWriter struct{ w *Writer }

// Field writes one field: its numeric id, then the value produced by encode.
func (fw *StructWriter) Field(id uint32, encode func(*Writer) error) error {
	fw.w.buf = appendVarint(fw.w.buf, id)
	return encode(fw.w)
}

// RawField re-emits a field whose raw encoding (kind byte + payload) was
// captured during decode as an unknown field, preserving it byte-for-byte.
func (fw *StructWriter) RawField(id uint32, raw SerializedValue) {
	fw.w.buf = appendVarint(fw.w.buf, id)
	fw.w.buf = append(fw.w.buf, raw...)
}

// WriteStruct writes a Struct with fieldCount fields (known plus any
// preserved-unknown fields the caller re-emits via fn).
func (w *Writer) WriteStruct(fieldCount int, fn func(*StructWriter) error) error {
	w.kind(KindStruct)
	w.buf = appendVarint(w.buf, uint32(fieldCount))
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	return fn(&StructWriter{w: w})
}

// WriteEnum writes an Enum: its variant discriminant, then the payload
// produced by encode.
func (w *Writer) WriteEnum(variant uint32, encode func(*Writer) error) error {
	w.kind(KindEnum)
	w.buf = appendVarint(w.buf, variant)
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	return encode(w)
}

// WriteEnumRaw re-emits an enum variant whose payload was captured during
// decode as unrecognized, preserving it byte-for-byte.
func (w *Writer) WriteEnumRaw(variant uint32, raw SerializedValue) {
	w.kind(KindEnum)
	w.buf = appendVarint(w.buf, variant)
	w.buf = append(w.buf, raw...)
}
