package proto

import (
	"encoding/binary"

	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
	"github.com/google/uuid"
)

// FieldWriter builds a message's structural fields: the parts of a
// payload that are NOT the single embedded generic value (which, per
// spec.md §4.1, is framed separately with its own length prefix and is
// already self-describing via the value package's Kind byte). Structural
// fields — serials, cookies, uuids, small enums — use a simpler,
// non-self-describing encoding fixed by each message's own schema.
type FieldWriter struct{ buf []byte }

func NewFieldWriter() *FieldWriter { return &FieldWriter{buf: make([]byte, 0, 32)} }

func (w *FieldWriter) Bytes() []byte { return w.buf }

func (w *FieldWriter) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *FieldWriter) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *FieldWriter) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *FieldWriter) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *FieldWriter) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Varint appends v as an LEB128 varint, the same convention the value
// codec uses for lengths and field ids.
func (w *FieldWriter) Varint(v uint32) { w.buf = value.AppendVarint(w.buf, v) }

func (w *FieldWriter) UUID(b [16]byte) { w.buf = append(w.buf, b[:]...) }

func (w *FieldWriter) String(s string) {
	w.Varint(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *FieldWriter) Blob(b []byte) {
	w.Varint(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// OptU32 writes a presence byte followed by the value when present.
func (w *FieldWriter) OptU32(v *uint32) {
	if v == nil {
		w.Bool(false)
		return
	}
	w.Bool(true)
	w.U32(*v)
}

func (w *FieldWriter) OptUUID(v *[16]byte) {
	if v == nil {
		w.Bool(false)
		return
	}
	w.Bool(true)
	w.UUID(*v)
}

func (w *FieldWriter) OptValue(v value.SerializedValue) {
	if v == nil {
		w.Bool(false)
		return
	}
	w.Bool(true)
	w.Blob(v)
}

func (w *FieldWriter) ObjectUuid(u ident.ObjectUuid)     { w.UUID(u.Bytes()) }
func (w *FieldWriter) ObjectCookie(c ident.ObjectCookie) { w.UUID(c.Bytes()) }
func (w *FieldWriter) ServiceUuid(u ident.ServiceUuid)   { w.UUID(u.Bytes()) }
func (w *FieldWriter) ServiceCookie(c ident.ServiceCookie) {
	w.UUID(c.Bytes())
}
func (w *FieldWriter) ChannelCookie(c ident.ChannelCookie) { w.UUID(c.Bytes()) }
func (w *FieldWriter) BusListenerCookie(c ident.BusListenerCookie) {
	w.UUID(c.Bytes())
}
func (w *FieldWriter) TypeId(t ident.TypeId) { w.UUID(t.Bytes()) }

func (w *FieldWriter) ObjectId(o ident.ObjectId) {
	w.ObjectUuid(o.Uuid)
	w.ObjectCookie(o.Cookie)
}

func (w *FieldWriter) ServiceId(s ident.ServiceId) {
	w.ObjectId(s.Object)
	w.ServiceUuid(s.Uuid)
	w.ServiceCookie(s.Cookie)
}

// OptTypeId writes a presence byte followed by the type id when present.
func (w *FieldWriter) OptTypeId(t *ident.TypeId) {
	if t == nil {
		w.Bool(false)
		return
	}
	w.Bool(true)
	w.TypeId(*t)
}

// FieldReader decodes a message's structural fields; see FieldWriter.
type FieldReader struct {
	data []byte
	pos  int
}

func NewFieldReader(data []byte) *FieldReader { return &FieldReader{data: data} }

// Remaining reports how many bytes are left unread.
func (r *FieldReader) Remaining() int { return len(r.data) - r.pos }

func (r *FieldReader) require(n int) error {
	if r.pos+n > len(r.data) {
		return ErrUnexpectedEoi
	}
	return nil
}

func (r *FieldReader) U8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *FieldReader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

func (r *FieldReader) U16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *FieldReader) U32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *FieldReader) U64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *FieldReader) Varint() (uint32, error) {
	v, n, err := value.ReadVarint(r.data, r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *FieldReader) UUID() ([16]byte, error) {
	var out [16]byte
	if err := r.require(16); err != nil {
		return out, err
	}
	copy(out[:], r.data[r.pos:r.pos+16])
	r.pos += 16
	return out, nil
}

func (r *FieldReader) String() (string, error) {
	n, err := r.Varint()
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

func (r *FieldReader) Blob() ([]byte, error) {
	n, err := r.Varint()
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

func (r *FieldReader) OptU32() (*uint32, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return nil, err
	}
	v, err := r.U32()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *FieldReader) OptUUID() (*[16]byte, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return nil, err
	}
	v, err := r.UUID()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *FieldReader) OptValue() (value.SerializedValue, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return nil, nil
	}
	return r.Blob()
}

func (r *FieldReader) ObjectUuid() (ident.ObjectUuid, error) {
	b, err := r.UUID()
	return ident.ObjectUuid(uuid.UUID(b)), err
}

func (r *FieldReader) ObjectCookie() (ident.ObjectCookie, error) {
	b, err := r.UUID()
	return ident.ObjectCookie(uuid.UUID(b)), err
}

func (r *FieldReader) ServiceUuid() (ident.ServiceUuid, error) {
	b, err := r.UUID()
	return ident.ServiceUuid(uuid.UUID(b)), err
}

func (r *FieldReader) ServiceCookie() (ident.ServiceCookie, error) {
	b, err := r.UUID()
	return ident.ServiceCookie(uuid.UUID(b)), err
}

func (r *FieldReader) ChannelCookie() (ident.ChannelCookie, error) {
	b, err := r.UUID()
	return ident.ChannelCookie(uuid.UUID(b)), err
}

func (r *FieldReader) BusListenerCookie() (ident.BusListenerCookie, error) {
	b, err := r.UUID()
	return ident.BusListenerCookie(uuid.UUID(b)), err
}

func (r *FieldReader) TypeId() (ident.TypeId, error) {
	b, err := r.UUID()
	return ident.TypeId(uuid.UUID(b)), err
}

func (r *FieldReader) OptTypeId() (*ident.TypeId, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return nil, err
	}
	t, err := r.TypeId()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *FieldReader) ObjectId() (ident.ObjectId, error) {
	u, err := r.ObjectUuid()
	if err != nil {
		return ident.ObjectId{}, err
	}
	c, err := r.ObjectCookie()
	if err != nil {
		return ident.ObjectId{}, err
	}
	return ident.ObjectId{Uuid: u, Cookie: c}, nil
}

func (r *FieldReader) ServiceId() (ident.ServiceId, error) {
	o, err := r.ObjectId()
	if err != nil {
		return ident.ServiceId{}, err
	}
	su, err := r.ServiceUuid()
	if err != nil {
		return ident.ServiceId{}, err
	}
	sc, err := r.ServiceCookie()
	if err != nil {
		return ident.ServiceId{}, err
	}
	return ident.ServiceId{Object: o, Uuid: su, Cookie: sc}, nil
}
