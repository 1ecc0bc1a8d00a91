package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// CreateObject asks the broker to create an object with the given uuid,
// minting a fresh cookie for this incarnation (spec.md §3.1).
type CreateObject struct {
	Serial ident.Serial
	Uuid   ident.ObjectUuid
}

func (m *CreateObject) Kind() Kind                        { return KindCreateObject }
func (m *CreateObject) ValueField() value.SerializedValue { return nil }
func (m *CreateObject) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ObjectUuid(m.Uuid)
	return w.Bytes()
}

func decodeCreateObject(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	u, err := fr.ObjectUuid()
	if err != nil {
		return nil, err
	}
	return &CreateObject{Serial: ident.Serial(serial), Uuid: u}, nil
}

type CreateObjectResult byte

const (
	CreateObjectOk CreateObjectResult = iota
	CreateObjectDuplicateObject
)

type CreateObjectReply struct {
	Serial ident.Serial
	Result CreateObjectResult
	Cookie ident.ObjectCookie // valid when Result == CreateObjectOk
}

func (m *CreateObjectReply) Kind() Kind                        { return KindCreateObjectReply }
func (m *CreateObjectReply) ValueField() value.SerializedValue { return nil }
func (m *CreateObjectReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	if m.Result == CreateObjectOk {
		w.ObjectCookie(m.Cookie)
	}
	return w.Bytes()
}

func decodeCreateObjectReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &CreateObjectReply{Serial: ident.Serial(serial), Result: CreateObjectResult(tag)}
	if m.Result == CreateObjectOk {
		c, err := fr.ObjectCookie()
		if err != nil {
			return nil, err
		}
		m.Cookie = c
	}
	return m, nil
}

// DestroyObject asks the broker to destroy the object identified by cookie.
type DestroyObject struct {
	Serial ident.Serial
	Cookie ident.ObjectCookie
}

func (m *DestroyObject) Kind() Kind                        { return KindDestroyObject }
func (m *DestroyObject) ValueField() value.SerializedValue { return nil }
func (m *DestroyObject) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ObjectCookie(m.Cookie)
	return w.Bytes()
}

func decodeDestroyObject(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.ObjectCookie()
	if err != nil {
		return nil, err
	}
	return &DestroyObject{Serial: ident.Serial(serial), Cookie: c}, nil
}

type DestroyObjectResult byte

const (
	DestroyObjectOk DestroyObjectResult = iota
	DestroyObjectInvalidObject
	DestroyObjectForeignObject
)

type DestroyObjectReply struct {
	Serial ident.Serial
	Result DestroyObjectResult
}

func (m *DestroyObjectReply) Kind() Kind                        { return KindDestroyObjectReply }
func (m *DestroyObjectReply) ValueField() value.SerializedValue { return nil }
func (m *DestroyObjectReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeDestroyObjectReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &DestroyObjectReply{Serial: ident.Serial(serial), Result: DestroyObjectResult(tag)}, nil
}

func init() {
	register(KindCreateObject, decodeCreateObject)
	register(KindCreateObjectReply, decodeCreateObjectReply)
	register(KindDestroyObject, decodeDestroyObject)
	register(KindDestroyObjectReply, decodeDestroyObjectReply)
}
