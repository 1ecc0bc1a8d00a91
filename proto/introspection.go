package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// RegisterIntrospection publishes a type's schema description to the
// broker under its TypeId, so later QueryIntrospection calls (from any
// connection) can retrieve it without the originating client being
// reachable (spec.md §3.8). Value carries the schema description itself,
// opaque to the broker.
type RegisterIntrospection struct {
	TypeId ident.TypeId
	Value  value.SerializedValue
}

func (m *RegisterIntrospection) Kind() Kind                        { return KindRegisterIntrospection }
func (m *RegisterIntrospection) ValueField() value.SerializedValue { return m.Value }
func (m *RegisterIntrospection) EncodeFields() []byte {
	w := NewFieldWriter()
	w.TypeId(m.TypeId)
	return w.Bytes()
}

func decodeRegisterIntrospection(fr *FieldReader, val value.SerializedValue) (Message, error) {
	t, err := fr.TypeId()
	if err != nil {
		return nil, err
	}
	return &RegisterIntrospection{TypeId: t, Value: val}, nil
}

type QueryIntrospection struct {
	Serial ident.Serial
	TypeId ident.TypeId
}

func (m *QueryIntrospection) Kind() Kind                        { return KindQueryIntrospection }
func (m *QueryIntrospection) ValueField() value.SerializedValue { return nil }
func (m *QueryIntrospection) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.TypeId(m.TypeId)
	return w.Bytes()
}

func decodeQueryIntrospection(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	t, err := fr.TypeId()
	if err != nil {
		return nil, err
	}
	return &QueryIntrospection{Serial: ident.Serial(serial), TypeId: t}, nil
}

type QueryIntrospectionResult byte

const (
	QueryIntrospectionOk QueryIntrospectionResult = iota
	QueryIntrospectionUnknownTypeId
)

type QueryIntrospectionReply struct {
	Serial ident.Serial
	Result QueryIntrospectionResult
	Value  value.SerializedValue // valid when Result == QueryIntrospectionOk
}

func (m *QueryIntrospectionReply) Kind() Kind { return KindQueryIntrospectionReply }
func (m *QueryIntrospectionReply) ValueField() value.SerializedValue {
	if m.Result == QueryIntrospectionOk {
		return m.Value
	}
	return nil
}
func (m *QueryIntrospectionReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeQueryIntrospectionReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &QueryIntrospectionReply{Serial: ident.Serial(serial), Result: QueryIntrospectionResult(tag)}
	if m.Result == QueryIntrospectionOk {
		m.Value = val
	}
	return m, nil
}

func init() {
	register(KindRegisterIntrospection, decodeRegisterIntrospection)
	register(KindQueryIntrospection, decodeQueryIntrospection)
	register(KindQueryIntrospectionReply, decodeQueryIntrospectionReply)
}
