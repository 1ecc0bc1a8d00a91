package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// CallFunction2 invokes a function on a service. Value carries the call
// arguments and is always present (spec.md §3.3). Version, when present,
// must match the service's current ServiceInfo.Version or the broker
// replies InvalidFunction immediately without dispatching (spec.md §4.3,
// §8 scenario 3).
type CallFunction2 struct {
	Serial   ident.Serial
	Service  ident.ServiceCookie
	Function uint32
	Version  *uint32
	Value    value.SerializedValue
}

func (m *CallFunction2) Kind() Kind                        { return KindCallFunction2 }
func (m *CallFunction2) ValueField() value.SerializedValue { return m.Value }
func (m *CallFunction2) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ServiceCookie(m.Service)
	w.U32(m.Function)
	w.OptU32(m.Version)
	return w.Bytes()
}

func decodeCallFunction2(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	svc, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	fn, err := fr.U32()
	if err != nil {
		return nil, err
	}
	version, err := fr.OptU32()
	if err != nil {
		return nil, err
	}
	return &CallFunction2{Serial: ident.Serial(serial), Service: svc, Function: fn, Version: version, Value: val}, nil
}

// CallFunctionResult discriminates a CallFunctionReply's outcome. Ok and
// Err carry a value; the rest are broker-detected failures that never
// reach the callee.
type CallFunctionResult byte

const (
	CallFunctionOk CallFunctionResult = iota
	CallFunctionErr
	CallFunctionAborted
	CallFunctionInvalidService
	CallFunctionInvalidFunction
	CallFunctionInvalidArgs
)

type CallFunctionReply struct {
	Serial ident.Serial
	Result CallFunctionResult
	Value  value.SerializedValue // valid when Result is Ok or Err
}

func (m *CallFunctionReply) Kind() Kind { return KindCallFunctionReply }
func (m *CallFunctionReply) ValueField() value.SerializedValue {
	if m.Result == CallFunctionOk || m.Result == CallFunctionErr {
		return m.Value
	}
	return nil
}
func (m *CallFunctionReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeCallFunctionReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &CallFunctionReply{Serial: ident.Serial(serial), Result: CallFunctionResult(tag)}
	if m.Result == CallFunctionOk || m.Result == CallFunctionErr {
		m.Value = val
	}
	return m, nil
}

// AbortFunctionCall is sent by the caller to tell the broker (and, if it
// has not yet replied, the callee) that it is no longer interested in the
// result of a prior CallFunction2.
type AbortFunctionCall struct {
	Serial ident.Serial
}

func (m *AbortFunctionCall) Kind() Kind                        { return KindAbortFunctionCall }
func (m *AbortFunctionCall) ValueField() value.SerializedValue { return nil }
func (m *AbortFunctionCall) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	return w.Bytes()
}

func decodeAbortFunctionCall(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &AbortFunctionCall{Serial: ident.Serial(serial)}, nil
}

func init() {
	register(KindCallFunction2, decodeCallFunction2)
	register(KindCallFunctionReply, decodeCallFunctionReply)
	register(KindAbortFunctionCall, decodeAbortFunctionCall)
}
