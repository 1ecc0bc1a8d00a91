package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// BusListenerScope selects which bus events a started bus listener
// receives: the objects/services that already existed (Current), only
// ones created from now on (New), or both (All) (spec.md §3.6).
type BusListenerScope byte

const (
	BusListenerScopeCurrent BusListenerScope = iota
	BusListenerScopeNew
	BusListenerScopeAll
)

func (w *FieldWriter) BusListenerScope(s BusListenerScope) { w.U8(byte(s)) }

func (r *FieldReader) BusListenerScope() (BusListenerScope, error) {
	v, err := r.U8()
	return BusListenerScope(v), err
}

// BusListenerFilter narrows the events a bus listener receives to a
// specific object uuid and/or service uuid; a nil field means "any".
type BusListenerFilter struct {
	Object  *ident.ObjectUuid
	Service *ident.ServiceUuid
}

func (w *FieldWriter) BusListenerFilter(f BusListenerFilter) {
	if f.Object == nil {
		w.Bool(false)
	} else {
		w.Bool(true)
		w.ObjectUuid(*f.Object)
	}
	if f.Service == nil {
		w.Bool(false)
	} else {
		w.Bool(true)
		w.ServiceUuid(*f.Service)
	}
}

func (r *FieldReader) BusListenerFilter() (BusListenerFilter, error) {
	var f BusListenerFilter
	hasObj, err := r.Bool()
	if err != nil {
		return f, err
	}
	if hasObj {
		o, err := r.ObjectUuid()
		if err != nil {
			return f, err
		}
		f.Object = &o
	}
	hasSvc, err := r.Bool()
	if err != nil {
		return f, err
	}
	if hasSvc {
		s, err := r.ServiceUuid()
		if err != nil {
			return f, err
		}
		f.Service = &s
	}
	return f, nil
}

// BusEventKind discriminates the four bus event shapes.
type BusEventKind byte

const (
	BusEventObjectCreated BusEventKind = iota
	BusEventObjectDestroyed
	BusEventServiceCreated
	BusEventServiceDestroyed
)

// BusEvent is one object or service lifecycle notification delivered to a
// started bus listener.
type BusEvent struct {
	Kind    BusEventKind
	Object  ident.ObjectId
	Service ident.ServiceId // valid when Kind is one of the Service* kinds
}

func (w *FieldWriter) BusEvent(e BusEvent) {
	w.U8(byte(e.Kind))
	w.ObjectId(e.Object)
	if e.Kind == BusEventServiceCreated || e.Kind == BusEventServiceDestroyed {
		w.ServiceId(e.Service)
	}
}

func (r *FieldReader) BusEvent() (BusEvent, error) {
	tag, err := r.U8()
	if err != nil {
		return BusEvent{}, err
	}
	e := BusEvent{Kind: BusEventKind(tag)}
	e.Object, err = r.ObjectId()
	if err != nil {
		return BusEvent{}, err
	}
	if e.Kind == BusEventServiceCreated || e.Kind == BusEventServiceDestroyed {
		e.Service, err = r.ServiceId()
		if err != nil {
			return BusEvent{}, err
		}
	}
	return e, nil
}

type CreateBusListener struct {
	Serial ident.Serial
}

func (m *CreateBusListener) Kind() Kind                        { return KindCreateBusListener }
func (m *CreateBusListener) ValueField() value.SerializedValue { return nil }
func (m *CreateBusListener) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	return w.Bytes()
}

func decodeCreateBusListener(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &CreateBusListener{Serial: ident.Serial(serial)}, nil
}

type CreateBusListenerReply struct {
	Serial ident.Serial
	Cookie ident.BusListenerCookie
}

func (m *CreateBusListenerReply) Kind() Kind                        { return KindCreateBusListenerReply }
func (m *CreateBusListenerReply) ValueField() value.SerializedValue { return nil }
func (m *CreateBusListenerReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.BusListenerCookie(m.Cookie)
	return w.Bytes()
}

func decodeCreateBusListenerReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	return &CreateBusListenerReply{Serial: ident.Serial(serial), Cookie: c}, nil
}

type DestroyBusListener struct {
	Serial ident.Serial
	Cookie ident.BusListenerCookie
}

func (m *DestroyBusListener) Kind() Kind                        { return KindDestroyBusListener }
func (m *DestroyBusListener) ValueField() value.SerializedValue { return nil }
func (m *DestroyBusListener) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.BusListenerCookie(m.Cookie)
	return w.Bytes()
}

func decodeDestroyBusListener(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	return &DestroyBusListener{Serial: ident.Serial(serial), Cookie: c}, nil
}

type DestroyBusListenerResult byte

const (
	DestroyBusListenerOk DestroyBusListenerResult = iota
	DestroyBusListenerInvalidBusListener
)

type DestroyBusListenerReply struct {
	Serial ident.Serial
	Result DestroyBusListenerResult
}

func (m *DestroyBusListenerReply) Kind() Kind                        { return KindDestroyBusListenerReply }
func (m *DestroyBusListenerReply) ValueField() value.SerializedValue { return nil }
func (m *DestroyBusListenerReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeDestroyBusListenerReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &DestroyBusListenerReply{Serial: ident.Serial(serial), Result: DestroyBusListenerResult(tag)}, nil
}

// AddBusListenerFilter, RemoveBusListenerFilter and ClearBusListenerFilters
// have no reply: the broker applies them in order with the connection's
// other messages, whether or not the listener is started.
type AddBusListenerFilter struct {
	Cookie ident.BusListenerCookie
	Filter BusListenerFilter
}

func (m *AddBusListenerFilter) Kind() Kind                        { return KindAddBusListenerFilter }
func (m *AddBusListenerFilter) ValueField() value.SerializedValue { return nil }
func (m *AddBusListenerFilter) EncodeFields() []byte {
	w := NewFieldWriter()
	w.BusListenerCookie(m.Cookie)
	w.BusListenerFilter(m.Filter)
	return w.Bytes()
}

func decodeAddBusListenerFilter(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	f, err := fr.BusListenerFilter()
	if err != nil {
		return nil, err
	}
	return &AddBusListenerFilter{Cookie: c, Filter: f}, nil
}

type RemoveBusListenerFilter struct {
	Cookie ident.BusListenerCookie
	Filter BusListenerFilter
}

func (m *RemoveBusListenerFilter) Kind() Kind                        { return KindRemoveBusListenerFilter }
func (m *RemoveBusListenerFilter) ValueField() value.SerializedValue { return nil }
func (m *RemoveBusListenerFilter) EncodeFields() []byte {
	w := NewFieldWriter()
	w.BusListenerCookie(m.Cookie)
	w.BusListenerFilter(m.Filter)
	return w.Bytes()
}

func decodeRemoveBusListenerFilter(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	f, err := fr.BusListenerFilter()
	if err != nil {
		return nil, err
	}
	return &RemoveBusListenerFilter{Cookie: c, Filter: f}, nil
}

type ClearBusListenerFilters struct {
	Cookie ident.BusListenerCookie
}

func (m *ClearBusListenerFilters) Kind() Kind                        { return KindClearBusListenerFilters }
func (m *ClearBusListenerFilters) ValueField() value.SerializedValue { return nil }
func (m *ClearBusListenerFilters) EncodeFields() []byte {
	w := NewFieldWriter()
	w.BusListenerCookie(m.Cookie)
	return w.Bytes()
}

func decodeClearBusListenerFilters(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	return &ClearBusListenerFilters{Cookie: c}, nil
}

type StartBusListener struct {
	Serial ident.Serial
	Cookie ident.BusListenerCookie
	Scope  BusListenerScope
}

func (m *StartBusListener) Kind() Kind                        { return KindStartBusListener }
func (m *StartBusListener) ValueField() value.SerializedValue { return nil }
func (m *StartBusListener) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.BusListenerCookie(m.Cookie)
	w.BusListenerScope(m.Scope)
	return w.Bytes()
}

func decodeStartBusListener(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	scope, err := fr.BusListenerScope()
	if err != nil {
		return nil, err
	}
	return &StartBusListener{Serial: ident.Serial(serial), Cookie: c, Scope: scope}, nil
}

type StartBusListenerResult byte

const (
	StartBusListenerOk StartBusListenerResult = iota
	StartBusListenerInvalidBusListener
	StartBusListenerAlreadyStarted
)

type StartBusListenerReply struct {
	Serial ident.Serial
	Result StartBusListenerResult
}

func (m *StartBusListenerReply) Kind() Kind                        { return KindStartBusListenerReply }
func (m *StartBusListenerReply) ValueField() value.SerializedValue { return nil }
func (m *StartBusListenerReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeStartBusListenerReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &StartBusListenerReply{Serial: ident.Serial(serial), Result: StartBusListenerResult(tag)}, nil
}

type StopBusListener struct {
	Serial ident.Serial
	Cookie ident.BusListenerCookie
}

func (m *StopBusListener) Kind() Kind                        { return KindStopBusListener }
func (m *StopBusListener) ValueField() value.SerializedValue { return nil }
func (m *StopBusListener) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.BusListenerCookie(m.Cookie)
	return w.Bytes()
}

func decodeStopBusListener(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	return &StopBusListener{Serial: ident.Serial(serial), Cookie: c}, nil
}

type StopBusListenerResult byte

const (
	StopBusListenerOk StopBusListenerResult = iota
	StopBusListenerInvalidBusListener
	StopBusListenerNotStarted
)

type StopBusListenerReply struct {
	Serial ident.Serial
	Result StopBusListenerResult
}

func (m *StopBusListenerReply) Kind() Kind                        { return KindStopBusListenerReply }
func (m *StopBusListenerReply) ValueField() value.SerializedValue { return nil }
func (m *StopBusListenerReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeStopBusListenerReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &StopBusListenerReply{Serial: ident.Serial(serial), Result: StopBusListenerResult(tag)}, nil
}

// EmitBusEvent delivers one matching bus event to a started listener.
type EmitBusEvent struct {
	Cookie ident.BusListenerCookie
	Event  BusEvent
}

func (m *EmitBusEvent) Kind() Kind                        { return KindEmitBusEvent }
func (m *EmitBusEvent) ValueField() value.SerializedValue { return nil }
func (m *EmitBusEvent) EncodeFields() []byte {
	w := NewFieldWriter()
	w.BusListenerCookie(m.Cookie)
	w.BusEvent(m.Event)
	return w.Bytes()
}

func decodeEmitBusEvent(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	e, err := fr.BusEvent()
	if err != nil {
		return nil, err
	}
	return &EmitBusEvent{Cookie: c, Event: e}, nil
}

// BusListenerCurrentFinished marks the end of the Current-scope snapshot
// batch, so a Discoverer knows when its initial enumeration is complete.
type BusListenerCurrentFinished struct {
	Cookie ident.BusListenerCookie
}

func (m *BusListenerCurrentFinished) Kind() Kind                        { return KindBusListenerCurrentFinished }
func (m *BusListenerCurrentFinished) ValueField() value.SerializedValue { return nil }
func (m *BusListenerCurrentFinished) EncodeFields() []byte {
	w := NewFieldWriter()
	w.BusListenerCookie(m.Cookie)
	return w.Bytes()
}

func decodeBusListenerCurrentFinished(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.BusListenerCookie()
	if err != nil {
		return nil, err
	}
	return &BusListenerCurrentFinished{Cookie: c}, nil
}

func init() {
	register(KindCreateBusListener, decodeCreateBusListener)
	register(KindCreateBusListenerReply, decodeCreateBusListenerReply)
	register(KindDestroyBusListener, decodeDestroyBusListener)
	register(KindDestroyBusListenerReply, decodeDestroyBusListenerReply)
	register(KindAddBusListenerFilter, decodeAddBusListenerFilter)
	register(KindRemoveBusListenerFilter, decodeRemoveBusListenerFilter)
	register(KindClearBusListenerFilters, decodeClearBusListenerFilters)
	register(KindStartBusListener, decodeStartBusListener)
	register(KindStartBusListenerReply, decodeStartBusListenerReply)
	register(KindStopBusListener, decodeStopBusListener)
	register(KindStopBusListenerReply, decodeStopBusListenerReply)
	register(KindEmitBusEvent, decodeEmitBusEvent)
	register(KindBusListenerCurrentFinished, decodeBusListenerCurrentFinished)
}
