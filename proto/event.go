package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// SubscribeEvent asks the broker to forward a single event id emitted on
// a service to this connection (spec.md §3.4).
type SubscribeEvent struct {
	Serial  ident.Serial
	Service ident.ServiceCookie
	Event   uint32
}

func (m *SubscribeEvent) Kind() Kind                        { return KindSubscribeEvent }
func (m *SubscribeEvent) ValueField() value.SerializedValue { return nil }
func (m *SubscribeEvent) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ServiceCookie(m.Service)
	w.U32(m.Event)
	return w.Bytes()
}

func decodeSubscribeEvent(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	svc, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	ev, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &SubscribeEvent{Serial: ident.Serial(serial), Service: svc, Event: ev}, nil
}

type SubscribeEventResult byte

const (
	SubscribeEventOk SubscribeEventResult = iota
	SubscribeEventInvalidService
)

type SubscribeEventReply struct {
	Serial ident.Serial
	Result SubscribeEventResult
}

func (m *SubscribeEventReply) Kind() Kind                        { return KindSubscribeEventReply }
func (m *SubscribeEventReply) ValueField() value.SerializedValue { return nil }
func (m *SubscribeEventReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeSubscribeEventReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &SubscribeEventReply{Serial: ident.Serial(serial), Result: SubscribeEventResult(tag)}, nil
}

// UnsubscribeEvent has no reply: the broker applies it immediately and the
// client has no reason to wait for confirmation (spec.md §3.4).
type UnsubscribeEvent struct {
	Service ident.ServiceCookie
	Event   uint32
}

func (m *UnsubscribeEvent) Kind() Kind                        { return KindUnsubscribeEvent }
func (m *UnsubscribeEvent) ValueField() value.SerializedValue { return nil }
func (m *UnsubscribeEvent) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ServiceCookie(m.Service)
	w.U32(m.Event)
	return w.Bytes()
}

func decodeUnsubscribeEvent(fr *FieldReader, val value.SerializedValue) (Message, error) {
	svc, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	ev, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &UnsubscribeEvent{Service: svc, Event: ev}, nil
}

// SubscribeAllEvents asks the broker to forward every event emitted on a
// service to this connection, regardless of per-event subscriptions.
type SubscribeAllEvents struct {
	Serial  ident.Serial
	Service ident.ServiceCookie
}

func (m *SubscribeAllEvents) Kind() Kind                        { return KindSubscribeAllEvents }
func (m *SubscribeAllEvents) ValueField() value.SerializedValue { return nil }
func (m *SubscribeAllEvents) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ServiceCookie(m.Service)
	return w.Bytes()
}

func decodeSubscribeAllEvents(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	svc, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	return &SubscribeAllEvents{Serial: ident.Serial(serial), Service: svc}, nil
}

type SubscribeAllEventsResult byte

const (
	SubscribeAllEventsOk SubscribeAllEventsResult = iota
	SubscribeAllEventsInvalidService
)

type SubscribeAllEventsReply struct {
	Serial ident.Serial
	Result SubscribeAllEventsResult
}

func (m *SubscribeAllEventsReply) Kind() Kind                        { return KindSubscribeAllEventsReply }
func (m *SubscribeAllEventsReply) ValueField() value.SerializedValue { return nil }
func (m *SubscribeAllEventsReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeSubscribeAllEventsReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &SubscribeAllEventsReply{Serial: ident.Serial(serial), Result: SubscribeAllEventsResult(tag)}, nil
}

type UnsubscribeAllEvents struct {
	Serial  ident.Serial
	Service ident.ServiceCookie
}

func (m *UnsubscribeAllEvents) Kind() Kind                        { return KindUnsubscribeAllEvents }
func (m *UnsubscribeAllEvents) ValueField() value.SerializedValue { return nil }
func (m *UnsubscribeAllEvents) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ServiceCookie(m.Service)
	return w.Bytes()
}

func decodeUnsubscribeAllEvents(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	svc, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	return &UnsubscribeAllEvents{Serial: ident.Serial(serial), Service: svc}, nil
}

type UnsubscribeAllEventsResult byte

const (
	UnsubscribeAllEventsOk UnsubscribeAllEventsResult = iota
	UnsubscribeAllEventsInvalidService
	UnsubscribeAllEventsNotSubscribed
)

type UnsubscribeAllEventsReply struct {
	Serial ident.Serial
	Result UnsubscribeAllEventsResult
}

func (m *UnsubscribeAllEventsReply) Kind() Kind { return KindUnsubscribeAllEventsReply }
func (m *UnsubscribeAllEventsReply) ValueField() value.SerializedValue { return nil }
func (m *UnsubscribeAllEventsReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeUnsubscribeAllEventsReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &UnsubscribeAllEventsReply{Serial: ident.Serial(serial), Result: UnsubscribeAllEventsResult(tag)}, nil
}

// EmitEvent broadcasts an event value to every connection subscribed to
// Event on Service (spec.md §3.4). It carries no serial: it is a one-way
// broadcast, not a request.
type EmitEvent struct {
	Service ident.ServiceCookie
	Event   uint32
	Value   value.SerializedValue
}

func (m *EmitEvent) Kind() Kind                        { return KindEmitEvent }
func (m *EmitEvent) ValueField() value.SerializedValue { return m.Value }
func (m *EmitEvent) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ServiceCookie(m.Service)
	w.U32(m.Event)
	return w.Bytes()
}

func decodeEmitEvent(fr *FieldReader, val value.SerializedValue) (Message, error) {
	svc, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	ev, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &EmitEvent{Service: svc, Event: ev, Value: val}, nil
}

func init() {
	register(KindSubscribeEvent, decodeSubscribeEvent)
	register(KindSubscribeEventReply, decodeSubscribeEventReply)
	register(KindUnsubscribeEvent, decodeUnsubscribeEvent)
	register(KindSubscribeAllEvents, decodeSubscribeAllEvents)
	register(KindSubscribeAllEventsReply, decodeSubscribeAllEventsReply)
	register(KindUnsubscribeAllEvents, decodeUnsubscribeAllEvents)
	register(KindUnsubscribeAllEventsReply, decodeUnsubscribeAllEventsReply)
	register(KindEmitEvent, decodeEmitEvent)
}
