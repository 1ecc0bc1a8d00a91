package proto

import "github.com/aldrin-go/aldrin/value"

// MinMinor and MaxMinor bound the minor protocol versions this
// implementation negotiates (spec.md §6). Per SPEC_FULL.md §6, resolving
// the spec's open question: a client requesting a minor below MinMinor is
// always answered with IncompatibleVersion, never silently upgraded.
const (
	ProtocolMajor = 1
	MinMinor      = 14
	MaxMinor      = 20
)

// Connect2 is the client's handshake request. Value carries the optional
// ConnectData.user payload (nil for None).
type Connect2 struct {
	Major uint32
	Minor uint32
	Value value.SerializedValue
}

func (m *Connect2) Kind() Kind                        { return KindConnect2 }
func (m *Connect2) ValueField() value.SerializedValue { return m.Value }
func (m *Connect2) EncodeFields() []byte {
	w := NewFieldWriter()
	w.Varint(m.Major)
	w.Varint(m.Minor)
	return w.Bytes()
}

func decodeConnect2(fr *FieldReader, val value.SerializedValue) (Message, error) {
	major, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	minor, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	return &Connect2{Major: major, Minor: minor, Value: val}, nil
}

// ConnectResultKind discriminates ConnectReply2/ConnectReply outcomes.
type ConnectResultKind byte

const (
	ConnectOk ConnectResultKind = iota
	ConnectRejected
	ConnectIncompatibleVersion
)

// ConnectReply2 is the broker's handshake response.
type ConnectReply2 struct {
	Result ConnectResultKind
	Minor  uint32                // valid when Result == ConnectOk
	Data   value.SerializedValue // valid when Result == ConnectRejected
}

func (m *ConnectReply2) Kind() Kind { return KindConnectReply2 }
func (m *ConnectReply2) ValueField() value.SerializedValue {
	if m.Result == ConnectRejected {
		return m.Data
	}
	return nil
}
func (m *ConnectReply2) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U8(byte(m.Result))
	if m.Result == ConnectOk {
		w.Varint(m.Minor)
	}
	return w.Bytes()
}

func decodeConnectReply2(fr *FieldReader, val value.SerializedValue) (Message, error) {
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &ConnectReply2{Result: ConnectResultKind(tag)}
	switch m.Result {
	case ConnectOk:
		minor, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		m.Minor = minor
	case ConnectRejected:
		m.Data = val
	case ConnectIncompatibleVersion:
	default:
		return nil, ErrInvalidSerialization
	}
	return m, nil
}

// Connect is the legacy v1.14 handshake request, identical in shape to
// Connect2; kept as a distinct kind so a connection's minor-version
// negotiation can restrict which kind it accepts, per spec.md §4.1.
type Connect struct {
	Major uint32
	Minor uint32
	Value value.SerializedValue
}

func (m *Connect) Kind() Kind                        { return KindConnect }
func (m *Connect) ValueField() value.SerializedValue { return m.Value }
func (m *Connect) EncodeFields() []byte {
	w := NewFieldWriter()
	w.Varint(m.Major)
	w.Varint(m.Minor)
	return w.Bytes()
}

func decodeConnect(fr *FieldReader, val value.SerializedValue) (Message, error) {
	major, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	minor, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	return &Connect{Major: major, Minor: minor, Value: val}, nil
}

// ConnectReply is the legacy v1.14 handshake response.
type ConnectReply struct {
	Result ConnectResultKind
	Minor  uint32
	Data   value.SerializedValue
}

func (m *ConnectReply) Kind() Kind { return KindConnectReply }
func (m *ConnectReply) ValueField() value.SerializedValue {
	if m.Result == ConnectRejected {
		return m.Data
	}
	return nil
}
func (m *ConnectReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U8(byte(m.Result))
	if m.Result == ConnectOk {
		w.Varint(m.Minor)
	}
	return w.Bytes()
}

func decodeConnectReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &ConnectReply{Result: ConnectResultKind(tag)}
	switch m.Result {
	case ConnectOk:
		minor, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		m.Minor = minor
	case ConnectRejected:
		m.Data = val
	case ConnectIncompatibleVersion:
	default:
		return nil, ErrInvalidSerialization
	}
	return m, nil
}

// Shutdown carries no fields; it is sent by either side to begin an
// orderly close (spec.md §4.2/§4.3).
type Shutdown struct{}

func (m *Shutdown) Kind() Kind                        { return KindShutdown }
func (m *Shutdown) ValueField() value.SerializedValue { return nil }
func (m *Shutdown) EncodeFields() []byte              { return nil }

func decodeShutdown(fr *FieldReader, val value.SerializedValue) (Message, error) {
	return &Shutdown{}, nil
}

func init() {
	register(KindConnect2, decodeConnect2)
	register(KindConnectReply2, decodeConnectReply2)
	register(KindConnect, decodeConnect)
	register(KindConnectReply, decodeConnectReply)
	register(KindShutdown, decodeShutdown)
}
