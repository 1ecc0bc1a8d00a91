package proto_test

import (
	"testing"

	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/value"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, m proto.Message) proto.Message {
	t.Helper()
	frame, err := proto.EncodeFrame(m)
	require.NoError(t, err)
	decoded, err := proto.DecodeFrame(frame)
	require.NoError(t, err)
	return decoded
}

func TestConnect2RoundTrip(t *testing.T) {
	val, err := value.Encode(func(w *value.Writer) error {
		w.WriteString("hello")
		return nil
	})
	require.NoError(t, err)

	m := &proto.Connect2{Major: 1, Minor: 17, Value: val}
	out := roundTrip(t, m).(*proto.Connect2)
	require.Equal(t, m.Major, out.Major)
	require.Equal(t, m.Minor, out.Minor)
	require.Equal(t, m.Value, out.Value)
}

func TestConnect2NoValueRoundTrip(t *testing.T) {
	m := &proto.Connect2{Major: 1, Minor: 17}
	out := roundTrip(t, m).(*proto.Connect2)
	require.Nil(t, out.Value)
}

func TestConnectReply2RejectedRoundTrip(t *testing.T) {
	val, err := value.Encode(func(w *value.Writer) error {
		w.WriteU32(42)
		return nil
	})
	require.NoError(t, err)

	m := &proto.ConnectReply2{Result: proto.ConnectRejected, Data: val}
	out := roundTrip(t, m).(*proto.ConnectReply2)
	require.Equal(t, proto.ConnectRejected, out.Result)
	require.Equal(t, val, out.Data)
}

func TestConnectReply2IncompatibleVersionRoundTrip(t *testing.T) {
	m := &proto.ConnectReply2{Result: proto.ConnectIncompatibleVersion}
	out := roundTrip(t, m).(*proto.ConnectReply2)
	require.Equal(t, proto.ConnectIncompatibleVersion, out.Result)
	require.Nil(t, out.Data)
}

func TestCreateObjectRoundTrip(t *testing.T) {
	u := ident.NewObjectUuid()
	m := &proto.CreateObject{Serial: 7, Uuid: u}
	out := roundTrip(t, m).(*proto.CreateObject)
	require.Equal(t, ident.Serial(7), out.Serial)
	require.Equal(t, u, out.Uuid)
}

func TestCallFunction2RoundTrip(t *testing.T) {
	val, err := value.Encode(func(w *value.Writer) error {
		return w.WriteVec(2, func(i int, w *value.Writer) error {
			w.WriteI32(int32(i))
			return nil
		})
	})
	require.NoError(t, err)

	m := &proto.CallFunction2{
		Serial:   99,
		Service:  ident.NewServiceCookie(),
		Function: 3,
		Value:    val,
	}
	out := roundTrip(t, m).(*proto.CallFunction2)
	require.Equal(t, m.Service, out.Service)
	require.Equal(t, m.Function, out.Function)
	require.Equal(t, val, out.Value)
}

func TestCallFunctionReplyAbortedHasNoValue(t *testing.T) {
	m := &proto.CallFunctionReply{Serial: 5, Result: proto.CallFunctionAborted}
	frame, err := proto.EncodeFrame(m)
	require.NoError(t, err)
	out := roundTrip(t, m)
	require.Nil(t, out.ValueField())
	// Frame still carries a zero-length value header, since CallFunctionReply
	// is a CarriesValue kind regardless of which variant is present.
	require.Equal(t, []byte{0, 0, 0, 0}, frame[5:9])
}

func TestBusListenerFilterRoundTrip(t *testing.T) {
	obj := ident.NewObjectUuid()
	m := &proto.AddBusListenerFilter{
		Cookie: ident.NewBusListenerCookie(),
		Filter: proto.BusListenerFilter{Object: &obj},
	}
	out := roundTrip(t, m).(*proto.AddBusListenerFilter)
	require.NotNil(t, out.Filter.Object)
	require.Equal(t, obj, *out.Filter.Object)
	require.Nil(t, out.Filter.Service)
}

func TestBusEventRoundTrip(t *testing.T) {
	svc := ident.ServiceId{
		Object: ident.ObjectId{Uuid: ident.NewObjectUuid(), Cookie: ident.NewObjectCookie()},
		Uuid:   ident.NewServiceUuid(),
		Cookie: ident.NewServiceCookie(),
	}
	m := &proto.EmitBusEvent{
		Cookie: ident.NewBusListenerCookie(),
		Event:  proto.BusEvent{Kind: proto.BusEventServiceCreated, Object: svc.Object, Service: svc},
	}
	out := roundTrip(t, m).(*proto.EmitBusEvent)
	require.Equal(t, svc, out.Event.Service)
}

func TestDecodeFrameRejectsTruncatedLength(t *testing.T) {
	m := &proto.Sync{Serial: 1}
	frame, err := proto.EncodeFrame(m)
	require.NoError(t, err)
	_, err = proto.DecodeFrame(frame[:len(frame)-1])
	require.Error(t, err)
}

func TestDecodeFrameRejectsReservedKind(t *testing.T) {
	frame := []byte{5, 0, 0, 0, 56}
	_, err := proto.DecodeFrame(frame)
	require.ErrorIs(t, err, proto.ErrUnexpectedMessage)
}
