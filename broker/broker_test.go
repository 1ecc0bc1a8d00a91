package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/aldrin-go/aldrin/broker"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/transporttest"
	"github.com/stretchr/testify/require"
)

// newTestBroker starts a Broker on its own goroutine and returns a cancel
// func that stops it and waits for Run to return.
func newTestBroker(t *testing.T) (*broker.Broker, func()) {
	t.Helper()
	b := broker.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()
	return b, func() {
		cancel()
		<-done
	}
}

func recv(t *testing.T, tp transporttestPipeEnd) proto.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m, err := tp.ReceivePoll(ctx)
	require.NoError(t, err)
	return m
}

// transporttestPipeEnd aliases the unexported pipe end type via the
// exported AsyncTransport interface methods used above.
type transporttestPipeEnd = interface {
	ReceivePoll(ctx context.Context) (proto.Message, error)
	SendStart(ctx context.Context, m proto.Message) error
	Close() error
}

func connectAndHandshake(t *testing.T, b *broker.Broker) transporttestPipeEnd {
	t.Helper()
	client, server := transporttest.Pipe()
	b.Connect(context.Background(), server)

	require.NoError(t, client.SendStart(context.Background(), &proto.Connect2{
		Major: proto.ProtocolMajor,
		Minor: proto.MaxMinor,
	}))
	reply := recv(t, client)
	connReply, ok := reply.(*proto.ConnectReply2)
	require.True(t, ok, "expected ConnectReply2, got %T", reply)
	require.Equal(t, proto.ConnectOk, connReply.Result)
	return client
}

func TestHandshakeVersionMismatch(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	client, server := transporttest.Pipe()
	b.Connect(context.Background(), server)

	require.NoError(t, client.SendStart(context.Background(), &proto.Connect2{
		Major: proto.ProtocolMajor,
		Minor: proto.MinMinor - 1,
	}))
	reply := recv(t, client)
	connReply, ok := reply.(*proto.ConnectReply2)
	require.True(t, ok)
	require.Equal(t, proto.ConnectIncompatibleVersion, connReply.Result)
}

func TestCreateDestroyObjectRoundTrip(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	conn := connectAndHandshake(t, b)

	uuid := ident.NewObjectUuid()
	require.NoError(t, conn.SendStart(context.Background(), &proto.CreateObject{Serial: 1, Uuid: uuid}))
	reply := recv(t, conn).(*proto.CreateObjectReply)
	require.Equal(t, ident.Serial(1), reply.Serial)
	require.Equal(t, proto.CreateObjectOk, reply.Result)
	cookie := reply.Cookie

	require.NoError(t, conn.SendStart(context.Background(), &proto.CreateObject{Serial: 2, Uuid: uuid}))
	dup := recv(t, conn).(*proto.CreateObjectReply)
	require.Equal(t, proto.CreateObjectDuplicateObject, dup.Result)

	require.NoError(t, conn.SendStart(context.Background(), &proto.DestroyObject{Serial: 3, Cookie: cookie}))
	destroyReply := recv(t, conn).(*proto.DestroyObjectReply)
	require.Equal(t, proto.DestroyObjectOk, destroyReply.Result)
}

func TestFunctionCallRoundTrip(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	caller := connectAndHandshake(t, b)
	callee := connectAndHandshake(t, b)

	require.NoError(t, callee.SendStart(context.Background(), &proto.CreateObject{Serial: 1, Uuid: ident.NewObjectUuid()}))
	objReply := recv(t, callee).(*proto.CreateObjectReply)

	svcUuid := ident.NewServiceUuid()
	require.NoError(t, callee.SendStart(context.Background(), &proto.CreateService2{
		Serial: 2,
		Object: objReply.Cookie,
		Uuid:   svcUuid,
		Info:   proto.ServiceInfo{Version: 1},
	}))
	svcReply := recv(t, callee).(*proto.CreateServiceReply)
	require.Equal(t, proto.CreateServiceOk, svcReply.Result)

	require.NoError(t, caller.SendStart(context.Background(), &proto.CallFunction2{
		Serial:   10,
		Service:  svcReply.Cookie,
		Function: 7,
	}))

	forwarded := recv(t, callee).(*proto.CallFunction2)
	require.Equal(t, svcReply.Cookie, forwarded.Service)
	require.Equal(t, uint32(7), forwarded.Function)

	require.NoError(t, callee.SendStart(context.Background(), &proto.CallFunctionReply{
		Serial: forwarded.Serial,
		Result: proto.CallFunctionOk,
	}))

	reply := recv(t, caller).(*proto.CallFunctionReply)
	require.Equal(t, ident.Serial(10), reply.Serial)
	require.Equal(t, proto.CallFunctionOk, reply.Result)
}

// TestCallFunctionVersionMismatch is spec.md §8 scenario 3: a version that
// doesn't match the service's current version is rejected immediately,
// without ever reaching the callee.
func TestCallFunctionVersionMismatch(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	caller := connectAndHandshake(t, b)
	callee := connectAndHandshake(t, b)

	require.NoError(t, callee.SendStart(context.Background(), &proto.CreateObject{Serial: 1, Uuid: ident.NewObjectUuid()}))
	objReply := recv(t, callee).(*proto.CreateObjectReply)

	require.NoError(t, callee.SendStart(context.Background(), &proto.CreateService2{
		Serial: 2,
		Object: objReply.Cookie,
		Uuid:   ident.NewServiceUuid(),
		Info:   proto.ServiceInfo{Version: 1},
	}))
	svcReply := recv(t, callee).(*proto.CreateServiceReply)

	mismatched := uint32(2)
	require.NoError(t, caller.SendStart(context.Background(), &proto.CallFunction2{
		Serial:   10,
		Service:  svcReply.Cookie,
		Function: 7,
		Version:  &mismatched,
	}))

	reply := recv(t, caller).(*proto.CallFunctionReply)
	require.Equal(t, ident.Serial(10), reply.Serial)
	require.Equal(t, proto.CallFunctionInvalidFunction, reply.Result)

	// The callee never sees the call.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := callee.ReceivePoll(ctx)
	require.Error(t, err)
}

func TestAbortFunctionCallOnServiceDestroy(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	caller := connectAndHandshake(t, b)
	callee := connectAndHandshake(t, b)

	require.NoError(t, callee.SendStart(context.Background(), &proto.CreateObject{Serial: 1, Uuid: ident.NewObjectUuid()}))
	objReply := recv(t, callee).(*proto.CreateObjectReply)

	require.NoError(t, callee.SendStart(context.Background(), &proto.CreateService2{
		Serial: 2,
		Object: objReply.Cookie,
		Uuid:   ident.NewServiceUuid(),
		Info:   proto.ServiceInfo{Version: 1},
	}))
	svcReply := recv(t, callee).(*proto.CreateServiceReply)

	require.NoError(t, caller.SendStart(context.Background(), &proto.CallFunction2{Serial: 5, Service: svcReply.Cookie, Function: 1}))
	_ = recv(t, callee) // the forwarded CallFunction2

	require.NoError(t, callee.SendStart(context.Background(), &proto.DestroyService{Serial: 3, Cookie: svcReply.Cookie}))
	_ = recv(t, callee) // DestroyServiceReply

	reply := recv(t, caller).(*proto.CallFunctionReply)
	require.Equal(t, ident.Serial(5), reply.Serial)
	require.Equal(t, proto.CallFunctionAborted, reply.Result)
}

func TestChannelFlowControlOverCapacityDisconnects(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	sender := connectAndHandshake(t, b)
	receiver := connectAndHandshake(t, b)

	require.NoError(t, sender.SendStart(context.Background(), &proto.CreateChannel{Serial: 1, End: proto.ChannelEndSender}))
	chReply := recv(t, sender).(*proto.CreateChannelReply)

	require.NoError(t, receiver.SendStart(context.Background(), &proto.ClaimChannelEnd{
		Serial: 3, Cookie: chReply.Cookie, End: proto.ChannelEndReceiver, Capacity: 1,
	}))
	recvClaim := recv(t, receiver).(*proto.ClaimChannelEndReply)
	require.Equal(t, proto.ClaimChannelEndOk, recvClaim.Result)
	require.Equal(t, uint32(1), recvClaim.Capacity)

	// The sender is notified once the other end claims.
	claimed := recv(t, sender).(*proto.ChannelEndClaimed)
	require.Equal(t, uint32(1), claimed.Capacity)

	require.NoError(t, sender.SendStart(context.Background(), &proto.SendItem{Cookie: chReply.Cookie}))
	item := recv(t, receiver).(*proto.SendItem)
	require.Equal(t, chReply.Cookie, item.Cookie)

	// Sender now has zero capacity left; sending again is a protocol
	// violation and disconnects the sender.
	require.NoError(t, sender.SendStart(context.Background(), &proto.SendItem{Cookie: chReply.Cookie}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := sender.ReceivePoll(ctx)
	require.Error(t, err)
}

func TestBusListenerCurrentScopeSnapshot(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	owner := connectAndHandshake(t, b)
	listener := connectAndHandshake(t, b)

	objUuid := ident.NewObjectUuid()
	require.NoError(t, owner.SendStart(context.Background(), &proto.CreateObject{Serial: 1, Uuid: objUuid}))
	objReply := recv(t, owner).(*proto.CreateObjectReply)

	require.NoError(t, listener.SendStart(context.Background(), &proto.CreateBusListener{Serial: 1}))
	blReply := recv(t, listener).(*proto.CreateBusListenerReply)

	require.NoError(t, listener.SendStart(context.Background(), &proto.AddBusListenerFilter{
		Cookie: blReply.Cookie,
		Filter: proto.BusListenerFilter{Object: &objUuid},
	}))

	require.NoError(t, listener.SendStart(context.Background(), &proto.StartBusListener{
		Serial: 2, Cookie: blReply.Cookie, Scope: proto.BusListenerScopeAll,
	}))
	startReply := recv(t, listener).(*proto.StartBusListenerReply)
	require.Equal(t, proto.StartBusListenerOk, startReply.Result)

	ev := recv(t, listener).(*proto.EmitBusEvent)
	require.Equal(t, proto.BusEventObjectCreated, ev.Event.Kind)
	require.Equal(t, objReply.Cookie, ev.Event.Object.Cookie)

	finished := recv(t, listener).(*proto.BusListenerCurrentFinished)
	require.Equal(t, blReply.Cookie, finished.Cookie)

	secondUuid := ident.NewObjectUuid()
	require.NoError(t, owner.SendStart(context.Background(), &proto.CreateObject{Serial: 2, Uuid: secondUuid}))
	_ = recv(t, owner)

	// Only the filtered object's events should have reached the listener
	// (the second object doesn't match the filter) so the next message it
	// sees is whatever comes from the explicit destroy below.
	require.NoError(t, owner.SendStart(context.Background(), &proto.DestroyObject{Serial: 3, Cookie: objReply.Cookie}))
	_ = recv(t, owner)

	destroyedEv := recv(t, listener).(*proto.EmitBusEvent)
	require.Equal(t, proto.BusEventObjectDestroyed, destroyedEv.Event.Kind)
	require.Equal(t, objReply.Cookie, destroyedEv.Event.Object.Cookie)
}

func TestSyncFence(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	conn := connectAndHandshake(t, b)

	require.NoError(t, conn.SendStart(context.Background(), &proto.CreateObject{Serial: 1, Uuid: ident.NewObjectUuid()}))
	_ = recv(t, conn)

	require.NoError(t, conn.SendStart(context.Background(), &proto.Sync{Serial: 99}))
	reply := recv(t, conn).(*proto.SyncReply)
	require.Equal(t, ident.Serial(99), reply.Serial)
}

func TestIntrospectionRoundTrip(t *testing.T) {
	b, stop := newTestBroker(t)
	defer stop()

	conn := connectAndHandshake(t, b)

	typeId := ident.NewTypeId()
	require.NoError(t, conn.SendStart(context.Background(), &proto.QueryIntrospection{Serial: 1, TypeId: typeId}))
	miss := recv(t, conn).(*proto.QueryIntrospectionReply)
	require.Equal(t, proto.QueryIntrospectionUnknownTypeId, miss.Result)

	require.NoError(t, conn.SendStart(context.Background(), &proto.RegisterIntrospection{TypeId: typeId}))

	require.NoError(t, conn.SendStart(context.Background(), &proto.QueryIntrospection{Serial: 2, TypeId: typeId}))
	hit := recv(t, conn).(*proto.QueryIntrospectionReply)
	require.Equal(t, proto.QueryIntrospectionOk, hit.Result)
}
