package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/aldrin-go/aldrin/broker"
	"github.com/aldrin-go/aldrin/client"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aerrors"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/transporttest"
	"github.com/aldrin-go/aldrin/value"
	"github.com/stretchr/testify/require"
)

// newTestBroker starts a fresh broker.Broker on its own goroutine.
func newTestBroker(t *testing.T) (*broker.Broker, func()) {
	t.Helper()
	b := broker.New()
	bctx, bcancel := context.WithCancel(context.Background())
	bdone := make(chan struct{})
	go func() {
		_ = b.Run(bctx)
		close(bdone)
	}()
	return b, func() {
		bcancel()
		<-bdone
	}
}

// connectClient wires a client.Client to an existing broker.Broker over an
// in-process transporttest.Pipe, performs the handshake, and starts its Run
// loop. The returned func stops only the client, not the broker.
func connectClient(t *testing.T, b *broker.Broker) (*client.Client, func()) {
	t.Helper()
	clientEnd, brokerEnd := transporttest.Pipe()
	b.Connect(context.Background(), brokerEnd)

	c := client.New(clientEnd)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	require.NoError(t, c.Connect(connectCtx))
	connectCancel()

	cctx, ccancel := context.WithCancel(context.Background())
	cdone := make(chan struct{})
	go func() {
		_ = c.Run(cctx)
		close(cdone)
	}()

	return c, func() {
		ccancel()
		<-cdone
	}
}

// newTestClient is the common case: one fresh broker with one client
// connected to it. The returned func tears down the client then the broker.
func newTestClient(t *testing.T) (*broker.Broker, *client.Client, func()) {
	t.Helper()
	b, stopBroker := newTestBroker(t)
	c, stopClient := connectClient(t, b)
	return b, c, func() {
		stopClient()
		stopBroker()
	}
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestObjectServiceLifecycle(t *testing.T) {
	_, c, stop := newTestClient(t)
	defer stop()

	obj, err := c.CreateObject(ctxT(t))
	require.NoError(t, err)
	require.NotZero(t, obj.Cookie)

	svc, err := obj.CreateService(ctxT(t), ident.NewServiceUuid(), proto.ServiceInfo{Version: 1}, nil)
	require.NoError(t, err)

	info, err := svc.QueryInfo(ctxT(t))
	require.NoError(t, err)
	require.Equal(t, uint32(1), info.Version)

	require.NoError(t, svc.Destroy(ctxT(t)))
	require.NoError(t, obj.Destroy(ctxT(t)))
}

func TestFunctionCallRoundTrip(t *testing.T) {
	b, stopBroker := newTestBroker(t)
	defer stopBroker()
	callee, stopCallee := connectClient(t, b)
	defer stopCallee()
	caller, stopCaller := connectClient(t, b)
	defer stopCaller()

	obj, err := callee.CreateObject(ctxT(t))
	require.NoError(t, err)

	const double uint32 = 1
	handlers := map[uint32]client.FunctionHandler{
		double: func(ctx context.Context, args value.SerializedValue) (value.SerializedValue, error) {
			var n int32
			require.NoError(t, value.Decode(args, func(r *value.Reader) error {
				var err error
				n, err = r.ReadI32()
				return err
			}))
			return value.Encode(func(w *value.Writer) error { w.WriteI32(n * 2); return nil })
		},
	}
	svc, err := obj.CreateService(ctxT(t), ident.NewServiceUuid(), proto.ServiceInfo{Version: 1}, handlers)
	require.NoError(t, err)

	args, err := value.Encode(func(w *value.Writer) error { w.WriteI32(21); return nil })
	require.NoError(t, err)

	proxy := caller.NewProxy(svc.Cookie)
	result, err := proxy.Call(ctxT(t), double, args)
	require.NoError(t, err)

	var got int32
	require.NoError(t, value.Decode(result, func(r *value.Reader) error {
		var err error
		got, err = r.ReadI32()
		return err
	}))
	require.Equal(t, int32(42), got)
}

func TestFunctionCallErrorResult(t *testing.T) {
	b, stopBroker := newTestBroker(t)
	defer stopBroker()
	callee, stopCallee := connectClient(t, b)
	defer stopCallee()
	caller, stopCaller := connectClient(t, b)
	defer stopCaller()

	obj, err := callee.CreateObject(ctxT(t))
	require.NoError(t, err)

	const fails uint32 = 1
	handlers := map[uint32]client.FunctionHandler{
		fails: func(ctx context.Context, args value.SerializedValue) (value.SerializedValue, error) {
			errVal, err := value.Encode(func(w *value.Writer) error { w.WriteString("bad input"); return nil })
			if err != nil {
				return nil, err
			}
			return nil, &client.FunctionError{Value: errVal}
		},
	}
	svc, err := obj.CreateService(ctxT(t), ident.NewServiceUuid(), proto.ServiceInfo{Version: 1}, handlers)
	require.NoError(t, err)

	noneArgs, err := value.Encode(func(w *value.Writer) error { w.WriteNone(); return nil })
	require.NoError(t, err)

	proxy := caller.NewProxy(svc.Cookie)
	_, err = proxy.Call(ctxT(t), fails, noneArgs)
	require.Error(t, err)
	var fnErr *client.FunctionError
	require.ErrorAs(t, err, &fnErr)
}

// TestFunctionCallVersionMismatch mirrors spec.md's end-to-end scenario 3:
// a call naming a version the service doesn't carry is rejected with
// InvalidFunction immediately, never reaching the callee's handler.
func TestFunctionCallVersionMismatch(t *testing.T) {
	b, stopBroker := newTestBroker(t)
	defer stopBroker()
	callee, stopCallee := connectClient(t, b)
	defer stopCallee()
	caller, stopCaller := connectClient(t, b)
	defer stopCaller()

	obj, err := callee.CreateObject(ctxT(t))
	require.NoError(t, err)

	const fn uint32 = 1
	called := false
	handlers := map[uint32]client.FunctionHandler{
		fn: func(ctx context.Context, args value.SerializedValue) (value.SerializedValue, error) {
			called = true
			return value.Encode(func(w *value.Writer) error { w.WriteNone(); return nil })
		},
	}
	svc, err := obj.CreateService(ctxT(t), ident.NewServiceUuid(), proto.ServiceInfo{Version: 1}, handlers)
	require.NoError(t, err)

	noneArgs, err := value.Encode(func(w *value.Writer) error { w.WriteNone(); return nil })
	require.NoError(t, err)

	proxy := caller.NewProxy(svc.Cookie)
	_, err = proxy.CallVersioned(ctxT(t), fn, 2, noneArgs)
	require.Error(t, err)
	require.True(t, aerrors.Is(err, aerrors.ClassSemantic))
	require.False(t, called)
}

// TestFunctionCallInvalidArgs covers a handler rejecting its own arguments
// via client.ErrInvalidArgs, mirroring the original implementation's
// Promise::invalid_args signal.
func TestFunctionCallInvalidArgs(t *testing.T) {
	b, stopBroker := newTestBroker(t)
	defer stopBroker()
	callee, stopCallee := connectClient(t, b)
	defer stopCallee()
	caller, stopCaller := connectClient(t, b)
	defer stopCaller()

	obj, err := callee.CreateObject(ctxT(t))
	require.NoError(t, err)

	const fn uint32 = 1
	handlers := map[uint32]client.FunctionHandler{
		fn: func(ctx context.Context, args value.SerializedValue) (value.SerializedValue, error) {
			return nil, client.ErrInvalidArgs
		},
	}
	svc, err := obj.CreateService(ctxT(t), ident.NewServiceUuid(), proto.ServiceInfo{Version: 1}, handlers)
	require.NoError(t, err)

	noneArgs, err := value.Encode(func(w *value.Writer) error { w.WriteNone(); return nil })
	require.NoError(t, err)

	proxy := caller.NewProxy(svc.Cookie)
	_, err = proxy.Call(ctxT(t), fn, noneArgs)
	require.ErrorIs(t, err, client.ErrInvalidArgs)
}

func TestChannelSendReceive(t *testing.T) {
	b, stopBroker := newTestBroker(t)
	defer stopBroker()
	sender, stopSender := connectClient(t, b)
	defer stopSender()
	receiver, stopReceiver := connectClient(t, b)
	defer stopReceiver()

	sendCh, err := sender.CreateSenderChannel(ctxT(t))
	require.NoError(t, err)

	recvCh, err := receiver.ClaimReceiver(ctxT(t), sendCh.Cookie, 4)
	require.NoError(t, err)

	item, err := value.Encode(func(w *value.Writer) error { w.WriteI32(7); return nil })
	require.NoError(t, err)

	require.NoError(t, sendCh.Send(ctxT(t), item))
	got, err := recvCh.Receive(ctxT(t))
	require.NoError(t, err)

	var n int32
	require.NoError(t, value.Decode(got, func(r *value.Reader) error {
		var err error
		n, err = r.ReadI32()
		return err
	}))
	require.Equal(t, int32(7), n)
	require.NoError(t, recvCh.Ack(ctxT(t)))
}

func TestBusListenerCurrentScope(t *testing.T) {
	b, stopBroker := newTestBroker(t)
	defer stopBroker()
	observer, stopObserver := connectClient(t, b)
	defer stopObserver()
	creator, stopCreator := connectClient(t, b)
	defer stopCreator()

	obj, err := creator.CreateObject(ctxT(t))
	require.NoError(t, err)

	bl, err := observer.CreateBusListener(ctxT(t))
	require.NoError(t, err)
	require.NoError(t, bl.AddFilter(ctxT(t), proto.BusListenerFilter{}))
	require.NoError(t, bl.Start(ctxT(t), proto.BusListenerScopeCurrent))

	select {
	case ev := <-bl.Events:
		require.Equal(t, proto.BusEventObjectCreated, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for current-scope snapshot event")
	}

	select {
	case <-bl.Finished:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for BusListenerCurrentFinished")
	}

	_ = obj
}

func TestSync(t *testing.T) {
	_, c, stop := newTestClient(t)
	defer stop()

	require.NoError(t, c.Sync(ctxT(t)))
}
