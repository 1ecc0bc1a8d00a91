// Package client implements Aldrin's client runtime: a single
// cooperative dispatch loop (mirroring broker.Broker's) that owns every
// serial-correlated request, live Object/Service/Channel handle, and
// registered function-call handler for one connection to a broker,
// generalizing the teacher's qos.Handler serial-keyed in-flight maps and
// session.Session per-entity state machine (spec.md §4.3).
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aldrin-go/aldrin/client/achan"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aconfig"
	"github.com/aldrin-go/aldrin/internal/aerrors"
	"github.com/aldrin-go/aldrin/internal/alog"
	"github.com/aldrin-go/aldrin/internal/ametrics"
	"github.com/aldrin-go/aldrin/internal/areport"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/transport"
	"github.com/aldrin-go/aldrin/value"
)

// Options configures a Client.
type Options struct {
	Logger   *slog.Logger
	Metrics  *ametrics.Metrics
	Reporter areport.Reporter
}

type Option = aconfig.Option[Options]

func WithLogger(l *slog.Logger) Option       { return func(o *Options) { o.Logger = l } }
func WithMetrics(m *ametrics.Metrics) Option { return func(o *Options) { o.Metrics = m } }
func WithReporter(r areport.Reporter) Option { return func(o *Options) { o.Reporter = r } }

func defaultOptions() Options {
	return Options{
		Logger:   alog.New("client", slog.LevelInfo, nil),
		Metrics:  ametrics.NewNoop(),
		Reporter: areport.Noop{},
	}
}

// FunctionHandler handles one function call addressed to a service this
// client owns. The returned value (or error) becomes the CallFunctionReply.
type FunctionHandler func(ctx context.Context, args value.SerializedValue) (value.SerializedValue, error)

// Client is a single connection's worth of Aldrin client state. Create with
// New, Connect to perform the handshake, then run Run from its own
// goroutine. Every exported method is safe to call concurrently with Run;
// they hand work to Run's loop via the ops channel rather than touching
// state directly.
type Client struct {
	opts      Options
	transport transport.AsyncTransport
	minor     uint32

	inbound chan proto.Message
	ops     chan func()
	done    chan struct{}

	serials  *serialAllocator
	requests map[ident.Serial]*promise

	objects  map[ident.ObjectCookie]*objectHandle
	services map[ident.ServiceCookie]*serviceHandle

	// calls tracks function calls this client is the *caller* of, so
	// AbortFunctionCall can release the serial.
	calls map[ident.Serial]*promise

	channels map[ident.ChannelCookie]*channelHandle

	busListeners map[ident.BusListenerCookie]*busListenerHandle
}

type objectHandle struct {
	cookie   ident.ObjectCookie
	services map[ident.ServiceCookie]struct{}
}

type serviceHandle struct {
	cookie   ident.ServiceCookie
	object   ident.ObjectCookie
	handlers map[uint32]FunctionHandler
	onDestroyed func()
}

type channelHandle struct {
	cookie   ident.ChannelCookie
	end      proto.ChannelEnd
	flow     *achan.Flow // sender-side: capacity granted by the receiver
	items    chan value.SerializedValue
	closed   chan struct{}
	onClosed func()
}

type busListenerHandle struct {
	cookie   ident.BusListenerCookie
	events   chan proto.BusEvent
	finished chan struct{}
}

// New creates a Client bound to t. It does not perform the handshake; call
// Connect before Run.
func New(t transport.AsyncTransport, opts ...Option) *Client {
	o := defaultOptions()
	aconfig.Apply(&o, opts...)
	return &Client{
		opts:         o,
		transport:    t,
		inbound:      make(chan proto.Message, 256),
		ops:          make(chan func(), 256),
		done:         make(chan struct{}),
		serials:      newSerialAllocator(),
		requests:     make(map[ident.Serial]*promise),
		objects:      make(map[ident.ObjectCookie]*objectHandle),
		services:     make(map[ident.ServiceCookie]*serviceHandle),
		calls:        make(map[ident.Serial]*promise),
		channels:     make(map[ident.ChannelCookie]*channelHandle),
		busListeners: make(map[ident.BusListenerCookie]*busListenerHandle),
	}
}

// Connect performs the Connect2 handshake and blocks until ConnectReply2
// arrives (or ctx is done). Call this before Run.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.SendStart(ctx, &proto.Connect2{
		Major: proto.ProtocolMajor,
		Minor: proto.MaxMinor,
	}); err != nil {
		return err
	}

	m, err := c.transport.ReceivePoll(ctx)
	if err != nil {
		return err
	}
	reply, ok := m.(*proto.ConnectReply2)
	if !ok {
		return aerrors.New(aerrors.ClassProtocol, fmt.Sprintf("aldrin: expected ConnectReply2, got %T", m))
	}
	switch reply.Result {
	case proto.ConnectOk:
		c.minor = reply.Minor
		return nil
	case proto.ConnectIncompatibleVersion:
		return aerrors.New(aerrors.ClassProtocol, fmt.Sprintf("aldrin: broker requires a newer protocol minor than %d", proto.MaxMinor))
	default:
		return aerrors.New(aerrors.ClassProtocol, fmt.Sprintf("aldrin: connect rejected: %v", reply.Result))
	}
}

// Run drives the dispatch loop until ctx is canceled. It is the only place
// Client state is touched, mirroring broker.Broker.Run (spec.md §5).
func (c *Client) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() {
		for {
			m, err := c.transport.ReceivePoll(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case c.inbound <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case op := <-c.ops:
			op()
		case m := <-c.inbound:
			c.dispatch(ctx, m)
		}
	}
}

func (c *Client) send(ctx context.Context, m proto.Message) error {
	return c.transport.SendStart(ctx, m)
}

// do submits fn to run inside Run's loop and blocks until it has. Used by
// every exported method so state is only ever touched from the loop
// goroutine.
func (c *Client) do(ctx context.Context, fn func()) error {
	doneCh := make(chan struct{})
	wrapped := func() {
		fn()
		close(doneCh)
	}
	select {
	case c.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return aerrors.ErrShutdown
	}
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// request allocates a serial, lets build construct the outgoing message
// from it, sends it, and waits for the correlated reply.
func (c *Client) request(ctx context.Context, build func(ident.Serial) proto.Message) (proto.Message, error) {
	p := newPromise()
	var serial ident.Serial
	var sendErr error
	err := c.do(ctx, func() {
		serial = c.serials.alloc()
		c.requests[serial] = p
		if err := c.send(ctx, build(serial)); err != nil {
			sendErr = err
			delete(c.requests, serial)
			c.serials.release(serial)
		}
	})
	if err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, sendErr
	}

	reply, err := p.wait(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.do(context.Background(), func() {
		delete(c.requests, serial)
		c.serials.release(serial)
	})
	return reply, nil
}

func (c *Client) dispatch(ctx context.Context, m proto.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.Reporter.ReportPanic("client.dispatch", r, nil)
			c.opts.Logger.Error("panic in client dispatch", "recovered", r, "kind", m.Kind())
		}
	}()

	switch msg := m.(type) {
	case *proto.CreateObjectReply:
		c.resolve(msg.Serial, msg)
	case *proto.DestroyObjectReply:
		c.resolve(msg.Serial, msg)
	case *proto.CreateServiceReply:
		c.resolve(msg.Serial, msg)
	case *proto.DestroyServiceReply:
		c.resolve(msg.Serial, msg)
	case *proto.QueryServiceInfoReply:
		c.resolve(msg.Serial, msg)
	case *proto.SubscribeEventReply:
		c.resolve(msg.Serial, msg)
	case *proto.SubscribeAllEventsReply:
		c.resolve(msg.Serial, msg)
	case *proto.UnsubscribeAllEventsReply:
		c.resolve(msg.Serial, msg)
	case *proto.CreateChannelReply:
		c.resolve(msg.Serial, msg)
	case *proto.ClaimChannelEndReply:
		c.resolve(msg.Serial, msg)
	case *proto.CloseChannelEndReply:
		c.resolve(msg.Serial, msg)
	case *proto.CreateBusListenerReply:
		c.resolve(msg.Serial, msg)
	case *proto.DestroyBusListenerReply:
		c.resolve(msg.Serial, msg)
	case *proto.StartBusListenerReply:
		c.resolve(msg.Serial, msg)
	case *proto.StopBusListenerReply:
		c.resolve(msg.Serial, msg)
	case *proto.SyncReply:
		c.resolve(msg.Serial, msg)
	case *proto.QueryIntrospectionReply:
		c.resolve(msg.Serial, msg)
	case *proto.CallFunctionReply:
		if p, ok := c.calls[msg.Serial]; ok {
			delete(c.calls, msg.Serial)
			c.serials.release(msg.Serial)
			p.resolve(msg)
		}
	case *proto.CallFunction2:
		c.handleIncomingCall(ctx, msg)
	case *proto.ServiceDestroyed:
		if svc, ok := c.services[msg.Cookie]; ok && svc.onDestroyed != nil {
			svc.onDestroyed()
		}
	case *proto.EmitBusEvent:
		if bl, ok := c.busListeners[msg.Cookie]; ok {
			select {
			case bl.events <- msg.Event:
			default:
			}
		}
	case *proto.BusListenerCurrentFinished:
		if bl, ok := c.busListeners[msg.Cookie]; ok {
			close(bl.finished)
		}
	case *proto.ChannelEndClaimed:
		if ch, ok := c.channels[msg.Cookie]; ok && ch.flow != nil && msg.Capacity > 0 {
			ch.flow.Add(msg.Capacity)
		}
	case *proto.ChannelEndClosed:
		if ch, ok := c.channels[msg.Cookie]; ok {
			close(ch.closed)
			if ch.flow != nil {
				ch.flow.Close()
			}
			if ch.onClosed != nil {
				ch.onClosed()
			}
			delete(c.channels, msg.Cookie)
		}
	case *proto.SendItem:
		if ch, ok := c.channels[msg.Cookie]; ok {
			select {
			case ch.items <- msg.Value:
			default:
				c.opts.Logger.Warn("receiver overrun, dropping item", "channel", msg.Cookie)
			}
		}
	case *proto.AddChannelCapacity:
		if ch, ok := c.channels[msg.Cookie]; ok && ch.flow != nil {
			ch.flow.Add(msg.Capacity)
		}
	case *proto.EmitEvent:
		// The Client has no event subscription API; an inbound event is
		// discarded here.
	default:
		c.opts.Logger.Debug("unhandled message kind", "kind", m.Kind())
	}
}

// channelHandle fetches the live registry entry for cookie through the loop
// goroutine, since it is only ever written there.
func (c *Client) channelHandle(ctx context.Context, cookie ident.ChannelCookie) (*channelHandle, error) {
	var h *channelHandle
	var ok bool
	err := c.do(ctx, func() {
		h, ok = c.channels[cookie]
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, aerrors.New(aerrors.ClassLifecycle, fmt.Sprintf("aldrin: channel %v not claimed", cookie))
	}
	return h, nil
}

func (c *Client) resolve(serial ident.Serial, m proto.Message) {
	if p, ok := c.requests[serial]; ok {
		p.resolve(m)
	}
}

// handleIncomingCall invokes the registered FunctionHandler for the callee
// service on its own goroutine so a slow handler doesn't stall the dispatch
// loop, then sends the reply once it completes.
func (c *Client) handleIncomingCall(ctx context.Context, m *proto.CallFunction2) {
	svc, ok := c.services[m.Service]
	if !ok {
		_ = c.send(ctx, &proto.CallFunctionReply{Serial: m.Serial, Result: proto.CallFunctionInvalidService})
		return
	}
	handler, ok := svc.handlers[m.Function]
	if !ok {
		_ = c.send(ctx, &proto.CallFunctionReply{Serial: m.Serial, Result: proto.CallFunctionInvalidFunction})
		return
	}

	go func() {
		result, err := handler(ctx, m.Value)
		reply := &proto.CallFunctionReply{Serial: m.Serial}
		var fnErr *FunctionError
		switch {
		case err == nil:
			reply.Result = proto.CallFunctionOk
			reply.Value = result
		case errors.Is(err, ErrInvalidArgs):
			reply.Result = proto.CallFunctionInvalidArgs
		case errors.As(err, &fnErr):
			reply.Result = proto.CallFunctionErr
			reply.Value = fnErr.Value
		default:
			reply.Result = proto.CallFunctionErr
			reply.Value, _ = value.Encode(func(w *value.Writer) error {
				w.WriteString(err.Error())
				return nil
			})
		}
		_ = c.do(ctx, func() {
			_ = c.send(ctx, reply)
		})
	}()
}
