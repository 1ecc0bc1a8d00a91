// Package broker implements Aldrin's dispatch engine: a single cooperative
// loop owning every object/service/channel/bus-listener registry, fed by
// per-connection reader goroutines, generalizing the teacher's
// session.Manager registry-plus-background-loop idiom and topic.Router's
// subscriber-set bookkeeping to Aldrin's routing rules (spec.md §4.2).
package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aldrin-go/aldrin/broker/buslisten"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aconfig"
	"github.com/aldrin-go/aldrin/internal/alog"
	"github.com/aldrin-go/aldrin/internal/ametrics"
	"github.com/aldrin-go/aldrin/internal/areport"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/transport"
	"github.com/aldrin-go/aldrin/value"
	"golang.org/x/sync/errgroup"
)

// Options configures a Broker. Zero value is valid; defaultOptions fills in the
// same way the teacher's qos.DefaultConfig does.
type Options struct {
	Logger   *slog.Logger
	Metrics  *ametrics.Metrics
	Reporter areport.Reporter
}

// Option mutates Options; see WithLogger etc.
type Option = aconfig.Option[Options]

func WithLogger(l *slog.Logger) Option      { return func(o *Options) { o.Logger = l } }
func WithMetrics(m *ametrics.Metrics) Option { return func(o *Options) { o.Metrics = m } }
func WithReporter(r areport.Reporter) Option { return func(o *Options) { o.Reporter = r } }

func defaultOptions() Options {
	return Options{
		Logger:   alog.New("broker", slog.LevelInfo, nil),
		Metrics:  ametrics.NewNoop(),
		Reporter: areport.Noop{},
	}
}

type inboundMsg struct {
	conn ident.ConnectionId
	msg  proto.Message
}

type connEvent struct {
	conn  ident.ConnectionId
	err   error // non-nil: the reader goroutine ended (peer closed or error)
}

// Broker is a single Aldrin broker instance. Create with New, then call
// Run from its own goroutine; Connect may be called concurrently with Run
// to admit new connections.
type Broker struct {
	opts Options

	mu         sync.Mutex
	nextConnID ident.ConnectionId
	g          *errgroup.Group

	inbound chan inboundMsg
	joined  chan *connState
	left    chan connEvent

	// Everything below is touched only from inside Run's loop goroutine.
	connections map[ident.ConnectionId]*connState
	objects     map[ident.ObjectCookie]*objectState
	objectUuids map[ident.ObjectUuid]ident.ObjectCookie
	services    map[ident.ServiceCookie]*serviceState
	serviceKeys map[serviceKey]ident.ServiceCookie
	channels    map[ident.ChannelCookie]*channelState
	listeners   map[ident.BusListenerCookie]*busListenerState
	filters     *buslisten.Engine
	calls         map[callKey]*pendingCall // keyed by (callee conn, callee-assigned serial)
	callsByCaller map[callKey]*pendingCall // keyed by (caller conn, caller's own serial)
	intro       map[ident.TypeId]value.SerializedValue

	deferred []func()
}

type serviceKey struct {
	object  ident.ObjectUuid
	service ident.ServiceUuid
}

// New creates a Broker. The returned Broker does nothing until Run is
// called.
func New(opts ...Option) *Broker {
	o := defaultOptions()
	aconfig.Apply(&o, opts...)
	return &Broker{
		opts:        o,
		inbound:     make(chan inboundMsg, 256),
		joined:      make(chan *connState, 16),
		left:        make(chan connEvent, 16),
		connections: make(map[ident.ConnectionId]*connState),
		objects:     make(map[ident.ObjectCookie]*objectState),
		objectUuids: make(map[ident.ObjectUuid]ident.ObjectCookie),
		services:    make(map[ident.ServiceCookie]*serviceState),
		serviceKeys: make(map[serviceKey]ident.ServiceCookie),
		channels:    make(map[ident.ChannelCookie]*channelState),
		listeners:   make(map[ident.BusListenerCookie]*busListenerState),
		filters:     buslisten.NewEngine(),
		calls:         make(map[callKey]*pendingCall),
		callsByCaller: make(map[callKey]*pendingCall),
		intro:       make(map[ident.TypeId]value.SerializedValue),
	}
}

// Connect admits a new connection over t and begins pumping its inbound
// messages into the dispatch loop. It returns once the connection's
// reader goroutine has been started; the connection only becomes visible
// to other connections once it completes the Connect2 handshake.
func (b *Broker) Connect(ctx context.Context, t transport.AsyncTransport) ident.ConnectionId {
	b.mu.Lock()
	id := b.nextConnID
	b.nextConnID++
	b.mu.Unlock()

	cs := &connState{
		id:           id,
		transport:    t,
		objects:      make(map[ident.ObjectCookie]struct{}),
		services:     make(map[ident.ServiceCookie]struct{}),
		subscribed:   make(map[ident.ServiceCookie]map[uint32]struct{}),
		subscribeAll: make(map[ident.ServiceCookie]struct{}),
		channelEnds:  make(map[channelEndKey]struct{}),
		busListeners: make(map[ident.BusListenerCookie]struct{}),
	}

	b.g.Go(func() error {
		defer func() {
			_ = t.Close()
			b.left <- connEvent{conn: id}
		}()
		b.joined <- cs
		for {
			m, err := t.ReceivePoll(ctx)
			if err != nil {
				return nil
			}
			select {
			case b.inbound <- inboundMsg{conn: id, msg: m}:
			case <-ctx.Done():
				return nil
			}
		}
	})

	return id
}

// Run drives the dispatch loop until ctx is canceled. It is the only
// place broker state is touched, giving the "synchronous and atomic
// between suspension points" property from spec.md §5 without locks on
// the hot path.
func (b *Broker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	b.g = g

	for {
		b.drainDeferred()

		select {
		case <-gctx.Done():
			return waitIgnoringCancel(g)
		case cs := <-b.joined:
			b.connections[cs.id] = cs
			b.opts.Metrics.Connections.Inc()
			b.opts.Logger.Debug("connection joined", "conn", cs.id)
		case ev := <-b.left:
			b.handleConnectionClosed(ev.conn)
		case im := <-b.inbound:
			b.dispatch(im.conn, im.msg)
			b.opts.Metrics.MessagesProcessed.Inc()
		}
	}
}

func waitIgnoringCancel(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// defer_ schedules fn to run after the current dispatch step, implementing
// the deferred-work queue from spec.md §9 (e.g. fanning a ServiceDestroyed
// out to every subscriber without reentering dispatch mid-message).
func (b *Broker) defer_(fn func()) {
	b.deferred = append(b.deferred, fn)
}

func (b *Broker) drainDeferred() {
	for len(b.deferred) > 0 {
		work := b.deferred
		b.deferred = nil
		for _, fn := range work {
			fn()
		}
	}
}

func (b *Broker) send(conn ident.ConnectionId, m proto.Message) {
	cs, ok := b.connections[conn]
	if !ok {
		return
	}
	if err := cs.transport.SendStart(context.Background(), m); err != nil {
		b.opts.Logger.Warn("send failed", "conn", conn, "err", err)
	}
}

func (b *Broker) dispatch(conn ident.ConnectionId, m proto.Message) {
	cs, ok := b.connections[conn]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.opts.Reporter.ReportPanic("broker.dispatch", r, nil)
			b.opts.Logger.Error("panic in dispatch, dropping connection", "conn", conn, "recovered", r)
			b.dropConnection(conn)
		}
	}()

	if !cs.established {
		b.handleHandshake(cs, m)
		return
	}

	switch msg := m.(type) {
	case *proto.Shutdown:
		b.dropConnection(conn)
	case *proto.CreateObject:
		b.handleCreateObject(cs, msg)
	case *proto.DestroyObject:
		b.handleDestroyObject(cs, msg)
	case *proto.CreateService2:
		b.handleCreateService(cs, msg)
	case *proto.DestroyService:
		b.handleDestroyService(cs, msg)
	case *proto.QueryServiceInfo:
		b.handleQueryServiceInfo(cs, msg)
	case *proto.CallFunction2:
		b.handleCallFunction(cs, msg)
	case *proto.CallFunctionReply:
		b.handleCallFunctionReply(cs, msg)
	case *proto.AbortFunctionCall:
		b.handleAbortFunctionCall(cs, msg)
	case *proto.SubscribeEvent:
		b.handleSubscribeEvent(cs, msg)
	case *proto.UnsubscribeEvent:
		b.handleUnsubscribeEvent(cs, msg)
	case *proto.SubscribeAllEvents:
		b.handleSubscribeAllEvents(cs, msg)
	case *proto.UnsubscribeAllEvents:
		b.handleUnsubscribeAllEvents(cs, msg)
	case *proto.EmitEvent:
		b.handleEmitEvent(cs, msg)
	case *proto.CreateChannel:
		b.handleCreateChannel(cs, msg)
	case *proto.ClaimChannelEnd:
		b.handleClaimChannelEnd(cs, msg)
	case *proto.CloseChannelEnd:
		b.handleCloseChannelEnd(cs, msg)
	case *proto.SendItem:
		b.handleSendItem(cs, msg)
	case *proto.ItemReceived:
		b.handleItemReceived(cs, msg)
	case *proto.AddChannelCapacity:
		b.handleAddChannelCapacity(cs, msg)
	case *proto.CreateBusListener:
		b.handleCreateBusListener(cs, msg)
	case *proto.DestroyBusListener:
		b.handleDestroyBusListener(cs, msg)
	case *proto.AddBusListenerFilter:
		b.handleAddBusListenerFilter(cs, msg)
	case *proto.RemoveBusListenerFilter:
		b.handleRemoveBusListenerFilter(cs, msg)
	case *proto.ClearBusListenerFilters:
		b.handleClearBusListenerFilters(cs, msg)
	case *proto.StartBusListener:
		b.handleStartBusListener(cs, msg)
	case *proto.StopBusListener:
		b.handleStopBusListener(cs, msg)
	case *proto.Sync:
		b.handleSync(cs, msg)
	case *proto.RegisterIntrospection:
		b.handleRegisterIntrospection(cs, msg)
	case *proto.QueryIntrospection:
		b.handleQueryIntrospection(cs, msg)
	default:
		b.opts.Logger.Warn("unhandled message kind", "conn", conn, "kind", m.Kind())
	}
}

// dropConnection tears down everything a connection owned: its objects
// (cascading to their services), channel ends, bus listeners, and
// subscriptions, mirroring session.Manager.DisconnectSession's cleanup
// fan-out but synchronous, inside the dispatch loop.
func (b *Broker) dropConnection(conn ident.ConnectionId) {
	cs, ok := b.connections[conn]
	if !ok {
		return
	}
	for cookie := range cs.objects {
		b.destroyObject(cookie)
	}
	for key := range cs.channelEnds {
		b.closeChannelEndInternal(key.cookie, key.end)
	}
	for cookie := range cs.busListeners {
		b.destroyBusListenerInternal(cookie)
	}
	for svcCookie, events := range cs.subscribed {
		if svc, ok := b.services[svcCookie]; ok {
			for ev := range events {
				delete(svc.subscribers[ev], conn)
			}
		}
	}
	for svcCookie := range cs.subscribeAll {
		if svc, ok := b.services[svcCookie]; ok {
			delete(svc.subscribeAll, conn)
		}
	}
	_ = cs.transport.Close()
	delete(b.connections, conn)
	b.opts.Metrics.Connections.Dec()
}

func (b *Broker) handleConnectionClosed(conn ident.ConnectionId) {
	b.dropConnection(conn)
}
