package broker

import (
	"github.com/aldrin-go/aldrin/broker/buslisten"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

type busListenerState struct {
	cookie  ident.BusListenerCookie
	conn    ident.ConnectionId
	started bool
	scope   proto.BusListenerScope
}

func (b *Broker) handleCreateBusListener(cs *connState, m *proto.CreateBusListener) {
	cookie := ident.NewBusListenerCookie()
	b.listeners[cookie] = &busListenerState{cookie: cookie, conn: cs.id}
	cs.busListeners[cookie] = struct{}{}
	b.opts.Metrics.BusListeners.Inc()
	b.send(cs.id, &proto.CreateBusListenerReply{Serial: m.Serial, Cookie: cookie})
}

func (b *Broker) handleDestroyBusListener(cs *connState, m *proto.DestroyBusListener) {
	bl, ok := b.listeners[m.Cookie]
	if !ok || bl.conn != cs.id {
		b.send(cs.id, &proto.DestroyBusListenerReply{Serial: m.Serial, Result: proto.DestroyBusListenerInvalidBusListener})
		return
	}
	b.destroyBusListenerInternal(m.Cookie)
	b.send(cs.id, &proto.DestroyBusListenerReply{Serial: m.Serial, Result: proto.DestroyBusListenerOk})
}

func (b *Broker) destroyBusListenerInternal(cookie ident.BusListenerCookie) {
	bl, ok := b.listeners[cookie]
	if !ok {
		return
	}
	b.filters.Forget(cookie)
	if owner, ok := b.connections[bl.conn]; ok {
		delete(owner.busListeners, cookie)
	}
	delete(b.listeners, cookie)
	b.opts.Metrics.BusListeners.Dec()
}

func (b *Broker) handleAddBusListenerFilter(cs *connState, m *proto.AddBusListenerFilter) {
	bl, ok := b.listeners[m.Cookie]
	if !ok || bl.conn != cs.id {
		return
	}
	b.filters.AddFilter(m.Cookie, buslisten.Filter{Object: m.Filter.Object, Service: m.Filter.Service})
}

func (b *Broker) handleRemoveBusListenerFilter(cs *connState, m *proto.RemoveBusListenerFilter) {
	bl, ok := b.listeners[m.Cookie]
	if !ok || bl.conn != cs.id {
		return
	}
	b.filters.RemoveFilter(m.Cookie, buslisten.Filter{Object: m.Filter.Object, Service: m.Filter.Service})
}

func (b *Broker) handleClearBusListenerFilters(cs *connState, m *proto.ClearBusListenerFilters) {
	bl, ok := b.listeners[m.Cookie]
	if !ok || bl.conn != cs.id {
		return
	}
	b.filters.Clear(m.Cookie)
}

func (b *Broker) handleStartBusListener(cs *connState, m *proto.StartBusListener) {
	bl, ok := b.listeners[m.Cookie]
	if !ok || bl.conn != cs.id {
		b.send(cs.id, &proto.StartBusListenerReply{Serial: m.Serial, Result: proto.StartBusListenerInvalidBusListener})
		return
	}
	if bl.started {
		b.send(cs.id, &proto.StartBusListenerReply{Serial: m.Serial, Result: proto.StartBusListenerAlreadyStarted})
		return
	}
	bl.started = true
	bl.scope = m.Scope
	b.send(cs.id, &proto.StartBusListenerReply{Serial: m.Serial, Result: proto.StartBusListenerOk})

	if m.Scope == proto.BusListenerScopeCurrent || m.Scope == proto.BusListenerScopeAll {
		b.sendCurrentSnapshot(bl)
	}
}

// sendCurrentSnapshot emits every already-existing object/service matching
// bl's filters, then BusListenerCurrentFinished, so a Discoverer knows
// when its initial enumeration is complete (spec.md §3.6/§4.3).
func (b *Broker) sendCurrentSnapshot(bl *busListenerState) {
	for _, obj := range b.objects {
		ev := buslisten.Event{Object: obj.id.Uuid}
		if b.filters.Matches(bl.cookie, ev) {
			b.send(bl.conn, &proto.EmitBusEvent{
				Cookie: bl.cookie,
				Event:  proto.BusEvent{Kind: proto.BusEventObjectCreated, Object: obj.id},
			})
		}
	}
	for _, svc := range b.services {
		ev := buslisten.Event{Object: svc.id.Object.Uuid, Service: svc.id.Uuid, HasService: true}
		if b.filters.Matches(bl.cookie, ev) {
			b.send(bl.conn, &proto.EmitBusEvent{
				Cookie: bl.cookie,
				Event:  proto.BusEvent{Kind: proto.BusEventServiceCreated, Object: svc.id.Object, Service: svc.id},
			})
		}
	}
	b.send(bl.conn, &proto.BusListenerCurrentFinished{Cookie: bl.cookie})
}

func (b *Broker) handleStopBusListener(cs *connState, m *proto.StopBusListener) {
	bl, ok := b.listeners[m.Cookie]
	if !ok || bl.conn != cs.id {
		b.send(cs.id, &proto.StopBusListenerReply{Serial: m.Serial, Result: proto.StopBusListenerInvalidBusListener})
		return
	}
	if !bl.started {
		b.send(cs.id, &proto.StopBusListenerReply{Serial: m.Serial, Result: proto.StopBusListenerNotStarted})
		return
	}
	bl.started = false
	b.send(cs.id, &proto.StopBusListenerReply{Serial: m.Serial, Result: proto.StopBusListenerOk})
}

// emitBusEvent fans a lifecycle event out to every started listener whose
// scope includes new events (New or All) and whose filters match.
func (b *Broker) emitBusEvent(event proto.BusEvent) {
	ev := buslisten.Event{Object: event.Object.Uuid}
	if event.Kind == proto.BusEventServiceCreated || event.Kind == proto.BusEventServiceDestroyed {
		ev.Service = event.Service.Uuid
		ev.HasService = true
	}

	for _, bl := range b.listeners {
		if !bl.started || bl.scope == proto.BusListenerScopeCurrent {
			continue
		}
		if b.filters.Matches(bl.cookie, ev) {
			b.send(bl.conn, &proto.EmitBusEvent{Cookie: bl.cookie, Event: event})
			b.opts.Metrics.BusEventsFanned.Inc()
		}
	}
}
