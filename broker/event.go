package broker

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

func (b *Broker) handleSubscribeEvent(cs *connState, m *proto.SubscribeEvent) {
	svc, ok := b.services[m.Service]
	if !ok {
		b.send(cs.id, &proto.SubscribeEventReply{Serial: m.Serial, Result: proto.SubscribeEventInvalidService})
		return
	}

	if svc.subscribers[m.Event] == nil {
		svc.subscribers[m.Event] = make(map[ident.ConnectionId]struct{})
	}
	svc.subscribers[m.Event][cs.id] = struct{}{}

	if cs.subscribed[m.Service] == nil {
		cs.subscribed[m.Service] = make(map[uint32]struct{})
	}
	cs.subscribed[m.Service][m.Event] = struct{}{}

	b.send(cs.id, &proto.SubscribeEventReply{Serial: m.Serial, Result: proto.SubscribeEventOk})
}

func (b *Broker) handleUnsubscribeEvent(cs *connState, m *proto.UnsubscribeEvent) {
	if svc, ok := b.services[m.Service]; ok {
		if subs, ok := svc.subscribers[m.Event]; ok {
			delete(subs, cs.id)
			if len(subs) == 0 {
				delete(svc.subscribers, m.Event)
			}
		}
	}
	if events, ok := cs.subscribed[m.Service]; ok {
		delete(events, m.Event)
		if len(events) == 0 {
			delete(cs.subscribed, m.Service)
		}
	}
}

func (b *Broker) handleSubscribeAllEvents(cs *connState, m *proto.SubscribeAllEvents) {
	svc, ok := b.services[m.Service]
	if !ok {
		b.send(cs.id, &proto.SubscribeAllEventsReply{Serial: m.Serial, Result: proto.SubscribeAllEventsInvalidService})
		return
	}
	svc.subscribeAll[cs.id] = struct{}{}
	cs.subscribeAll[m.Service] = struct{}{}
	b.send(cs.id, &proto.SubscribeAllEventsReply{Serial: m.Serial, Result: proto.SubscribeAllEventsOk})
}

func (b *Broker) handleUnsubscribeAllEvents(cs *connState, m *proto.UnsubscribeAllEvents) {
	svc, ok := b.services[m.Service]
	if !ok {
		b.send(cs.id, &proto.UnsubscribeAllEventsReply{Serial: m.Serial, Result: proto.UnsubscribeAllEventsInvalidService})
		return
	}
	if _, ok := svc.subscribeAll[cs.id]; !ok {
		b.send(cs.id, &proto.UnsubscribeAllEventsReply{Serial: m.Serial, Result: proto.UnsubscribeAllEventsNotSubscribed})
		return
	}
	delete(svc.subscribeAll, cs.id)
	delete(cs.subscribeAll, m.Service)
	b.send(cs.id, &proto.UnsubscribeAllEventsReply{Serial: m.Serial, Result: proto.UnsubscribeAllEventsOk})
}

// handleEmitEvent fans m out to every connection subscribed to m.Event (or
// subscribed to all events) on m.Service. The emitting connection does not
// need to own the service; any connection holding the ServiceCookie may
// emit, matching spec.md §3.4.
func (b *Broker) handleEmitEvent(cs *connState, m *proto.EmitEvent) {
	svc, ok := b.services[m.Service]
	if !ok {
		return
	}

	targets := make(map[ident.ConnectionId]struct{})
	for conn := range svc.subscribeAll {
		targets[conn] = struct{}{}
	}
	for conn := range svc.subscribers[m.Event] {
		targets[conn] = struct{}{}
	}

	for conn := range targets {
		b.send(conn, &proto.EmitEvent{Service: m.Service, Event: m.Event, Value: m.Value})
	}
}
