package broker

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

type serviceState struct {
	id   ident.ServiceId
	info proto.ServiceInfo

	// subscribers[event] = set of connections subscribed to that event id.
	subscribers map[uint32]map[ident.ConnectionId]struct{}
	// subscribeAll = connections subscribed to every event on this service.
	subscribeAll map[ident.ConnectionId]struct{}
}

func (b *Broker) handleCreateService(cs *connState, m *proto.CreateService2) {
	obj, ok := b.objects[m.Object]
	if !ok {
		b.send(cs.id, &proto.CreateServiceReply{Serial: m.Serial, Result: proto.CreateServiceInvalidObject})
		return
	}
	if obj.owner != cs.id {
		b.send(cs.id, &proto.CreateServiceReply{Serial: m.Serial, Result: proto.CreateServiceForeignObject})
		return
	}

	key := serviceKey{object: obj.id.Uuid, service: m.Uuid}
	if _, exists := b.serviceKeys[key]; exists {
		b.send(cs.id, &proto.CreateServiceReply{Serial: m.Serial, Result: proto.CreateServiceDuplicateService})
		return
	}

	cookie := ident.NewServiceCookie()
	id := ident.ServiceId{Object: obj.id, Uuid: m.Uuid, Cookie: cookie}
	svc := &serviceState{
		id:           id,
		info:         m.Info,
		subscribers:  make(map[uint32]map[ident.ConnectionId]struct{}),
		subscribeAll: make(map[ident.ConnectionId]struct{}),
	}
	b.services[cookie] = svc
	b.serviceKeys[key] = cookie
	obj.services[cookie] = struct{}{}
	cs.services[cookie] = struct{}{}
	b.opts.Metrics.Services.Inc()

	b.send(cs.id, &proto.CreateServiceReply{Serial: m.Serial, Result: proto.CreateServiceOk, Cookie: cookie})
	b.emitBusEvent(proto.BusEvent{Kind: proto.BusEventServiceCreated, Object: obj.id, Service: id})
}

func (b *Broker) handleDestroyService(cs *connState, m *proto.DestroyService) {
	svc, ok := b.services[m.Cookie]
	if !ok {
		b.send(cs.id, &proto.DestroyServiceReply{Serial: m.Serial, Result: proto.DestroyServiceInvalidService})
		return
	}
	obj := b.objects[svc.id.Object.Cookie]
	if obj == nil || obj.owner != cs.id {
		b.send(cs.id, &proto.DestroyServiceReply{Serial: m.Serial, Result: proto.DestroyServiceForeignObject})
		return
	}

	b.destroyService(m.Cookie)
	b.send(cs.id, &proto.DestroyServiceReply{Serial: m.Serial, Result: proto.DestroyServiceOk})
}

func (b *Broker) destroyService(cookie ident.ServiceCookie) {
	svc, ok := b.services[cookie]
	if !ok {
		return
	}

	for _, conn := range b.connections {
		delete(conn.subscribed, cookie)
		delete(conn.subscribeAll, cookie)
	}
	for _, call := range b.calls {
		if call.service == cookie {
			b.abortCall(call)
		}
	}

	if obj, ok := b.objects[svc.id.Object.Cookie]; ok {
		delete(obj.services, cookie)
	}
	delete(b.serviceKeys, serviceKey{object: svc.id.Object.Uuid, service: svc.id.Uuid})
	delete(b.services, cookie)
	b.opts.Metrics.Services.Dec()

	subs := subscriberSet(svc)
	b.defer_(func() {
		for conn := range subs {
			b.send(conn, &proto.ServiceDestroyed{Cookie: cookie})
		}
		b.emitBusEvent(proto.BusEvent{Kind: proto.BusEventServiceDestroyed, Object: svc.id.Object, Service: svc.id})
	})
}

func subscriberSet(svc *serviceState) map[ident.ConnectionId]struct{} {
	out := make(map[ident.ConnectionId]struct{})
	for conn := range svc.subscribeAll {
		out[conn] = struct{}{}
	}
	for _, conns := range svc.subscribers {
		for conn := range conns {
			out[conn] = struct{}{}
		}
	}
	return out
}

func (b *Broker) handleQueryServiceInfo(cs *connState, m *proto.QueryServiceInfo) {
	svc, ok := b.services[m.Cookie]
	if !ok {
		b.send(cs.id, &proto.QueryServiceInfoReply{Serial: m.Serial, Result: proto.QueryServiceInfoInvalidService})
		return
	}
	b.send(cs.id, &proto.QueryServiceInfoReply{Serial: m.Serial, Result: proto.QueryServiceInfoOk, Info: svc.info})
}
