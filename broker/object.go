package broker

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

type objectState struct {
	id       ident.ObjectId
	owner    ident.ConnectionId
	services map[ident.ServiceCookie]struct{}
}

func (b *Broker) handleCreateObject(cs *connState, m *proto.CreateObject) {
	if _, exists := b.objectUuids[m.Uuid]; exists {
		b.send(cs.id, &proto.CreateObjectReply{Serial: m.Serial, Result: proto.CreateObjectDuplicateObject})
		return
	}

	cookie := ident.NewObjectCookie()
	obj := &objectState{
		id:       ident.ObjectId{Uuid: m.Uuid, Cookie: cookie},
		owner:    cs.id,
		services: make(map[ident.ServiceCookie]struct{}),
	}
	b.objects[cookie] = obj
	b.objectUuids[m.Uuid] = cookie
	cs.objects[cookie] = struct{}{}
	b.opts.Metrics.Objects.Inc()

	b.send(cs.id, &proto.CreateObjectReply{Serial: m.Serial, Result: proto.CreateObjectOk, Cookie: cookie})
	b.emitBusEvent(proto.BusEvent{Kind: proto.BusEventObjectCreated, Object: obj.id})
}

func (b *Broker) handleDestroyObject(cs *connState, m *proto.DestroyObject) {
	obj, ok := b.objects[m.Cookie]
	if !ok {
		b.send(cs.id, &proto.DestroyObjectReply{Serial: m.Serial, Result: proto.DestroyObjectInvalidObject})
		return
	}
	if obj.owner != cs.id {
		b.send(cs.id, &proto.DestroyObjectReply{Serial: m.Serial, Result: proto.DestroyObjectForeignObject})
		return
	}

	b.destroyObject(m.Cookie)
	b.send(cs.id, &proto.DestroyObjectReply{Serial: m.Serial, Result: proto.DestroyObjectOk})
}

// destroyObject tears an object down regardless of caller: destroys every
// service it owns first (deferred so each ServiceDestroyed fan-out runs
// after the current message finishes), then removes the object itself.
func (b *Broker) destroyObject(cookie ident.ObjectCookie) {
	obj, ok := b.objects[cookie]
	if !ok {
		return
	}
	for svcCookie := range obj.services {
		b.destroyService(svcCookie)
	}

	delete(b.objectUuids, obj.id.Uuid)
	delete(b.objects, cookie)
	if owner, ok := b.connections[obj.owner]; ok {
		delete(owner.objects, cookie)
	}
	b.opts.Metrics.Objects.Dec()

	b.defer_(func() {
		b.emitBusEvent(proto.BusEvent{Kind: proto.BusEventObjectDestroyed, Object: obj.id})
	})
}
