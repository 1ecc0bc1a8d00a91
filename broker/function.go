package broker

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

type callKey struct {
	conn   ident.ConnectionId
	serial ident.Serial
}

// pendingCall tracks one in-flight function call. The broker mints its
// own calleeSerial when forwarding, independent of whatever serial
// allocator the caller and callee each run locally, so the two
// connections' serial spaces never collide (spec.md §4.2/§4.3).
type pendingCall struct {
	caller       ident.ConnectionId
	callerSerial ident.Serial
	callee       ident.ConnectionId
	calleeSerial ident.Serial
	service      ident.ServiceCookie
}

func (b *Broker) handleCallFunction(cs *connState, m *proto.CallFunction2) {
	svc, ok := b.services[m.Service]
	if !ok {
		b.send(cs.id, &proto.CallFunctionReply{Serial: m.Serial, Result: proto.CallFunctionInvalidService})
		return
	}
	obj, ok := b.objects[svc.id.Object.Cookie]
	if !ok {
		b.send(cs.id, &proto.CallFunctionReply{Serial: m.Serial, Result: proto.CallFunctionInvalidService})
		return
	}
	if m.Version != nil && *m.Version != svc.info.Version {
		b.send(cs.id, &proto.CallFunctionReply{Serial: m.Serial, Result: proto.CallFunctionInvalidFunction})
		return
	}
	callee, ok := b.connections[obj.owner]
	if !ok {
		b.send(cs.id, &proto.CallFunctionReply{Serial: m.Serial, Result: proto.CallFunctionInvalidService})
		return
	}

	calleeSerial := callee.nextCallSerial
	callee.nextCallSerial++

	call := &pendingCall{
		caller:       cs.id,
		callerSerial: m.Serial,
		callee:       obj.owner,
		calleeSerial: calleeSerial,
		service:      m.Service,
	}
	b.calls[callKey{conn: obj.owner, serial: calleeSerial}] = call
	b.callsByCaller[callKey{conn: cs.id, serial: m.Serial}] = call
	b.opts.Metrics.InflightFunctionCalls.Inc()

	b.send(obj.owner, &proto.CallFunction2{
		Serial:   calleeSerial,
		Service:  m.Service,
		Function: m.Function,
		Version:  m.Version,
		Value:    m.Value,
	})
}

func (b *Broker) handleCallFunctionReply(cs *connState, m *proto.CallFunctionReply) {
	key := callKey{conn: cs.id, serial: m.Serial}
	call, ok := b.calls[key]
	if !ok {
		return
	}
	delete(b.calls, key)
	delete(b.callsByCaller, callKey{conn: call.caller, serial: call.callerSerial})
	b.opts.Metrics.InflightFunctionCalls.Dec()

	b.send(call.caller, &proto.CallFunctionReply{
		Serial: call.callerSerial,
		Result: m.Result,
		Value:  m.Value,
	})
}

func (b *Broker) handleAbortFunctionCall(cs *connState, m *proto.AbortFunctionCall) {
	key := callKey{conn: cs.id, serial: m.Serial}
	call, ok := b.callsByCaller[key]
	if !ok {
		return
	}
	delete(b.callsByCaller, key)
	delete(b.calls, callKey{conn: call.callee, serial: call.calleeSerial})
	b.opts.Metrics.InflightFunctionCalls.Dec()

	b.send(call.callee, &proto.AbortFunctionCall{Serial: call.calleeSerial})
}

// abortCall force-terminates a call whose callee (service) has gone away
// for a reason the caller could not have known about; unlike
// handleAbortFunctionCall, the caller is still waiting and gets a
// synthesized Aborted reply.
func (b *Broker) abortCall(call *pendingCall) {
	delete(b.calls, callKey{conn: call.callee, serial: call.calleeSerial})
	delete(b.callsByCaller, callKey{conn: call.caller, serial: call.callerSerial})
	b.opts.Metrics.InflightFunctionCalls.Dec()
	b.send(call.caller, &proto.CallFunctionReply{Serial: call.callerSerial, Result: proto.CallFunctionAborted})
}
