package broker

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/transport"
)

type channelEndKey struct {
	cookie ident.ChannelCookie
	end    proto.ChannelEnd
}

// connState is everything the broker tracks about one connection. It is
// touched only from inside Run's loop goroutine.
type connState struct {
	id          ident.ConnectionId
	transport   transport.AsyncTransport
	established bool
	minor       uint32

	// nextCallSerial mints this connection's serial space for
	// broker-forwarded CallFunction2 messages (see pendingCall).
	nextCallSerial ident.Serial

	objects  map[ident.ObjectCookie]struct{}
	services map[ident.ServiceCookie]struct{}

	// subscribed[service][event] = subscribed to that one event id;
	// subscribeAll[service] = subscribed to every event regardless of id.
	subscribed   map[ident.ServiceCookie]map[uint32]struct{}
	subscribeAll map[ident.ServiceCookie]struct{}

	channelEnds  map[channelEndKey]struct{}
	busListeners map[ident.BusListenerCookie]struct{}
}

func (b *Broker) handleHandshake(cs *connState, m proto.Message) {
	switch msg := m.(type) {
	case *proto.Connect2:
		b.negotiateAndReply(cs, msg.Major, msg.Minor, false)
	case *proto.Connect:
		b.negotiateAndReply(cs, msg.Major, msg.Minor, true)
	default:
		b.opts.Logger.Warn("message before handshake, dropping connection", "conn", cs.id, "kind", m.Kind())
		b.dropConnection(cs.id)
	}
}

func (b *Broker) negotiateAndReply(cs *connState, major, minor uint32, legacy bool) {
	if major != proto.ProtocolMajor || minor < proto.MinMinor {
		if legacy {
			b.send(cs.id, &proto.ConnectReply{Result: proto.ConnectIncompatibleVersion})
		} else {
			b.send(cs.id, &proto.ConnectReply2{Result: proto.ConnectIncompatibleVersion})
		}
		b.dropConnection(cs.id)
		return
	}

	negotiated := minor
	if negotiated > proto.MaxMinor {
		negotiated = proto.MaxMinor
	}
	cs.minor = negotiated
	cs.established = true

	if legacy {
		b.send(cs.id, &proto.ConnectReply{Result: proto.ConnectOk, Minor: negotiated})
	} else {
		b.send(cs.id, &proto.ConnectReply2{Result: proto.ConnectOk, Minor: negotiated})
	}
	b.opts.Logger.Debug("connection established", "conn", cs.id, "minor", negotiated)
}
