package broker

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

type endClaim struct {
	conn ident.ConnectionId
}

type channelState struct {
	cookie   ident.ChannelCookie
	sender   *endClaim
	receiver *endClaim
	capacity uint32
}

func (ch *channelState) claimOf(end proto.ChannelEnd) **endClaim {
	if end == proto.ChannelEndSender {
		return &ch.sender
	}
	return &ch.receiver
}

func otherEnd(end proto.ChannelEnd) proto.ChannelEnd {
	if end == proto.ChannelEndSender {
		return proto.ChannelEndReceiver
	}
	return proto.ChannelEndSender
}

// handleCreateChannel creates a fresh channel and immediately claims
// m.End for the creating connection, per spec.md §4.2 ("allocates a
// ChannelCookie with the creator's chosen end already claimed"). The other
// end is unclaimed and reachable by any connection that learns the cookie.
func (b *Broker) handleCreateChannel(cs *connState, m *proto.CreateChannel) {
	cookie := ident.NewChannelCookie()
	ch := &channelState{cookie: cookie}
	b.channels[cookie] = ch
	b.opts.Metrics.Channels.Inc()

	*ch.claimOf(m.End) = &endClaim{conn: cs.id}
	cs.channelEnds[channelEndKey{cookie: cookie, end: m.End}] = struct{}{}
	if m.End == proto.ChannelEndReceiver {
		ch.capacity = m.Capacity
	}

	b.send(cs.id, &proto.CreateChannelReply{Serial: m.Serial, Cookie: cookie})
}

func (b *Broker) handleClaimChannelEnd(cs *connState, m *proto.ClaimChannelEnd) {
	ch, ok := b.channels[m.Cookie]
	if !ok {
		b.send(cs.id, &proto.ClaimChannelEndReply{Serial: m.Serial, Result: proto.ClaimChannelEndInvalidChannel})
		return
	}
	claim := ch.claimOf(m.End)
	if *claim != nil {
		b.send(cs.id, &proto.ClaimChannelEndReply{Serial: m.Serial, Result: proto.ClaimChannelEndAlreadyClaimed})
		return
	}

	*claim = &endClaim{conn: cs.id}
	cs.channelEnds[channelEndKey{cookie: m.Cookie, end: m.End}] = struct{}{}
	if m.End == proto.ChannelEndReceiver {
		ch.capacity = m.Capacity
	}

	other := otherEnd(m.End)
	otherClaim := *ch.claimOf(other)
	if otherClaim != nil {
		b.send(otherClaim.conn, &proto.ChannelEndClaimed{Cookie: m.Cookie, End: m.End, Capacity: ch.capacity})
	}

	b.send(cs.id, &proto.ClaimChannelEndReply{Serial: m.Serial, Result: proto.ClaimChannelEndOk, Capacity: ch.capacity})
}

func (b *Broker) handleCloseChannelEnd(cs *connState, m *proto.CloseChannelEnd) {
	ch, ok := b.channels[m.Cookie]
	if !ok {
		b.send(cs.id, &proto.CloseChannelEndReply{Serial: m.Serial, Result: proto.CloseChannelEndInvalidChannel})
		return
	}
	claim := *ch.claimOf(m.End)
	if claim == nil || claim.conn != cs.id {
		b.send(cs.id, &proto.CloseChannelEndReply{Serial: m.Serial, Result: proto.CloseChannelEndNotClaimed})
		return
	}

	b.closeChannelEndInternal(m.Cookie, m.End)
	b.send(cs.id, &proto.CloseChannelEndReply{Serial: m.Serial, Result: proto.CloseChannelEndOk})
}

// closeChannelEndInternal tears the whole channel down: whichever end is
// closed, the other end (if claimed) is notified and the channel is
// removed, since Aldrin channels have no meaningful half-open state.
func (b *Broker) closeChannelEndInternal(cookie ident.ChannelCookie, end proto.ChannelEnd) {
	ch, ok := b.channels[cookie]
	if !ok {
		return
	}

	other := otherEnd(end)
	otherClaim := *ch.claimOf(other)
	if otherClaim != nil {
		if owner, ok := b.connections[otherClaim.conn]; ok {
			delete(owner.channelEnds, channelEndKey{cookie: cookie, end: other})
		}
		b.send(otherClaim.conn, &proto.ChannelEndClosed{Cookie: cookie, End: end})
	}
	if claim := *ch.claimOf(end); claim != nil {
		if owner, ok := b.connections[claim.conn]; ok {
			delete(owner.channelEnds, channelEndKey{cookie: cookie, end: end})
		}
	}

	delete(b.channels, cookie)
	b.opts.Metrics.Channels.Dec()
}

// handleSendItem relays one item from the sender to the receiver,
// consuming one unit of capacity. A sender that exceeds its granted
// capacity has violated flow control and is disconnected, matching the
// teacher's approach to protocol violations in network/connection.go.
func (b *Broker) handleSendItem(cs *connState, m *proto.SendItem) {
	ch, ok := b.channels[m.Cookie]
	if !ok || ch.sender == nil || ch.sender.conn != cs.id {
		return
	}
	if ch.capacity == 0 {
		b.opts.Logger.Warn("sender exceeded channel capacity, disconnecting", "conn", cs.id, "channel", m.Cookie)
		b.dropConnection(cs.id)
		return
	}
	ch.capacity--

	if ch.receiver != nil {
		b.send(ch.receiver.conn, &proto.SendItem{Cookie: m.Cookie, Value: m.Value})
	}
}

func (b *Broker) handleItemReceived(cs *connState, m *proto.ItemReceived) {
	ch, ok := b.channels[m.Cookie]
	if !ok || ch.receiver == nil || ch.receiver.conn != cs.id {
		return
	}
	if ch.sender != nil {
		b.send(ch.sender.conn, &proto.ItemReceived{Cookie: m.Cookie})
	}
}

func (b *Broker) handleAddChannelCapacity(cs *connState, m *proto.AddChannelCapacity) {
	ch, ok := b.channels[m.Cookie]
	if !ok || ch.receiver == nil || ch.receiver.conn != cs.id {
		return
	}
	ch.capacity += m.Capacity
	if ch.sender != nil {
		b.send(ch.sender.conn, &proto.AddChannelCapacity{Cookie: m.Cookie, Capacity: m.Capacity})
	}
}
