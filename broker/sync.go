package broker

import "github.com/aldrin-go/aldrin/proto"

// handleSync replies immediately: the dispatch loop processes one
// connection's messages in the order its reader goroutine enqueued them,
// so by the time Sync itself reaches dispatch every message that preceded
// it has already been fully handled.
func (b *Broker) handleSync(cs *connState, m *proto.Sync) {
	b.send(cs.id, &proto.SyncReply{Serial: m.Serial})
}
