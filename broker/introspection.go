package broker

import "github.com/aldrin-go/aldrin/proto"

// handleRegisterIntrospection stores a type's schema under its TypeId. Any
// connection may register; a later registration for the same TypeId
// overwrites the earlier one, since the description is expected to be
// identical across callers that agree on the type.
func (b *Broker) handleRegisterIntrospection(cs *connState, m *proto.RegisterIntrospection) {
	b.intro[m.TypeId] = m.Value
}

func (b *Broker) handleQueryIntrospection(cs *connState, m *proto.QueryIntrospection) {
	val, ok := b.intro[m.TypeId]
	if !ok {
		b.send(cs.id, &proto.QueryIntrospectionReply{Serial: m.Serial, Result: proto.QueryIntrospectionUnknownTypeId})
		return
	}
	b.send(cs.id, &proto.QueryIntrospectionReply{Serial: m.Serial, Result: proto.QueryIntrospectionOk, Value: val})
}
