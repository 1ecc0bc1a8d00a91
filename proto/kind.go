// Package proto implements Aldrin's wire protocol: frame/message taxonomy
// (spec.md §4.1, §6), connecting client and broker. Every message kind is a
// closed enum with a statically declared value-carrying flag; see
// SPEC_FULL.md's component-design table for the teacher files this
// generalizes.
package proto

// Kind is the closed, single-byte message-kind enum (ids 0-62). Gaps in
// the sequence are reserved for kinds this implementation does not yet
// define; DecodeFrame rejects them as ErrUnexpectedMessage.
type Kind byte

const (
	KindConnect2       Kind = 0
	KindConnectReply2  Kind = 1
	KindConnect        Kind = 2 // legacy v1.14 handshake
	KindConnectReply   Kind = 3 // legacy v1.14 handshake
	KindShutdown       Kind = 4
	KindCreateObject   Kind = 5
	KindCreateObjectReply Kind = 6
	KindDestroyObject     Kind = 7
	KindDestroyObjectReply Kind = 8
	KindCreateService2       Kind = 9
	KindCreateServiceReply   Kind = 10
	KindDestroyService       Kind = 11
	KindDestroyServiceReply  Kind = 12
	KindCallFunction2        Kind = 13
	KindCallFunctionReply    Kind = 14
	KindAbortFunctionCall    Kind = 15
	KindSubscribeEvent            Kind = 16
	KindSubscribeEventReply        Kind = 17
	KindUnsubscribeEvent           Kind = 18
	KindSubscribeAllEvents         Kind = 19
	KindSubscribeAllEventsReply    Kind = 20
	KindUnsubscribeAllEvents       Kind = 21
	KindUnsubscribeAllEventsReply  Kind = 22
	KindEmitEvent                  Kind = 23
	KindQueryServiceInfo           Kind = 24
	KindQueryServiceInfoReply      Kind = 25
	KindCreateChannel       Kind = 26
	KindCreateChannelReply  Kind = 27
	KindClaimChannelEnd     Kind = 28
	KindClaimChannelEndReply Kind = 29
	KindCloseChannelEnd      Kind = 30
	KindCloseChannelEndReply Kind = 31
	KindChannelEndClaimed    Kind = 32
	KindChannelEndClosed     Kind = 33
	KindSendItem             Kind = 34
	KindItemReceived         Kind = 35
	KindAddChannelCapacity   Kind = 36
	KindSync                 Kind = 37
	KindSyncReply            Kind = 38
	KindServiceDestroyed     Kind = 39
	KindCreateBusListener            Kind = 40
	KindCreateBusListenerReply       Kind = 41
	KindDestroyBusListener           Kind = 42
	KindDestroyBusListenerReply      Kind = 43
	KindAddBusListenerFilter         Kind = 44
	KindRemoveBusListenerFilter      Kind = 45
	KindClearBusListenerFilters      Kind = 46
	KindStartBusListener             Kind = 47
	KindStartBusListenerReply        Kind = 48
	KindStopBusListener              Kind = 49
	KindStopBusListenerReply         Kind = 50
	KindEmitBusEvent                 Kind = 51
	KindBusListenerCurrentFinished   Kind = 52
	KindRegisterIntrospection        Kind = 53
	KindQueryIntrospection           Kind = 54
	KindQueryIntrospectionReply      Kind = 55

	// maxKnownKind is the highest assigned id; 56-62 are reserved.
	maxKnownKind = KindQueryIntrospectionReply
	maxKind      = 62
)

func (k Kind) IsValid() bool { return k <= maxKind }

func (k Kind) IsReserved() bool { return k > maxKnownKind && k <= maxKind }

// CarriesValue reports whether this kind's frame includes the second
// value-length/value-bytes header (spec.md §4.1).
func (k Kind) CarriesValue() bool {
	switch k {
	case KindConnect2, KindConnectReply2, KindConnect, KindConnectReply,
		KindCallFunction2, KindCallFunctionReply, KindEmitEvent,
		KindSendItem, KindRegisterIntrospection, KindQueryIntrospectionReply:
		return true
	default:
		return false
	}
}

var kindNames = map[Kind]string{
	KindConnect2: "Connect2", KindConnectReply2: "ConnectReply2",
	KindConnect: "Connect", KindConnectReply: "ConnectReply",
	KindShutdown: "Shutdown",
	KindCreateObject: "CreateObject", KindCreateObjectReply: "CreateObjectReply",
	KindDestroyObject: "DestroyObject", KindDestroyObjectReply: "DestroyObjectReply",
	KindCreateService2: "CreateService2", KindCreateServiceReply: "CreateServiceReply",
	KindDestroyService: "DestroyService", KindDestroyServiceReply: "DestroyServiceReply",
	KindCallFunction2: "CallFunction2", KindCallFunctionReply: "CallFunctionReply",
	KindAbortFunctionCall: "AbortFunctionCall",
	KindSubscribeEvent: "SubscribeEvent", KindSubscribeEventReply: "SubscribeEventReply",
	KindUnsubscribeEvent: "UnsubscribeEvent",
	KindSubscribeAllEvents: "SubscribeAllEvents", KindSubscribeAllEventsReply: "SubscribeAllEventsReply",
	KindUnsubscribeAllEvents: "UnsubscribeAllEvents", KindUnsubscribeAllEventsReply: "UnsubscribeAllEventsReply",
	KindEmitEvent: "EmitEvent",
	KindQueryServiceInfo: "QueryServiceInfo", KindQueryServiceInfoReply: "QueryServiceInfoReply",
	KindCreateChannel: "CreateChannel", KindCreateChannelReply: "CreateChannelReply",
	KindClaimChannelEnd: "ClaimChannelEnd", KindClaimChannelEndReply: "ClaimChannelEndReply",
	KindCloseChannelEnd: "CloseChannelEnd", KindCloseChannelEndReply: "CloseChannelEndReply",
	KindChannelEndClaimed: "ChannelEndClaimed", KindChannelEndClosed: "ChannelEndClosed",
	KindSendItem: "SendItem", KindItemReceived: "ItemReceived",
	KindAddChannelCapacity: "AddChannelCapacity",
	KindSync: "Sync", KindSyncReply: "SyncReply",
	KindServiceDestroyed: "ServiceDestroyed",
	KindCreateBusListener: "CreateBusListener", KindCreateBusListenerReply: "CreateBusListenerReply",
	KindDestroyBusListener: "DestroyBusListener", KindDestroyBusListenerReply: "DestroyBusListenerReply",
	KindAddBusListenerFilter: "AddBusListenerFilter", KindRemoveBusListenerFilter: "RemoveBusListenerFilter",
	KindClearBusListenerFilters: "ClearBusListenerFilters",
	KindStartBusListener: "StartBusListener", KindStartBusListenerReply: "StartBusListenerReply",
	KindStopBusListener: "StopBusListener", KindStopBusListenerReply: "StopBusListenerReply",
	KindEmitBusEvent: "EmitBusEvent", KindBusListenerCurrentFinished: "BusListenerCurrentFinished",
	KindRegisterIntrospection: "RegisterIntrospection",
	KindQueryIntrospection: "QueryIntrospection", KindQueryIntrospectionReply: "QueryIntrospectionReply",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Reserved"
}
