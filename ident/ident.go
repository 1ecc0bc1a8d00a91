// Package ident defines the UUID-based identity types shared by the broker
// and client runtime: object/service/channel/bus-listener uuids and cookies,
// and the (uuid, cookie) pairs that give stable re-creation semantics.
package ident

import (
	"github.com/google/uuid"
)

// ObjectUuid is the author-chosen or randomly generated identity of an
// object. It is stable across the object's successive re-creations.
type ObjectUuid uuid.UUID

// NewObjectUuid returns a random v4 ObjectUuid.
func NewObjectUuid() ObjectUuid {
	return ObjectUuid(uuid.New())
}

// NilObjectUuid is the zero ObjectUuid.
var NilObjectUuid ObjectUuid

func (u ObjectUuid) String() string   { return uuid.UUID(u).String() }
func (u ObjectUuid) IsNil() bool      { return u == NilObjectUuid }
func (u ObjectUuid) Bytes() [16]byte  { return uuid.UUID(u) }

// ObjectCookie is freshly minted by the broker on every CreateObject and
// distinguishes successive incarnations of the same ObjectUuid.
type ObjectCookie uuid.UUID

func NewObjectCookie() ObjectCookie { return ObjectCookie(uuid.New()) }

var NilObjectCookie ObjectCookie

func (c ObjectCookie) String() string  { return uuid.UUID(c).String() }
func (c ObjectCookie) IsNil() bool     { return c == NilObjectCookie }
func (c ObjectCookie) Bytes() [16]byte { return uuid.UUID(c) }

// ServiceUuid identifies a service within the scope of its parent object.
type ServiceUuid uuid.UUID

func NewServiceUuid() ServiceUuid { return ServiceUuid(uuid.New()) }

var NilServiceUuid ServiceUuid

func (u ServiceUuid) String() string  { return uuid.UUID(u).String() }
func (u ServiceUuid) IsNil() bool     { return u == NilServiceUuid }
func (u ServiceUuid) Bytes() [16]byte { return uuid.UUID(u) }

// ServiceCookie is freshly minted by the broker on every CreateService2.
type ServiceCookie uuid.UUID

func NewServiceCookie() ServiceCookie { return ServiceCookie(uuid.New()) }

var NilServiceCookie ServiceCookie

func (c ServiceCookie) String() string  { return uuid.UUID(c).String() }
func (c ServiceCookie) IsNil() bool     { return c == NilServiceCookie }
func (c ServiceCookie) Bytes() [16]byte { return uuid.UUID(c) }

// ChannelCookie is the sole identity of a channel; it has no author-chosen
// uuid counterpart since channels are anonymous.
type ChannelCookie uuid.UUID

func NewChannelCookie() ChannelCookie { return ChannelCookie(uuid.New()) }

var NilChannelCookie ChannelCookie

func (c ChannelCookie) String() string  { return uuid.UUID(c).String() }
func (c ChannelCookie) IsNil() bool     { return c == NilChannelCookie }
func (c ChannelCookie) Bytes() [16]byte { return uuid.UUID(c) }

// BusListenerCookie identifies a bus listener, scoped to the connection that
// created it.
type BusListenerCookie uuid.UUID

func NewBusListenerCookie() BusListenerCookie { return BusListenerCookie(uuid.New()) }

var NilBusListenerCookie BusListenerCookie

func (c BusListenerCookie) String() string  { return uuid.UUID(c).String() }
func (c BusListenerCookie) IsNil() bool     { return c == NilBusListenerCookie }
func (c BusListenerCookie) Bytes() [16]byte { return uuid.UUID(c) }

// TypeId stably identifies a schema across rebuilds, independent of the
// object/service instance using it.
type TypeId uuid.UUID

func NewTypeId() TypeId { return TypeId(uuid.New()) }

var NilTypeId TypeId

func (t TypeId) String() string  { return uuid.UUID(t).String() }
func (t TypeId) IsNil() bool     { return t == NilTypeId }
func (t TypeId) Bytes() [16]byte { return uuid.UUID(t) }

// ObjectId is the full (uuid, cookie) identity of a live object.
type ObjectId struct {
	Uuid   ObjectUuid
	Cookie ObjectCookie
}

func (o ObjectId) String() string {
	return o.Uuid.String() + "/" + o.Cookie.String()
}

// ServiceId is the full identity of a live service: its own (uuid, cookie)
// pair plus the identity of the object it belongs to.
type ServiceId struct {
	Object ObjectId
	Uuid   ServiceUuid
	Cookie ServiceCookie
}

func (s ServiceId) String() string {
	return s.Object.String() + "/" + s.Uuid.String() + "/" + s.Cookie.String()
}

// ConnectionId identifies a connection within a single broker instance. It
// never crosses the wire; it is assigned locally and reused only after the
// prior holder has fully torn down.
type ConnectionId uint32

// ProxyId is a process-local handle for a client-side Proxy. It never
// crosses the wire either; the broker has no notion of proxies.
type ProxyId uint64

// Serial is the per-connection request/reply correlation tag.
type Serial uint32
