package client

import (
	"context"
	"fmt"

	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aerrors"
	"github.com/aldrin-go/aldrin/proto"
)

// BusListener is a handle to a bus listener this client created. Events
// read from it until Finished closes (Current-scope snapshot complete, if
// requested) and for as long as the listener stays started.
type BusListener struct {
	c        *Client
	Cookie   ident.BusListenerCookie
	Events   <-chan proto.BusEvent
	Finished <-chan struct{}
}

// CreateBusListener creates an unstarted, filterless bus listener.
func (c *Client) CreateBusListener(ctx context.Context) (*BusListener, error) {
	reply, err := c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.CreateBusListener{Serial: serial}
	})
	if err != nil {
		return nil, err
	}
	cookie := reply.(*proto.CreateBusListenerReply).Cookie

	events := make(chan proto.BusEvent, 64)
	finished := make(chan struct{})
	_ = c.do(ctx, func() {
		c.busListeners[cookie] = &busListenerHandle{cookie: cookie, events: events, finished: finished}
	})
	return &BusListener{c: c, Cookie: cookie, Events: events, Finished: finished}, nil
}

func (bl *BusListener) AddFilter(ctx context.Context, f proto.BusListenerFilter) error {
	return bl.c.send(ctx, &proto.AddBusListenerFilter{Cookie: bl.Cookie, Filter: f})
}

func (bl *BusListener) RemoveFilter(ctx context.Context, f proto.BusListenerFilter) error {
	return bl.c.send(ctx, &proto.RemoveBusListenerFilter{Cookie: bl.Cookie, Filter: f})
}

func (bl *BusListener) ClearFilters(ctx context.Context) error {
	return bl.c.send(ctx, &proto.ClearBusListenerFilters{Cookie: bl.Cookie})
}

func (bl *BusListener) Start(ctx context.Context, scope proto.BusListenerScope) error {
	reply, err := bl.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.StartBusListener{Serial: serial, Cookie: bl.Cookie, Scope: scope}
	})
	if err != nil {
		return err
	}
	r := reply.(*proto.StartBusListenerReply)
	if r.Result != proto.StartBusListenerOk {
		return aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: start bus listener: %v", r.Result))
	}
	return nil
}

func (bl *BusListener) Stop(ctx context.Context) error {
	reply, err := bl.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.StopBusListener{Serial: serial, Cookie: bl.Cookie}
	})
	if err != nil {
		return err
	}
	r := reply.(*proto.StopBusListenerReply)
	if r.Result != proto.StopBusListenerOk {
		return aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: stop bus listener: %v", r.Result))
	}
	return nil
}

func (bl *BusListener) Destroy(ctx context.Context) error {
	reply, err := bl.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.DestroyBusListener{Serial: serial, Cookie: bl.Cookie}
	})
	if err != nil {
		return err
	}
	r := reply.(*proto.DestroyBusListenerReply)
	if r.Result != proto.DestroyBusListenerOk {
		return aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: destroy bus listener: %v", r.Result))
	}
	_ = bl.c.do(ctx, func() {
		delete(bl.c.busListeners, bl.Cookie)
	})
	return nil
}

// Sync asks the broker to fence: the reply arrives only once every message
// this client sent before Sync has been fully processed.
func (c *Client) Sync(ctx context.Context) error {
	_, err := c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.Sync{Serial: serial}
	})
	return err
}
