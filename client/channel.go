package client

import (
	"context"
	"fmt"

	"github.com/aldrin-go/aldrin/client/achan"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aerrors"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/value"
)

// Channel is a handle to one end of a claimed channel.
type Channel struct {
	c      *Client
	Cookie ident.ChannelCookie
	End    proto.ChannelEnd
}

// CreateChannel asks the broker for a new channel, claiming end for this
// client immediately (spec.md §4.2). capacity is meaningful only when end
// is ChannelEndReceiver, granting the sender that much initial capacity.
func (c *Client) CreateChannel(ctx context.Context, end proto.ChannelEnd, capacity uint32) (*Channel, error) {
	reply, err := c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.CreateChannel{Serial: serial, End: end, Capacity: capacity}
	})
	if err != nil {
		return nil, err
	}
	cookie := reply.(*proto.CreateChannelReply).Cookie

	ch := &Channel{c: c, Cookie: cookie, End: end}
	_ = c.do(ctx, func() {
		h := &channelHandle{cookie: cookie, end: end, closed: make(chan struct{})}
		if end == proto.ChannelEndSender {
			h.flow = achan.NewFlow()
		} else {
			h.items = make(chan value.SerializedValue, capacity)
		}
		c.channels[cookie] = h
	})
	return ch, nil
}

// CreateSenderChannel is CreateChannel with the sender end claimed.
func (c *Client) CreateSenderChannel(ctx context.Context) (*Channel, error) {
	return c.CreateChannel(ctx, proto.ChannelEndSender, 0)
}

// CreateReceiverChannel is CreateChannel with the receiver end claimed,
// granting capacity units of initial send capacity to whichever
// connection claims the sender end.
func (c *Client) CreateReceiverChannel(ctx context.Context, capacity uint32) (*Channel, error) {
	return c.CreateChannel(ctx, proto.ChannelEndReceiver, capacity)
}

// ClaimSender claims the sending end of cookie. Sends block in Send until
// the receiving end grants capacity.
func (c *Client) ClaimSender(ctx context.Context, cookie ident.ChannelCookie) (*Channel, error) {
	reply, err := c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.ClaimChannelEnd{Serial: serial, Cookie: cookie, End: proto.ChannelEndSender}
	})
	if err != nil {
		return nil, err
	}
	r := reply.(*proto.ClaimChannelEndReply)
	if r.Result != proto.ClaimChannelEndOk {
		return nil, aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: claim channel sender: %v", r.Result))
	}

	ch := &Channel{c: c, Cookie: cookie, End: proto.ChannelEndSender}
	_ = c.do(ctx, func() {
		flow := achan.NewFlow()
		if r.Capacity > 0 {
			flow.Add(r.Capacity)
		}
		c.channels[cookie] = &channelHandle{cookie: cookie, end: proto.ChannelEndSender, flow: flow, closed: make(chan struct{})}
	})
	return ch, nil
}

// ClaimReceiver claims the receiving end of cookie, granting capacity
// initial units of send capacity to the sender up front.
func (c *Client) ClaimReceiver(ctx context.Context, cookie ident.ChannelCookie, capacity uint32) (*Channel, error) {
	reply, err := c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.ClaimChannelEnd{Serial: serial, Cookie: cookie, End: proto.ChannelEndReceiver, Capacity: capacity}
	})
	if err != nil {
		return nil, err
	}
	r := reply.(*proto.ClaimChannelEndReply)
	if r.Result != proto.ClaimChannelEndOk {
		return nil, aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: claim channel receiver: %v", r.Result))
	}

	ch := &Channel{c: c, Cookie: cookie, End: proto.ChannelEndReceiver}
	_ = c.do(ctx, func() {
		c.channels[cookie] = &channelHandle{
			cookie: cookie,
			end:    proto.ChannelEndReceiver,
			items:  make(chan value.SerializedValue, capacity),
			closed: make(chan struct{}),
		}
	})
	return ch, nil
}

// Send sends val, blocking until the receiver has granted enough capacity.
// Sending past granted capacity is a protocol violation the broker
// enforces by disconnecting the client, so Send never does so itself.
func (c *Channel) Send(ctx context.Context, val value.SerializedValue) error {
	h, err := c.c.channelHandle(ctx, c.Cookie)
	if err != nil {
		return err
	}
	if h.flow == nil {
		return aerrors.New(aerrors.ClassLifecycle, fmt.Sprintf("aldrin: channel %v sender not claimed", c.Cookie))
	}
	if err := h.flow.Acquire(ctx); err != nil {
		return err
	}
	return c.c.send(ctx, &proto.SendItem{Cookie: c.Cookie, Value: val})
}

// Receive blocks until an item arrives or the channel closes.
func (c *Channel) Receive(ctx context.Context) (value.SerializedValue, error) {
	h, err := c.c.channelHandle(ctx, c.Cookie)
	if err != nil {
		return nil, err
	}
	if h.items == nil {
		return nil, aerrors.New(aerrors.ClassLifecycle, fmt.Sprintf("aldrin: channel %v receiver not claimed", c.Cookie))
	}
	select {
	case v := <-h.items:
		return v, nil
	case <-h.closed:
		return nil, aerrors.New(aerrors.ClassLifecycle, fmt.Sprintf("aldrin: channel %v closed", c.Cookie))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack acknowledges one received item, matching the sender's ItemReceived
// expectations (distinct from AddCapacity, which grants more capacity).
func (c *Channel) Ack(ctx context.Context) error {
	return c.c.send(ctx, &proto.ItemReceived{Cookie: c.Cookie})
}

// AddCapacity grants the sending end additional capacity to send more
// items without blocking.
func (c *Channel) AddCapacity(ctx context.Context, n uint32) error {
	return c.c.send(ctx, &proto.AddChannelCapacity{Cookie: c.Cookie, Capacity: n})
}

// Close closes this end, tearing down the whole channel.
func (c *Channel) Close(ctx context.Context) error {
	reply, err := c.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.CloseChannelEnd{Serial: serial, Cookie: c.Cookie, End: c.End}
	})
	if err != nil {
		return err
	}
	r := reply.(*proto.CloseChannelEndReply)
	if r.Result != proto.CloseChannelEndOk {
		return aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: close channel end: %v", r.Result))
	}
	_ = c.c.do(ctx, func() {
		delete(c.c.channels, c.Cookie)
	})
	return nil
}
