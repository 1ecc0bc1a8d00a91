package client

import (
	"context"
	"fmt"

	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aerrors"
	"github.com/aldrin-go/aldrin/proto"
)

// Object is a handle to a live object this client created.
type Object struct {
	c      *Client
	Cookie ident.ObjectCookie
	Uuid   ident.ObjectUuid
}

// CreateObject asks the broker to create a new object with a fresh random
// uuid and waits for the reply.
func (c *Client) CreateObject(ctx context.Context) (*Object, error) {
	return c.CreateObjectWithUuid(ctx, ident.NewObjectUuid())
}

// CreateObjectWithUuid creates an object under an author-chosen uuid,
// giving it stable identity across successive re-creations.
func (c *Client) CreateObjectWithUuid(ctx context.Context, uuid ident.ObjectUuid) (*Object, error) {
	reply, err := c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.CreateObject{Serial: serial, Uuid: uuid}
	})
	if err != nil {
		return nil, err
	}
	r := reply.(*proto.CreateObjectReply)
	if r.Result != proto.CreateObjectOk {
		return nil, aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: create object: %v", r.Result))
	}

	obj := &Object{c: c, Cookie: r.Cookie, Uuid: uuid}
	_ = c.do(ctx, func() {
		c.objects[r.Cookie] = &objectHandle{cookie: r.Cookie, services: make(map[ident.ServiceCookie]struct{})}
	})
	return obj, nil
}

// Destroy destroys the object and every service it owns.
func (o *Object) Destroy(ctx context.Context) error {
	reply, err := o.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.DestroyObject{Serial: serial, Cookie: o.Cookie}
	})
	if err != nil {
		return err
	}
	r := reply.(*proto.DestroyObjectReply)
	if r.Result != proto.DestroyObjectOk {
		return aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: destroy object: %v", r.Result))
	}
	_ = o.c.do(ctx, func() {
		delete(o.c.objects, o.Cookie)
	})
	return nil
}

// CreateService creates a service on this object. handlers maps function ids
// to the code that answers CallFunction2 for them.
func (o *Object) CreateService(ctx context.Context, uuid ident.ServiceUuid, info proto.ServiceInfo, handlers map[uint32]FunctionHandler) (*Service, error) {
	reply, err := o.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.CreateService2{Serial: serial, Object: o.Cookie, Uuid: uuid, Info: info}
	})
	if err != nil {
		return nil, err
	}
	r := reply.(*proto.CreateServiceReply)
	if r.Result != proto.CreateServiceOk {
		return nil, aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: create service: %v", r.Result))
	}

	if handlers == nil {
		handlers = make(map[uint32]FunctionHandler)
	}
	svc := &Service{c: o.c, Cookie: r.Cookie, Object: o.Cookie, Uuid: uuid}
	_ = o.c.do(ctx, func() {
		o.c.services[r.Cookie] = &serviceHandle{cookie: r.Cookie, object: o.Cookie, handlers: handlers}
		if obj, ok := o.c.objects[o.Cookie]; ok {
			obj.services[r.Cookie] = struct{}{}
		}
	})
	return svc, nil
}
