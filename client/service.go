package client

import (
	"context"
	"fmt"

	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/internal/aerrors"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/value"
)

// Service is a handle to a live service this client created.
type Service struct {
	c      *Client
	Cookie ident.ServiceCookie
	Object ident.ObjectCookie
	Uuid   ident.ServiceUuid
}

// OnDestroyed registers a callback invoked (from the dispatch loop) when the
// broker reports this service gone, e.g. because the owning object was
// destroyed from under a held Proxy.
func (s *Service) OnDestroyed(ctx context.Context, fn func()) error {
	return s.c.do(ctx, func() {
		if svc, ok := s.c.services[s.Cookie]; ok {
			svc.onDestroyed = fn
		}
	})
}

// Destroy destroys the service directly, without destroying its object.
func (s *Service) Destroy(ctx context.Context) error {
	reply, err := s.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.DestroyService{Serial: serial, Cookie: s.Cookie}
	})
	if err != nil {
		return err
	}
	r := reply.(*proto.DestroyServiceReply)
	if r.Result != proto.DestroyServiceOk {
		return aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: destroy service: %v", r.Result))
	}
	_ = s.c.do(ctx, func() {
		delete(s.c.services, s.Cookie)
		if obj, ok := s.c.objects[s.Object]; ok {
			delete(obj.services, s.Cookie)
		}
	})
	return nil
}

func (s *Service) QueryInfo(ctx context.Context) (proto.ServiceInfo, error) {
	reply, err := s.c.request(ctx, func(serial ident.Serial) proto.Message {
		return &proto.QueryServiceInfo{Serial: serial, Cookie: s.Cookie}
	})
	if err != nil {
		return proto.ServiceInfo{}, err
	}
	r := reply.(*proto.QueryServiceInfoReply)
	if r.Result != proto.QueryServiceInfoOk {
		return proto.ServiceInfo{}, aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: query service info: %v", r.Result))
	}
	return r.Info, nil
}

// Proxy is a handle to a remote service this client does not own, used to
// call its functions. It offers no event subscription.
type Proxy struct {
	c      *Client
	Cookie ident.ServiceCookie
}

// NewProxy wraps an already-known ServiceCookie (typically learned from a
// Discoverer) for calling.
func (c *Client) NewProxy(cookie ident.ServiceCookie) *Proxy {
	return &Proxy{c: c, Cookie: cookie}
}

// Call invokes function on the proxied service and waits for its result.
func (p *Proxy) Call(ctx context.Context, function uint32, args value.SerializedValue) (value.SerializedValue, error) {
	return p.call(ctx, function, nil, args)
}

// CallVersioned is Call with a version check: the broker compares version
// against the service's current ServiceInfo.Version and replies
// InvalidFunction immediately, without dispatching to the callee, on a
// mismatch (spec.md §4.2/§4.3).
func (p *Proxy) CallVersioned(ctx context.Context, function uint32, version uint32, args value.SerializedValue) (value.SerializedValue, error) {
	return p.call(ctx, function, &version, args)
}

func (p *Proxy) call(ctx context.Context, function uint32, version *uint32, args value.SerializedValue) (value.SerializedValue, error) {
	reply, err := p.c.requestCall(ctx, p.Cookie, function, version, args)
	if err != nil {
		return nil, err
	}
	switch reply.Result {
	case proto.CallFunctionOk:
		return reply.Value, nil
	case proto.CallFunctionErr:
		return nil, &FunctionError{Value: reply.Value}
	case proto.CallFunctionInvalidArgs:
		return nil, ErrInvalidArgs
	default:
		return nil, aerrors.New(aerrors.ClassSemantic, fmt.Sprintf("aldrin: call function: %v", reply.Result))
	}
}

// FunctionError wraps an application-level error value returned by a callee.
type FunctionError struct {
	Value value.SerializedValue
}

func (e *FunctionError) Error() string { return "aldrin: function call returned an error value" }

// ErrInvalidArgs is returned by a FunctionHandler to reject a call's
// arguments explicitly, distinct from a generic application error (grounded
// on the original implementation's Promise::invalid_args, which gives a
// handler the same self-initiated signal the broker already sends for a
// version mismatch). Call with errors.Is to recognize it.
var ErrInvalidArgs = aerrors.New(aerrors.ClassProtocol, "aldrin: call rejected: invalid arguments")

// requestCall is split out from Proxy.Call so Client.calls (keyed
// separately from the generic request-reply map so AbortFunctionCall can
// find it by the same serial) can track the call for cancellation.
func (c *Client) requestCall(ctx context.Context, service ident.ServiceCookie, function uint32, version *uint32, args value.SerializedValue) (*proto.CallFunctionReply, error) {
	p := newPromise()
	var serial ident.Serial
	var sendErr error
	err := c.do(ctx, func() {
		serial = c.serials.alloc()
		c.calls[serial] = p
		if err := c.send(ctx, &proto.CallFunction2{Serial: serial, Service: service, Function: function, Version: version, Value: args}); err != nil {
			sendErr = err
			delete(c.calls, serial)
			c.serials.release(serial)
		}
	})
	if err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, sendErr
	}

	m, err := p.wait(ctx)
	if err != nil {
		_ = c.do(context.Background(), func() {
			if _, ok := c.calls[serial]; ok {
				delete(c.calls, serial)
				c.serials.release(serial)
				_ = c.send(context.Background(), &proto.AbortFunctionCall{Serial: serial})
			}
		})
		return nil, err
	}
	return m.(*proto.CallFunctionReply), nil
}
