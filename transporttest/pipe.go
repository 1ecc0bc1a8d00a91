// Package transporttest provides an in-process loopback pair of
// transport.AsyncTransport implementations, for end-to-end tests that
// wire a real broker.Broker to one or more real client.Client instances
// without a network (spec.md §8), in the teacher's integration-test
// style (network/*_test.go).
package transporttest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aldrin-go/aldrin/proto"
)

// ErrClosed is returned by an end of a Pipe after Close.
var ErrClosed = errors.New("transporttest: pipe closed")

// Pipe returns two connected AsyncTransport ends: messages SendStart'd on
// a are ReceivePoll'd on b and vice versa.
func Pipe() (a, b *pipeEnd) {
	ab := make(chan proto.Message, 64)
	ba := make(chan proto.Message, 64)
	closed := make(chan struct{})
	var once sync.Once

	a = &pipeEnd{send: ab, recv: ba, closed: closed, closeOnce: &once}
	b = &pipeEnd{send: ba, recv: ab, closed: closed, closeOnce: &once}
	return a, b
}

type pipeEnd struct {
	send      chan<- proto.Message
	recv      <-chan proto.Message
	closed    chan struct{}
	closeOnce *sync.Once
}

func (p *pipeEnd) SendPollReady(ctx context.Context) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
		return nil
	}
}

func (p *pipeEnd) SendStart(ctx context.Context, m proto.Message) error {
	select {
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.send <- m:
		return nil
	}
}

func (p *pipeEnd) SendPollFlush(ctx context.Context) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
		return nil
	}
}

func (p *pipeEnd) ReceivePoll(ctx context.Context) (proto.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, io.EOF
	case m, ok := <-p.recv:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
