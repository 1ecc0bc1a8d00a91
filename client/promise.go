package client

import (
	"context"

	"github.com/aldrin-go/aldrin/proto"
)

// promise is a one-shot resolver for a single Serial-correlated reply. It is
// created by the calling goroutine and resolved exactly once from inside
// Run's dispatch loop; resolving it twice is a programming error.
type promise struct {
	ch chan proto.Message
}

func newPromise() *promise {
	return &promise{ch: make(chan proto.Message, 1)}
}

func (p *promise) resolve(m proto.Message) {
	select {
	case p.ch <- m:
	default:
		panic("aldrin: promise resolved twice")
	}
}

func (p *promise) wait(ctx context.Context) (proto.Message, error) {
	select {
	case m := <-p.ch:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
