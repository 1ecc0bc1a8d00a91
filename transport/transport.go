// Package transport defines the asynchronous, poll-based contract the
// broker and client runtimes exchange proto.Message values over. No
// concrete byte-stream transport is implemented here — the
// proto.EncodeFrame/DecodeFrame codec is the piece a real implementation
// would use internally to turn this interface's Message values into
// bytes on a socket; see transporttest for the loopback pair this module
// tests against instead (spec.md §4.4).
package transport

import (
	"context"

	"github.com/aldrin-go/aldrin/proto"
)

// AsyncTransport is implemented by both ends of a connection.
// SendPollReady and SendPollFlush report whether the caller may proceed
// yet, and ReceivePoll blocks until a message arrives, ctx is canceled,
// or the peer closes. A real implementation backed by
// a socket would drive these from readiness notifications (epoll/kqueue);
// the in-process transporttest.Pipe drives them from buffered channels.
type AsyncTransport interface {
	// SendPollReady reports whether SendStart may be called now. It
	// blocks only long enough to learn readiness, not for a send to
	// complete.
	SendPollReady(ctx context.Context) error

	// SendStart begins sending m. The transport takes ownership of m;
	// the caller must not reuse it until a subsequent SendPollFlush
	// confirms delivery.
	SendStart(ctx context.Context, m proto.Message) error

	// SendPollFlush blocks until every message passed to SendStart has
	// been fully handed off to the underlying medium.
	SendPollFlush(ctx context.Context) error

	// ReceivePoll blocks until the next inbound Message is available, ctx
	// is canceled, or the peer closes the transport (io.EOF).
	ReceivePoll(ctx context.Context) (proto.Message, error)

	// Close releases the transport's resources. Safe to call more than
	// once.
	Close() error
}
