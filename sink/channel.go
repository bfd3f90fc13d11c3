// Package sink provides EventSink implementations bridging the
// broadcaster to connection write loops and to tests.
package sink

import (
	"context"
	"sync"

	"chat-backend/errors"
)

// ChannelSink buffers serialized event frames for a single subscriber.
// Consume never blocks the publisher: when the buffer is full the sink
// closes itself and reports the failure, which makes the broadcaster
// prune it. The connection's write loop drains Frames and watches Done.
type ChannelSink struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{
		frames: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the broadcaster, one frame per chat mutation.
// A reader that stopped draining is indistinguishable from a dead
// connection, so a full buffer gives up instead of waiting.
func (s *ChannelSink) Consume(_ context.Context, frame []byte) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}

	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return errors.ErrSinkClosed
	default:
		s.Close()
		return errors.ErrSinkSaturated
	}
}

// Frames exposes the buffered frames in consume order.
func (s *ChannelSink) Frames() <-chan []byte { return s.frames }

// Done is closed once the sink stops accepting frames, either because
// the owner closed it or because it saturated.
func (s *ChannelSink) Done() <-chan struct{} { return s.done }

// Close is idempotent and safe from any goroutine.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.done) })
}
