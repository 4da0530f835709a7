package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed MessageBus.
var ErrBusClosed = errors.New("message bus closed")

// MessageBus decouples the webhook transport from the pipeline workers and
// the workers from reply delivery. Events flow in one direction only.
type MessageBus struct {
	events  chan InboundEvent
	replies chan OutboundReply
	done    chan struct{}
	closed  atomic.Bool
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		events:  make(chan InboundEvent, 100),
		replies: make(chan OutboundReply, 100),
		done:    make(chan struct{}),
	}
}

func (mb *MessageBus) PublishEvent(ctx context.Context, ev InboundEvent) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.events <- ev:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *MessageBus) ConsumeEvent(ctx context.Context) (InboundEvent, bool) {
	select {
	case ev, ok := <-mb.events:
		return ev, ok
	case <-mb.done:
		return InboundEvent{}, false
	case <-ctx.Done():
		return InboundEvent{}, false
	}
}

func (mb *MessageBus) PublishReply(ctx context.Context, r OutboundReply) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.replies <- r:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *MessageBus) ConsumeReply(ctx context.Context) (OutboundReply, bool) {
	select {
	case r, ok := <-mb.replies:
		return r, ok
	case <-mb.done:
		return OutboundReply{}, false
	case <-ctx.Done():
		return OutboundReply{}, false
	}
}

func (mb *MessageBus) Close() {
	if mb.closed.CompareAndSwap(false, true) {
		close(mb.done)
	}
}
