package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/bus"
)

func TestWorker_RunsEventAndPublishesReply(t *testing.T) {
	deps := &stubDeps{summary: "hi"}
	mb := bus.NewMessageBus()
	defer mb.Close()

	// Deliver through the bus: the worker's reply must surface as an
	// outbound message for the channel sender.
	orch := New(Config{AdapterTimeout: time.Second}, Deps{
		Store:      deps,
		Fetcher:    deps,
		Recognizer: deps,
		Detector:   deps,
		Translator: deps,
		Summarizer: deps,
		Deliverer:  &BusDeliverer{Bus: mb},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(mb, orch, 5*time.Second)
	go w.Run(ctx)

	if err := mb.PublishEvent(ctx, bus.InboundEvent{Kind: bus.EventText, ReplyToken: "rt-1", Text: "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	replyCtx, replyCancel := context.WithTimeout(ctx, 2*time.Second)
	defer replyCancel()
	reply, ok := mb.ConsumeReply(replyCtx)
	if !ok {
		t.Fatal("no reply published")
	}
	if reply.ReplyToken != "rt-1" || reply.Text != "hi" {
		t.Errorf("reply = %+v, want rt-1/hi", reply)
	}
}

func TestWorker_StopsWhenBusCloses(t *testing.T) {
	mb := bus.NewMessageBus()
	w := NewWorker(mb, newTestOrchestrator(&stubDeps{}), time.Second)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	mb.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after bus close")
	}
}
