package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/bus"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/telemetry"
)

// Worker consumes inbound events from the bus and runs one pipeline
// execution per event, each in its own goroutine under the total run budget.
type Worker struct {
	bus    *bus.MessageBus
	orch   *Orchestrator
	budget time.Duration
}

func NewWorker(b *bus.MessageBus, orch *Orchestrator, budget time.Duration) *Worker {
	return &Worker{bus: b, orch: orch, budget: budget}
}

// Run blocks until ctx is cancelled or the bus closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		ev, ok := w.bus.ConsumeEvent(ctx)
		if !ok {
			return
		}
		go w.handle(ctx, ev)
	}
}

func (w *Worker) handle(ctx context.Context, ev bus.InboundEvent) {
	runCtx := ctx
	if w.budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.budget)
		defer cancel()
	}

	start := time.Now()
	var run *Run
	switch ev.Kind {
	case bus.EventText:
		run = w.orch.HandleText(runCtx, ev.ReplyToken, ev.Text)
	case bus.EventImage:
		run = w.orch.HandleImage(runCtx, ev.ReplyToken, ev.ContentRef)
	default:
		slog.Warn("dropping event of unknown kind", slog.String("kind", string(ev.Kind)))
		return
	}

	telemetry.ObserveRun(run.Outcome(), time.Since(start))
	slog.Info("pipeline run finished",
		slog.String("kind", string(ev.Kind)),
		slog.String("outcome", run.Outcome()),
		slog.String("object_id", run.SourceObjectID),
		slog.Duration("took", time.Since(start)))
}

// BusDeliverer implements ReplyDeliverer by publishing finished replies for
// the channel's sender loop.
type BusDeliverer struct {
	Bus *bus.MessageBus
}

func (d *BusDeliverer) DeliverReply(ctx context.Context, replyToken, text string) error {
	if err := d.Bus.PublishReply(ctx, bus.OutboundReply{ReplyToken: replyToken, Text: text}); err != nil {
		return fmt.Errorf("publishing reply: %w", err)
	}
	return nil
}
