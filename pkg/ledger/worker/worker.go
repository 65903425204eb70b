package worker

import (
	"context"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/ledger/repo"
)

const natsFetchWait = 2 * time.Second

// Worker drains order audit events off the bus into the order_events
// table. Event ids are deterministic, so redeliveries are harmless.
type Worker struct {
	orderEvent repo.IOrderEvent
	logger     *zap.Logger
}

func NewWorker(r repo.IRepo, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		orderEvent: r.OrderEvent(),
		logger:     logger,
	}
}

func (w *Worker) StartConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	cons, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := cons.Fetch(10, nats.MaxWait(natsFetchWait))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			w.logger.Warn("fetch error", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var ev model.OrderEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				w.logger.Warn("unmarshal order event failed", zap.Error(err))
				_ = msg.Ack()
				continue
			}
			if err := w.handleEvent(ctx, ev); err != nil {
				w.logger.Warn("persist order event failed",
					zap.String("event_id", ev.EventID),
					zap.Error(err),
				)
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, ev model.OrderEvent) error {
	_, err := w.orderEvent.Create(ctx, &ev)
	return err
}
