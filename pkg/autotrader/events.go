package autotrader

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
)

// EventPublisher pushes order audit events onto the bus. Publishing is
// best-effort from the coordinators' point of view: the ledger write is the
// source of truth, the event stream is the audit trail.
type EventPublisher interface {
	Publish(ctx context.Context, ev *model.OrderEvent) error
}

// NATSPublisher publishes order events as JSON to one subject; the worker
// consumes them into the order_events table.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) Publish(ctx context.Context, ev *model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// publishEvent logs instead of failing when the bus is down; a missing
// audit row must never fail an order operation that already persisted.
func (s *Service) publishEvent(ctx context.Context, ev *model.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("order event publish failed",
			zap.Int64("order_id", ev.OrderID),
			zap.String("event_type", string(ev.EventType)),
			zap.Error(err),
		)
	}
}
