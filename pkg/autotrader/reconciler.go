package autotrader

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

// venueStatusMap is the fixed mapping from venue-reported status to local
// status. Anything absent keeps the order processing.
var venueStatusMap = map[string]model.OrderStatus{
	"Filled":       model.OrderStatusExecuted,
	"Cancelled":    model.OrderStatusCanceled,
	"ApiCancelled": model.OrderStatusCanceled,
}

const venueStatusNotFound = "NotFound"

// Reconcile queries the venue for every processing order with a broker id
// (bounded to the most recent batch) and applies the status map to the
// ledger. Re-running with no venue-side change writes nothing. Orders the
// venue has no record of are left untouched and flagged for operator
// review.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	result := ReconcileResult{UpdatedOrders: []*model.Order{}}

	orders, err := s.orders.List(ctx,
		[]model.OrderStatus{model.OrderStatusPending, model.OrderStatusProcessing},
		s.cfg.reconcileBatch(),
	)
	if err != nil {
		return result, fmt.Errorf("list orders awaiting confirmation: %w", err)
	}
	if len(orders) == 0 {
		return result, nil
	}

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: %v", errConnection, err)
	}
	defer s.sessions.Release(sess)

	for _, order := range orders {
		processing, err := order.Processing()
		if err != nil {
			// Pending orders have nothing to reconcile against yet.
			continue
		}

		updated, mismatch := s.reconcileOne(ctx, sess, order, processing)
		if mismatch {
			result.MismatchedOrderIDs = append(result.MismatchedOrderIDs, order.ID)
			continue
		}
		if updated {
			result.UpdatedCount++
			result.UpdatedOrders = append(result.UpdatedOrders, order)
		}
	}

	s.logger.Info("reconciliation sweep done",
		zap.Int("checked", len(orders)),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("mismatched", len(result.MismatchedOrderIDs)),
	)
	return result, nil
}

// reconcileOne applies one venue status to one ledger order. It mutates
// order in place on success so callers can report the new state.
func (s *Service) reconcileOne(ctx context.Context, sess VenueSession, order *model.Order, processing model.ProcessingOrder) (updated, mismatch bool) {
	unlock := s.lockOrder(order.ID)
	defer unlock()

	brokerID := processing.BrokerOrderID()
	st, err := sess.OrderStatus(ctx, brokerID)
	if err != nil {
		if errors.Is(err, venue.ErrOrderNotFound) {
			s.flagMismatch(order, brokerID)
			return false, true
		}
		s.logger.Error("venue status query failed",
			zap.Int64("order_id", order.ID),
			zap.String("broker_order_id", brokerID),
			zap.Error(err),
		)
		return false, false
	}
	if st.Status == venueStatusNotFound {
		s.flagMismatch(order, brokerID)
		return false, true
	}

	newStatus, terminal := venueStatusMap[st.Status]
	if !terminal {
		newStatus = model.OrderStatusProcessing
	}

	// Idempotence: skip the write when nothing the venue reports differs
	// from what the ledger already holds.
	if newStatus == order.Status &&
		st.Status == order.BrokerStatus &&
		st.Filled.Equal(order.Filled) &&
		st.AvgFillPrice.Equal(order.AvgFillPrice) {
		return false, false
	}

	executed := order.Executed
	if terminal {
		executed = true
	}

	details := model.ExecutionDetails{
		"broker_status":  st.Status,
		"filled":         st.Filled,
		"remaining":      st.Remaining,
		"avg_fill_price": st.AvgFillPrice,
		"commission":     st.Commission,
	}
	changed, err := s.orders.UpdateStatus(ctx, order.ID, newStatus, executed, details)
	if err != nil {
		s.logger.Error("reconciliation ledger update failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		return false, false
	}
	if !changed {
		// A concurrent transition won; the guarded update kept monotonicity.
		return false, false
	}

	order.Status = newStatus
	order.Executed = executed
	order.BrokerStatus = st.Status
	order.Filled = st.Filled
	order.Remaining = st.Remaining
	order.AvgFillPrice = st.AvgFillPrice
	order.Commission = st.Commission

	s.logger.Info("order reconciled",
		zap.Int64("order_id", order.ID),
		zap.String("broker_order_id", brokerID),
		zap.String("venue_status", st.Status),
		zap.String("status", string(newStatus)),
	)
	s.publishEvent(ctx, model.NewOrderEvent(order, model.EventTypeStatusChange, "", s.now()))
	return true, false
}

// flagMismatch logs a ledger/venue disagreement without touching the order.
// Auto-canceling here would destroy the only record of a possibly live
// order.
func (s *Service) flagMismatch(order *model.Order, brokerID string) {
	s.logger.Warn("venue has no record of order, leaving ledger untouched for operator review",
		zap.Int64("order_id", order.ID),
		zap.String("broker_order_id", brokerID),
	)
}
