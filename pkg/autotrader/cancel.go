package autotrader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
)

// cancelConfirmedStatuses are the venue statuses that count as a confirmed
// (or in-flight) cancellation after a cancel request was accepted.
var cancelConfirmedStatuses = map[string]bool{
	"Cancelled":     true,
	"ApiCancelled":  true,
	"PendingCancel": true,
}

const cancelWarning = "order may still be live at the venue"

// Cancel drives an order to local status=canceled. Pending orders never
// touch the venue. For processing orders every venue outcome, including
// outright failure, converges to canceled locally; when the venue did not
// confirm, the result carries a warning instead of an error, because a
// ledger stuck in processing is worse than a canceled row with residual
// venue-side risk.
func (s *Service) Cancel(ctx context.Context, orderID int64) (CancelResult, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	result := CancelResult{OrderID: orderID}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: id=%d", errOrderNotFound, orderID)
	}
	result.Status = order.Status

	if !order.Cancelable() {
		result.Error = fmt.Sprintf("cannot cancel order with status %q, only pending or processing orders can be canceled", order.Status)
		return result, fmt.Errorf("%w: cancel requires pending or processing, got %s", errInvalidState, order.Status)
	}

	// No broker linkage exists yet; nothing to tell the venue.
	if order.Status == model.OrderStatusPending {
		return s.finishCancel(ctx, order, model.ExecutionDetails{}, "", "", model.EventTypeCancelRequested)
	}

	processing, err := order.Processing()
	if err != nil {
		// Processing without a broker id should not exist; converge it
		// locally and flag the inconsistency.
		s.logger.Warn("processing order has no broker linkage, canceling locally",
			zap.Int64("order_id", orderID))
		return s.finishCancel(ctx, order, model.ExecutionDetails{}, cancelWarning, "missing broker order id", model.EventTypeCancelForced)
	}
	brokerID := processing.BrokerOrderID()

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		s.logger.Warn("venue unavailable during cancel, forcing local cancellation",
			zap.Int64("order_id", orderID),
			zap.String("broker_order_id", brokerID),
			zap.Error(err),
		)
		details := model.ExecutionDetails{"broker_status": "ApiCancelled"}
		return s.finishCancel(ctx, order, details, cancelWarning, err.Error(), model.EventTypeCancelForced)
	}
	defer s.sessions.Release(sess)

	if err := sess.CancelOrder(ctx, brokerID); err != nil {
		s.logger.Warn("venue cancel failed, forcing local cancellation",
			zap.Int64("order_id", orderID),
			zap.String("broker_order_id", brokerID),
			zap.Error(err),
		)
		details := model.ExecutionDetails{"broker_status": "ApiCancelled"}
		return s.finishCancel(ctx, order, details, cancelWarning, err.Error(), model.EventTypeCancelForced)
	}

	// The venue accepted the request; check whether it already shows the
	// order as canceled.
	st, err := sess.OrderStatus(ctx, brokerID)
	if err == nil && cancelConfirmedStatuses[st.Status] {
		details := model.ExecutionDetails{
			"broker_status":  st.Status,
			"filled":         st.Filled,
			"remaining":      st.Remaining,
			"avg_fill_price": st.AvgFillPrice,
		}
		return s.finishCancel(ctx, order, details, "", "", model.EventTypeCancelRequested)
	}

	// Accepted but not yet visible: record the request and converge anyway.
	details := model.ExecutionDetails{"broker_status": "PendingCancel"}
	return s.finishCancel(ctx, order, details, "cancellation requested, not yet confirmed by venue", "", model.EventTypeCancelRequested)
}

// finishCancel performs the single ledger transition to canceled and builds
// the structured result. The warning column persists the residual risk.
func (s *Service) finishCancel(ctx context.Context, order *model.Order, details model.ExecutionDetails, warning, venueErr string, eventType model.OrderEventType) (CancelResult, error) {
	result := CancelResult{
		OrderID:    order.ID,
		Warning:    warning,
		VenueError: venueErr,
	}
	if warning != "" {
		details["warning"] = warning
	}

	changed, err := s.orders.UpdateStatus(ctx, order.ID, model.OrderStatusCanceled, true, details)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("cancel ledger update: %w", err)
	}
	if !changed {
		// Terminal already; treat as converged.
		s.logger.Info("cancel found order already terminal",
			zap.Int64("order_id", order.ID))
	}

	order.Status = model.OrderStatusCanceled
	order.Executed = true
	if bs, ok := details["broker_status"].(string); ok {
		order.BrokerStatus = bs
	}
	order.Warning = warning
	order.LastUpdated = time.Now()

	note := warning
	if venueErr != "" {
		note = fmt.Sprintf("%s (venue error: %s)", warning, venueErr)
	}
	s.publishEvent(ctx, model.NewOrderEvent(order, eventType, note, s.now()))

	s.logger.Info("order canceled",
		zap.Int64("order_id", order.ID),
		zap.String("warning", warning),
	)

	result.Success = true
	result.Status = model.OrderStatusCanceled
	return result, nil
}
