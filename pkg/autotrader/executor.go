package autotrader

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

// Execute submits a pending order to the venue and records the broker
// linkage. On success the order moves pending -> processing atomically with
// broker_order_id, broker_status and limit_price; every failure before the
// persist leaves the ledger untouched.
func (s *Service) Execute(ctx context.Context, orderID int64) (ExecutionResult, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	result := ExecutionResult{OrderID: orderID}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: id=%d", errOrderNotFound, orderID)
	}
	result.Status = order.Status

	pending, err := order.Pending()
	if err != nil {
		result.Error = fmt.Sprintf("cannot execute order with status %q, only pending orders can be executed", order.Status)
		return result, fmt.Errorf("%w: execute requires pending, got %s", errInvalidState, order.Status)
	}

	if err := pending.Validate(); err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: %v", errValidation, err)
	}

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: %v", errConnection, err)
	}
	defer s.sessions.Release(sess)

	bid, ask, last := pending.Bid(), pending.Ask(), pending.Last()
	s.logger.Info("price fields in order",
		zap.Int64("order_id", orderID),
		zap.String("bid", bid.String()),
		zap.String("ask", ask.String()),
		zap.String("last", last.String()),
		zap.String("premium", pending.Premium().String()),
		zap.String("strike", pending.Strike().String()),
	)

	// A dead stored bid with the market open usually means the snapshot is
	// stale; one live refresh, best effort only.
	if !bid.IsPositive() && s.marketOpen(s.now()) {
		if snap, ok := s.refreshQuote(ctx, sess, pending); ok {
			if snap.Bid.IsPositive() {
				bid = snap.Bid
			}
			if snap.Ask.IsPositive() {
				ask = snap.Ask
			}
			if snap.Last.IsPositive() {
				last = snap.Last
			}
		}
	}

	limitPrice := ResolveLimitPrice(bid, ask, last, pending.Premium(), pending.Strike())
	result.LimitPrice = limitPrice
	s.logger.Info("resolved limit price",
		zap.Int64("order_id", orderID),
		zap.String("limit_price", limitPrice.String()),
	)

	contract, err := sess.ResolveContract(ctx, pending.Ticker(), pending.Expiration(), pending.Strike(), optionRight(pending.OptionType()))
	if err != nil {
		result.Error = err.Error()
		return result, classifyVenueError(err)
	}

	ack, err := sess.SubmitOrder(ctx, contract, venue.OrderTicket{
		Action:     string(pending.Action()),
		Quantity:   pending.Quantity(),
		LimitPrice: limitPrice,
	})
	if err != nil {
		result.Error = err.Error()
		return result, classifyVenueError(err)
	}

	details := model.ExecutionDetails{
		"broker_order_id": ack.OrderID,
		"broker_status":   ack.Status,
		"filled":          ack.Filled,
		"remaining":       ack.Remaining,
		"avg_fill_price":  ack.AvgFillPrice,
		"limit_price":     limitPrice,
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, model.OrderStatusProcessing, true, details)
	if err != nil || !updated {
		// The venue already has the order. Losing the broker id here is a
		// data-loss risk; surface it loudly and rely on the next
		// reconciliation sweep to catch up.
		s.logger.Error("order submitted but ledger persist failed, reconciliation required",
			zap.Int64("order_id", orderID),
			zap.String("broker_order_id", ack.OrderID),
			zap.Bool("row_changed", updated),
			zap.Error(err),
		)
		result.BrokerOrderID = ack.OrderID
		result.Error = "order submitted to venue but ledger update failed; will reconcile"
		if err == nil {
			err = fmt.Errorf("ledger update affected no row for order %d", orderID)
		}
		return result, err
	}

	order.Status = model.OrderStatusProcessing
	order.Executed = true
	order.BrokerOrderID = ack.OrderID
	order.BrokerStatus = ack.Status
	order.LimitPrice = limitPrice
	s.publishEvent(ctx, model.NewOrderEvent(order, model.EventTypeSubmitted, "", s.now()))

	s.logger.Info("order submitted to venue",
		zap.Int64("order_id", orderID),
		zap.String("broker_order_id", ack.OrderID),
		zap.String("broker_status", ack.Status),
	)

	result.Success = true
	result.Status = model.OrderStatusProcessing
	result.BrokerOrderID = ack.OrderID
	return result, nil
}

// refreshQuote resolves the contract and polls one live snapshot, going
// through the cache when one is installed. Failure is non-fatal.
func (s *Service) refreshQuote(ctx context.Context, sess VenueSession, pending model.PendingOrder) (venue.QuoteSnapshot, bool) {
	contract, err := sess.ResolveContract(ctx, pending.Ticker(), pending.Expiration(), pending.Strike(), optionRight(pending.OptionType()))
	if err != nil {
		s.logger.Warn("quote refresh: contract resolution failed",
			zap.Int64("order_id", pending.ID()),
			zap.Error(err),
		)
		return venue.QuoteSnapshot{}, false
	}

	if s.quotes != nil {
		if snap, ok := s.quotes.Get(ctx, contract); ok {
			return snap, true
		}
	}

	snap, err := sess.Quote(ctx, contract)
	if err != nil {
		s.logger.Warn("quote refresh failed, proceeding with stored prices",
			zap.Int64("order_id", pending.ID()),
			zap.Error(err),
		)
		return venue.QuoteSnapshot{}, false
	}
	if s.quotes != nil && snap.HasPrice() {
		s.quotes.Put(ctx, contract, snap)
	}
	return snap, true
}

// classifyVenueError separates a lost session, which is retryable after
// reconnect, from a rejection of the order itself.
func classifyVenueError(err error) error {
	if errors.Is(err, venue.ErrNotConnected) {
		return fmt.Errorf("%w: %v", errConnection, err)
	}
	return fmt.Errorf("%w: %v", errBrokerRejection, err)
}

func optionRight(t model.OptionType) venue.OptionRight {
	if t == model.OptionTypePut {
		return venue.RightPut
	}
	return venue.RightCall
}
