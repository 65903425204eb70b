package autotrader

import (
	"github.com/shopspring/decimal"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
)

// ExecutionResult reports one execute call. A hard failure carries Error;
// Success with a set BrokerOrderID means the venue is working the order.
type ExecutionResult struct {
	Success       bool              `json:"success"`
	OrderID       int64             `json:"order_id"`
	BrokerOrderID string            `json:"broker_order_id,omitempty"`
	Status        model.OrderStatus `json:"status"`
	LimitPrice    decimal.Decimal   `json:"limit_price"`
	Error         string            `json:"error,omitempty"`
}

// CancelResult reports one cancel call. Success with a non-empty Warning is
// the "succeeded with caveats" case: the ledger converged to canceled but
// the venue did not confirm, so the order may still be live there.
type CancelResult struct {
	Success    bool              `json:"success"`
	OrderID    int64             `json:"order_id"`
	Status     model.OrderStatus `json:"status"`
	Warning    string            `json:"warning,omitempty"`
	VenueError string            `json:"venue_error,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ReconcileResult reports one reconciliation sweep.
type ReconcileResult struct {
	UpdatedCount  int            `json:"updated_count"`
	UpdatedOrders []*model.Order `json:"updated_orders"`
	// MismatchedOrderIDs lists ledger orders the venue has no record of.
	// They are left untouched and need operator review.
	MismatchedOrderIDs []int64 `json:"mismatched_order_ids,omitempty"`
}
