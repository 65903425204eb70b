package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusExecuted   OrderStatus = "executed"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// Terminal reports whether no transition may leave the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusCanceled
}

// Predecessors returns the statuses an order may hold immediately before
// moving to s. The ledger enforces this set in the UPDATE predicate so a
// write that would violate monotonicity affects zero rows.
func Predecessors(s OrderStatus) []OrderStatus {
	switch s {
	case OrderStatusProcessing:
		// processing -> processing covers broker-detail refreshes during
		// reconciliation.
		return []OrderStatus{OrderStatusPending, OrderStatusProcessing}
	case OrderStatusExecuted:
		return []OrderStatus{OrderStatusProcessing}
	case OrderStatusCanceled:
		return []OrderStatus{OrderStatusPending, OrderStatusProcessing}
	default:
		return []OrderStatus{OrderStatusPending}
	}
}

type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

type OrderAction string

const (
	OrderActionBuy  OrderAction = "BUY"
	OrderActionSell OrderAction = "SELL"
)

// ExecutionDetails is a sparse column map applied additively during a
// status update. Keys are ledger column names.
type ExecutionDetails map[string]interface{}

// Order is the persisted ledger record. Column names are stable; schema
// additions must default so old rows remain valid.
type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// identity
	Ticker     string          `gorm:"column:ticker;not null" json:"ticker"`
	OptionType OptionType      `gorm:"column:option_type;not null" json:"option_type"`
	Action     OrderAction     `gorm:"column:action;not null" json:"action"`
	Strike     decimal.Decimal `gorm:"column:strike;type:numeric(18,4)" json:"strike"`
	Expiration string          `gorm:"column:expiration;not null" json:"expiration"`

	// sizing
	Quantity int64 `gorm:"column:quantity;default:1" json:"quantity"`

	// pricing snapshot at recommendation time
	Premium decimal.Decimal `gorm:"column:premium;type:numeric(18,4);default:0" json:"premium"`
	Bid     decimal.Decimal `gorm:"column:bid;type:numeric(18,4);default:0" json:"bid"`
	Ask     decimal.Decimal `gorm:"column:ask;type:numeric(18,4);default:0" json:"ask"`
	Last    decimal.Decimal `gorm:"column:last;type:numeric(18,4);default:0" json:"last"`

	// greeks snapshot
	Delta             decimal.Decimal `gorm:"column:delta;type:numeric(18,6);default:0" json:"delta"`
	Gamma             decimal.Decimal `gorm:"column:gamma;type:numeric(18,6);default:0" json:"gamma"`
	Theta             decimal.Decimal `gorm:"column:theta;type:numeric(18,6);default:0" json:"theta"`
	Vega              decimal.Decimal `gorm:"column:vega;type:numeric(18,6);default:0" json:"vega"`
	ImpliedVolatility decimal.Decimal `gorm:"column:implied_volatility;type:numeric(18,6);default:0" json:"implied_volatility"`

	// derived at submission, immutable afterward
	LimitPrice decimal.Decimal `gorm:"column:limit_price;type:numeric(18,4);default:0" json:"limit_price"`

	// lifecycle
	Status   OrderStatus `gorm:"column:status;default:pending" json:"status"`
	Executed bool        `gorm:"column:executed;default:false" json:"executed"`

	// broker linkage, set at the pending->processing transition
	BrokerOrderID string          `gorm:"column:broker_order_id" json:"broker_order_id,omitempty"`
	BrokerStatus  string          `gorm:"column:broker_status" json:"broker_status,omitempty"`
	Filled        decimal.Decimal `gorm:"column:filled;type:numeric(18,4);default:0" json:"filled"`
	Remaining     decimal.Decimal `gorm:"column:remaining;type:numeric(18,4);default:0" json:"remaining"`
	AvgFillPrice  decimal.Decimal `gorm:"column:avg_fill_price;type:numeric(18,4);default:0" json:"avg_fill_price"`
	Commission    decimal.Decimal `gorm:"column:commission;type:numeric(18,4);default:0" json:"commission"`

	IsRollover bool `gorm:"column:is_rollover;default:false" json:"is_rollover"`

	// warning carries residual venue-side risk after a forced local cancel
	Warning string `gorm:"column:warning" json:"warning,omitempty"`

	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime" json:"last_updated"`
}

func (Order) TableName() string { return "orders" }

var (
	ErrNotPending    = errors.New("order is not pending")
	ErrNotProcessing = errors.New("order is not processing")
	ErrNotTerminal   = errors.New("order is not terminal")
)

// PendingOrder is a typed view of an order before submission. Broker fields
// do not exist yet and are deliberately unreachable through it.
type PendingOrder struct {
	o *Order
}

// Pending narrows the order to its pre-submission view.
func (o *Order) Pending() (PendingOrder, error) {
	if o.Status != OrderStatusPending {
		return PendingOrder{}, ErrNotPending
	}
	return PendingOrder{o: o}, nil
}

func (p PendingOrder) ID() int64                { return p.o.ID }
func (p PendingOrder) Ticker() string           { return p.o.Ticker }
func (p PendingOrder) OptionType() OptionType   { return p.o.OptionType }
func (p PendingOrder) Action() OrderAction      { return p.o.Action }
func (p PendingOrder) Strike() decimal.Decimal  { return p.o.Strike }
func (p PendingOrder) Expiration() string       { return p.o.Expiration }
func (p PendingOrder) Quantity() int64          { return p.o.Quantity }
func (p PendingOrder) Bid() decimal.Decimal     { return p.o.Bid }
func (p PendingOrder) Ask() decimal.Decimal     { return p.o.Ask }
func (p PendingOrder) Last() decimal.Decimal    { return p.o.Last }
func (p PendingOrder) Premium() decimal.Decimal { return p.o.Premium }

// Validate checks the fields submission requires. The ledger accepts
// partially filled-in recommendations; execution does not.
func (p PendingOrder) Validate() error {
	switch {
	case p.o.Ticker == "":
		return errors.New("missing ticker")
	case p.o.Expiration == "":
		return errors.New("missing expiration")
	case !p.o.Strike.IsPositive():
		return errors.New("missing or non-positive strike")
	case p.o.OptionType != OptionTypeCall && p.o.OptionType != OptionTypePut:
		return errors.New("missing or invalid option_type")
	case p.o.Action != OrderActionBuy && p.o.Action != OrderActionSell:
		return errors.New("missing or invalid action")
	case p.o.Quantity <= 0:
		return errors.New("quantity must be positive")
	}
	return nil
}

// ProcessingOrder is a typed view of an order the venue is working. It is
// the only pre-terminal view that exposes the broker linkage.
type ProcessingOrder struct {
	o *Order
}

// Processing narrows the order to its venue-working view. It also requires
// the broker linkage the processing status implies.
func (o *Order) Processing() (ProcessingOrder, error) {
	if o.Status != OrderStatusProcessing || o.BrokerOrderID == "" {
		return ProcessingOrder{}, ErrNotProcessing
	}
	return ProcessingOrder{o: o}, nil
}

func (p ProcessingOrder) BrokerOrderID() string { return p.o.BrokerOrderID }
func (p ProcessingOrder) BrokerStatus() string  { return p.o.BrokerStatus }

// TerminalOrder is a typed view of an executed or canceled order.
type TerminalOrder struct {
	o *Order
}

func (o *Order) Terminal() (TerminalOrder, error) {
	if !o.Status.Terminal() {
		return TerminalOrder{}, ErrNotTerminal
	}
	return TerminalOrder{o: o}, nil
}

func (t TerminalOrder) FinalBrokerStatus() string { return t.o.BrokerStatus }
func (t TerminalOrder) Warning() string           { return t.o.Warning }

// Cancelable reports whether a cancel request may act on the order.
func (o *Order) Cancelable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}
