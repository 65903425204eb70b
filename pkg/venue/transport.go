package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OptionRight string

const (
	RightCall OptionRight = "C"
	RightPut  OptionRight = "P"
)

// Contract identifies a venue-qualified option: underlying, expiration,
// strike and right. ConID is assigned by the venue during qualification.
type Contract struct {
	Symbol     string
	Expiration string // YYYYMMDD
	Strike     decimal.Decimal
	Right      OptionRight
	Exchange   string
	Currency   string
	ConID      int64
}

// QuoteSnapshot is an immutable point-in-time view of a contract's market
// data. Any field may be zero when the venue has no value for it.
type QuoteSnapshot struct {
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	Timestamp time.Time       `json:"timestamp"`
}

// HasPrice reports whether the snapshot carries at least one usable price.
func (q QuoteSnapshot) HasPrice() bool {
	return q.Bid.IsPositive() || q.Ask.IsPositive() || q.Last.IsPositive()
}

// OrderTicket is the venue-facing order request. Limit orders only; the
// ledger computes LimitPrice before submission.
type OrderTicket struct {
	Action      string // BUY or SELL
	Quantity    int64
	LimitPrice  decimal.Decimal
	TimeInForce string // DAY, GTC
}

// BrokerAck is the venue acknowledgment returned by order placement.
type BrokerAck struct {
	OrderID      string
	Status       string
	Filled       decimal.Decimal
	Remaining    decimal.Decimal
	AvgFillPrice decimal.Decimal
}

// BrokerStatus is the venue-reported state of a working or finished order.
type BrokerStatus struct {
	Status       string
	Filled       decimal.Decimal
	Remaining    decimal.Decimal
	AvgFillPrice decimal.Decimal
	Commission   decimal.Decimal
	WhyHeld      string
}

// Subscription is a scoped market-data stream. Callers must Cancel it
// before returning, on every path.
type Subscription interface {
	// Snapshot returns the current best-effort view; values accumulate as
	// ticks arrive.
	Snapshot() QuoteSnapshot
	Cancel()
}

// Transport is the opaque capability set of the execution venue. The wire
// protocol behind it is not this repository's concern.
type Transport interface {
	Connect(ctx context.Context, host string, port int, clientID int, readonly bool) error
	Disconnect() error
	IsConnected() bool

	QualifyContract(ctx context.Context, c Contract) (Contract, error)
	RequestMarketData(ctx context.Context, c Contract) (Subscription, error)
	PlaceOrder(ctx context.Context, c Contract, t OrderTicket) (BrokerAck, error)
	OrderStatus(ctx context.Context, brokerOrderID string) (BrokerStatus, error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
}
