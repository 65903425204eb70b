package autotrader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

// fakeOrderStore mimics the SQL repo, including the guarded monotonic
// update semantics.
type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[int64]*model.Order
	nextID    int64
	updateErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: make(map[int64]*model.Order),
		nextID: 1,
	}
}

func (s *fakeOrderStore) Insert(ctx context.Context, order *model.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = s.nextID
	s.nextID++
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	order.CreatedAt = time.Now()
	cp := *order
	s.orders[order.ID] = &cp
	return order.ID, nil
}

func (s *fakeOrderStore) Get(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) List(ctx context.Context, statusFilter []model.OrderStatus, limit int) ([]*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Order
	for _, o := range s.orders {
		if len(statusFilter) > 0 {
			match := false
			for _, st := range statusFilter {
				if o.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		cp := *o
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, executed bool, details model.ExecutionDetails) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return false, s.updateErr
	}
	o, ok := s.orders[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, from := range model.Predecessors(status) {
		if o.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	o.Status = status
	o.Executed = executed
	o.LastUpdated = time.Now()
	for column, value := range details {
		switch column {
		case "broker_order_id":
			o.BrokerOrderID = value.(string)
		case "broker_status":
			o.BrokerStatus = value.(string)
		case "limit_price":
			o.LimitPrice = value.(decimal.Decimal)
		case "filled":
			o.Filled = value.(decimal.Decimal)
		case "remaining":
			o.Remaining = value.(decimal.Decimal)
		case "avg_fill_price":
			o.AvgFillPrice = value.(decimal.Decimal)
		case "commission":
			o.Commission = value.(decimal.Decimal)
		case "warning":
			o.Warning = value.(string)
		}
	}
	return true, nil
}

func (s *fakeOrderStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func (s *fakeOrderStore) mustGet(id int64) *model.Order {
	o, err := s.Get(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return o
}

// fakeSession scripts venue responses per test.
type fakeSession struct {
	resolveErr error
	quoteSnap  venue.QuoteSnapshot
	quoteErr   error
	submitAck  venue.BrokerAck
	submitErr  error
	statuses   map[string]venue.BrokerStatus
	statusErr  error
	cancelErr  error

	quoteCalls  int
	submitCalls int
	statusCalls int
	cancelCalls int
}

func (f *fakeSession) ResolveContract(ctx context.Context, ticker, expiration string, strike decimal.Decimal, right venue.OptionRight) (venue.Contract, error) {
	if f.resolveErr != nil {
		return venue.Contract{}, f.resolveErr
	}
	return venue.Contract{Symbol: ticker, Expiration: expiration, Strike: strike, Right: right}, nil
}

func (f *fakeSession) Quote(ctx context.Context, c venue.Contract) (venue.QuoteSnapshot, error) {
	f.quoteCalls++
	return f.quoteSnap, f.quoteErr
}

func (f *fakeSession) SubmitOrder(ctx context.Context, c venue.Contract, t venue.OrderTicket) (venue.BrokerAck, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return venue.BrokerAck{}, f.submitErr
	}
	return f.submitAck, nil
}

func (f *fakeSession) OrderStatus(ctx context.Context, brokerOrderID string) (venue.BrokerStatus, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return venue.BrokerStatus{}, f.statusErr
	}
	st, ok := f.statuses[brokerOrderID]
	if !ok {
		return venue.BrokerStatus{Status: "NotFound"}, nil
	}
	return st, nil
}

func (f *fakeSession) CancelOrder(ctx context.Context, brokerOrderID string) error {
	f.cancelCalls++
	return f.cancelErr
}

type fakeSessions struct {
	sess       *fakeSession
	acquireErr error
	acquires   int
	releases   int
}

func (f *fakeSessions) Acquire(ctx context.Context) (VenueSession, error) {
	f.acquires++
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.sess, nil
}

func (f *fakeSessions) Release(VenueSession) {
	f.releases++
}

type capturedEvents struct {
	events []*model.OrderEvent
}

func (c *capturedEvents) Publish(ctx context.Context, ev *model.OrderEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func marketAlwaysClosed(time.Time) bool { return false }
func marketAlwaysOpen(time.Time) bool   { return true }

func pendingOrderFixture() *model.Order {
	return &model.Order{
		Ticker:     "AAPL",
		OptionType: model.OptionTypePut,
		Action:     model.OrderActionSell,
		Strike:     decimal.NewFromInt(150),
		Expiration: "20260918",
		Quantity:   1,
		Status:     model.OrderStatusPending,
	}
}

func newTestService(store *fakeOrderStore, sessions *fakeSessions, opts ...Option) *Service {
	base := []Option{WithMarketClock(marketAlwaysClosed, nil)}
	base = append(base, opts...)
	return NewService(&ServiceConfig{}, store, sessions, nil, base...)
}
