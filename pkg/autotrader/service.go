package autotrader

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mpr89/wheeltrader/pkg/ledger/repo"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

// VenueSession is the per-call capability set a coordinator needs from an
// acquired session.
type VenueSession interface {
	ResolveContract(ctx context.Context, ticker, expiration string, strike decimal.Decimal, right venue.OptionRight) (venue.Contract, error)
	Quote(ctx context.Context, c venue.Contract) (venue.QuoteSnapshot, error)
	SubmitOrder(ctx context.Context, c venue.Contract, t venue.OrderTicket) (venue.BrokerAck, error)
	OrderStatus(ctx context.Context, brokerOrderID string) (venue.BrokerStatus, error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
}

// SessionSource hands out connected sessions on demand and takes them back
// when the coordinator call is done.
type SessionSource interface {
	Acquire(ctx context.Context) (VenueSession, error)
	Release(VenueSession)
}

// QuoteCache fronts the venue's bounded-wait quote poll.
type QuoteCache interface {
	Get(ctx context.Context, c venue.Contract) (venue.QuoteSnapshot, bool)
	Put(ctx context.Context, c venue.Contract, snap venue.QuoteSnapshot)
}

type ServiceConfig struct {
	// ReconcileBatch bounds one reconciliation sweep. Defaults to 50.
	ReconcileBatch int `yaml:"reconcile_batch"`
}

func (c *ServiceConfig) reconcileBatch() int {
	if c == nil || c.ReconcileBatch <= 0 {
		return 50
	}
	return c.ReconcileBatch
}

// Service drives the order lifecycle: execution, reconciliation and
// cancellation over one ledger and one venue session source. Work on the
// same order id is serialized; different ids proceed concurrently.
type Service struct {
	cfg      *ServiceConfig
	orders   repo.IOrder
	sessions SessionSource
	quotes   QuoteCache
	events   EventPublisher
	logger   *zap.Logger

	// MarketOpen gates the live quote refresh during execution.
	marketOpen func(time.Time) bool
	now        func() time.Time

	orderLocks sync.Map // order id -> *sync.Mutex
}

type Option func(*Service)

// WithQuoteCache installs a snapshot cache in front of venue quotes.
func WithQuoteCache(c QuoteCache) Option {
	return func(s *Service) { s.quotes = c }
}

// WithEventPublisher installs the audit event bus.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMarketClock overrides the market-hours gate, for tests and paper runs.
func WithMarketClock(open func(time.Time) bool, now func() time.Time) Option {
	return func(s *Service) {
		if open != nil {
			s.marketOpen = open
		}
		if now != nil {
			s.now = now
		}
	}
}

func NewService(cfg *ServiceConfig, orders repo.IOrder, sessions SessionSource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:        cfg,
		orders:     orders,
		sessions:   sessions,
		logger:     logger,
		marketOpen: DefaultMarketOpen,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockOrder serializes read-modify-write sequences per order id. The
// store-level guarded update is the backstop for writers outside this
// process.
func (s *Service) lockOrder(id int64) func() {
	v, _ := s.orderLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
