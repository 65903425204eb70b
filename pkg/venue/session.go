package venue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SessionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Readonly bool   `yaml:"readonly"`

	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	QuoteWaitMilliseconds int `yaml:"quote_wait_ms"`
	QuotePollAttempts     int `yaml:"quote_poll_attempts"`
}

func (c *SessionConfig) connectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c *SessionConfig) quotePollInterval() time.Duration {
	if c.QuoteWaitMilliseconds <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.QuoteWaitMilliseconds) * time.Millisecond
}

func (c *SessionConfig) quotePollAttempts() int {
	if c.QuotePollAttempts <= 0 {
		return 10
	}
	return c.QuotePollAttempts
}

// NewClientID generates a collision-resistant venue client id from the
// current time plus a random component.
func NewClientID() int {
	return int(time.Now().Unix()%10000) + 1000 + rand.Intn(9000)
}

// Session owns one authenticated connection to the venue. A session is
// exclusively held by the coordinator that acquired it for the duration of
// one call; it is not shared ambient state.
type Session struct {
	cfg       *SessionConfig
	transport Transport
	clientID  int
	logger    *zap.Logger

	mu        sync.Mutex
	connected bool
}

func NewSession(cfg *SessionConfig, transport Transport, clientID int, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:       cfg,
		transport: transport,
		clientID:  clientID,
		logger:    logger,
	}
}

func (s *Session) ClientID() int { return s.clientID }

// Connect establishes the venue connection. Idempotent when already
// connected. Transient failures are retried with exponential backoff inside
// the configured window; a client-id collision aborts immediately.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected && s.transport.IsConnected() {
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.cfg.connectTimeout()

	attempt := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := s.transport.Connect(ctx, s.cfg.Host, s.cfg.Port, s.clientID, s.cfg.Readonly)
		if err == nil {
			return nil
		}
		if IsCollision(err) {
			return backoff.Permanent(&ConnectError{Collision: true, ClientID: s.clientID, Err: err})
		}
		s.logger.Warn("venue connect failed, will retry",
			zap.Int("client_id", s.clientID),
			zap.Error(err),
		)
		return err
	}

	if err := backoff.Retry(attempt, bo); err != nil {
		if IsCollision(err) {
			s.logger.Error("client id already in use, a new id is required",
				zap.Int("client_id", s.clientID))
			return err
		}
		return &ConnectError{ClientID: s.clientID, Err: err}
	}

	s.connected = true
	s.logger.Info("connected to venue",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.Int("client_id", s.clientID),
	)
	return nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && s.transport.IsConnected()
}

// Disconnect releases venue resources. Safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return
	}
	if err := s.transport.Disconnect(); err != nil {
		s.logger.Warn("venue disconnect error", zap.Error(err))
	}
	s.connected = false
	s.logger.Info("disconnected from venue", zap.Int("client_id", s.clientID))
}

// ResolveContract qualifies an option contract with the venue.
func (s *Session) ResolveContract(ctx context.Context, ticker, expiration string, strike decimal.Decimal, right OptionRight) (Contract, error) {
	if !s.IsConnected() {
		return Contract{}, ErrNotConnected
	}
	c := Contract{
		Symbol:     ticker,
		Expiration: expiration,
		Strike:     strike,
		Right:      right,
		Exchange:   "SMART",
		Currency:   "USD",
	}
	qualified, err := s.transport.QualifyContract(ctx, c)
	if err != nil {
		return Contract{}, fmt.Errorf("qualify %s %s %s %s: %w", ticker, expiration, strike, right, err)
	}
	return qualified, nil
}

// Quote polls a scoped market-data subscription within a bounded wait
// window and returns the best-effort snapshot, complete or not. The
// subscription is released on every path.
func (s *Session) Quote(ctx context.Context, c Contract) (QuoteSnapshot, error) {
	if !s.IsConnected() {
		return QuoteSnapshot{}, ErrNotConnected
	}

	sub, err := s.transport.RequestMarketData(ctx, c)
	if err != nil {
		return QuoteSnapshot{}, fmt.Errorf("request market data: %w", err)
	}
	defer sub.Cancel()

	interval := s.cfg.quotePollInterval()
	snap := sub.Snapshot()
	for i := 0; i < s.cfg.quotePollAttempts() && !snap.HasPrice(); i++ {
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-time.After(interval):
		}
		snap = sub.Snapshot()
	}

	snap.Timestamp = time.Now()
	return snap, nil
}

// SubmitOrder places a limit order and returns the broker acknowledgment
// with the venue-assigned order id.
func (s *Session) SubmitOrder(ctx context.Context, c Contract, t OrderTicket) (BrokerAck, error) {
	if !s.IsConnected() {
		return BrokerAck{}, ErrNotConnected
	}
	if t.TimeInForce == "" {
		t.TimeInForce = "DAY"
	}
	ack, err := s.transport.PlaceOrder(ctx, c, t)
	if err != nil {
		return BrokerAck{}, err
	}
	return ack, nil
}

// OrderStatus queries the venue for the current state of a broker order.
func (s *Session) OrderStatus(ctx context.Context, brokerOrderID string) (BrokerStatus, error) {
	if !s.IsConnected() {
		return BrokerStatus{}, ErrNotConnected
	}
	return s.transport.OrderStatus(ctx, brokerOrderID)
}

// CancelOrder asks the venue to cancel a working order.
func (s *Session) CancelOrder(ctx context.Context, brokerOrderID string) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	return s.transport.CancelOrder(ctx, brokerOrderID)
}

// SessionFactory hands out connected sessions on demand. A live session is
// reused, a dropped one is reconnected with its existing client id, and a
// collision forces a fresh id on the next attempt. The factory counts
// holders so a shared session survives until the last coordinator releases
// it.
type SessionFactory struct {
	cfg          *SessionConfig
	newTransport func() Transport
	logger       *zap.Logger

	mu      sync.Mutex
	current *Session
	holders int
}

func NewSessionFactory(cfg *SessionConfig, newTransport func() Transport, logger *zap.Logger) *SessionFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionFactory{
		cfg:          cfg,
		newTransport: newTransport,
		logger:       logger,
	}
}

// Acquire returns a connected session. The caller holds it until Release;
// concurrent callers share the session and the factory keeps it alive until
// every holder is done.
func (f *SessionFactory) Acquire(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil {
		if f.current.IsConnected() {
			f.holders++
			return f.current, nil
		}
		// Reconnect with the same client id first.
		if err := f.current.Connect(ctx); err == nil {
			f.holders++
			return f.current, nil
		} else if !IsCollision(err) {
			f.logger.Warn("reconnect with existing client id failed, creating new session",
				zap.Int("client_id", f.current.ClientID()),
				zap.Error(err),
			)
		}
	}

	sess := NewSession(f.cfg, f.newTransport(), NewClientID(), f.logger)
	if err := sess.Connect(ctx); err != nil {
		if IsCollision(err) {
			// One regeneration: a time+random id colliding twice in a row
			// means something else is wrong at the venue.
			sess = NewSession(f.cfg, f.newTransport(), NewClientID(), f.logger)
			if err2 := sess.Connect(ctx); err2 != nil {
				return nil, err2
			}
			f.current = sess
			f.holders = 1
			return sess, nil
		}
		return nil, err
	}

	f.current = sess
	f.holders = 1
	return sess, nil
}

// Release returns the session after a coordinator call. The connection is
// torn down only when no other coordinator still holds it; the next Acquire
// reconnects on demand.
func (f *SessionFactory) Release(s *Session) {
	if s == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if s != f.current {
		// A session the factory already replaced has no other holders.
		s.Disconnect()
		return
	}
	if f.holders > 0 {
		f.holders--
	}
	if f.holders == 0 {
		s.Disconnect()
	}
}
