package venue

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

// PaperTransport simulates the execution venue in memory. Orders are
// accepted and held in Submitted state until canceled or force-filled; it
// exists for pre-production validation and for running the engine without a
// live venue connection.
type PaperTransport struct {
	mu        sync.Mutex
	connected bool
	clientIDs map[int]bool
	nextID    int64
	orders    map[string]*paperOrder
	quotes    map[string]QuoteSnapshot
}

type paperOrder struct {
	ticket   OrderTicket
	contract Contract
	status   BrokerStatus
}

func NewPaperTransport() *PaperTransport {
	return &PaperTransport{
		clientIDs: make(map[int]bool),
		nextID:    1,
		orders:    make(map[string]*paperOrder),
		quotes:    make(map[string]QuoteSnapshot),
	}
}

func (p *PaperTransport) Connect(ctx context.Context, host string, port int, clientID int, readonly bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clientIDs[clientID] && !p.connected {
		return fmt.Errorf("%w: %d", ErrIDCollision, clientID)
	}
	p.clientIDs[clientID] = true
	p.connected = true
	return nil
}

func (p *PaperTransport) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *PaperTransport) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// SetQuote seeds market data for a contract key, for simulations.
func (p *PaperTransport) SetQuote(c Contract, q QuoteSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[contractKey(c)] = q
}

func (p *PaperTransport) QualifyContract(ctx context.Context, c Contract) (Contract, error) {
	if c.Symbol == "" || c.Expiration == "" || !c.Strike.IsPositive() {
		return Contract{}, ErrContractNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c.ConID = p.nextID
	p.nextID++
	return c, nil
}

func (p *PaperTransport) RequestMarketData(ctx context.Context, c Contract) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &paperSubscription{snap: p.quotes[contractKey(c)]}, nil
}

func (p *PaperTransport) PlaceOrder(ctx context.Context, c Contract, t OrderTicket) (BrokerAck, error) {
	if t.Quantity <= 0 {
		return BrokerAck{}, fmt.Errorf("invalid quantity %d", t.Quantity)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	id := strconv.FormatInt(p.nextID, 10)
	p.nextID++
	remaining := decimal.NewFromInt(t.Quantity)
	p.orders[id] = &paperOrder{
		ticket:   t,
		contract: c,
		status: BrokerStatus{
			Status:    "Submitted",
			Remaining: remaining,
		},
	}
	return BrokerAck{
		OrderID:   id,
		Status:    "Submitted",
		Remaining: remaining,
	}, nil
}

func (p *PaperTransport) OrderStatus(ctx context.Context, brokerOrderID string) (BrokerStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[brokerOrderID]
	if !ok {
		return BrokerStatus{Status: "NotFound"}, nil
	}
	return o.status, nil
}

func (p *PaperTransport) CancelOrder(ctx context.Context, brokerOrderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[brokerOrderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, brokerOrderID)
	}
	o.status.Status = "Cancelled"
	o.status.Remaining = decimal.Zero
	return nil
}

// Fill marks a working paper order as filled at its limit price.
func (p *PaperTransport) Fill(brokerOrderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[brokerOrderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, brokerOrderID)
	}
	o.status.Status = "Filled"
	o.status.Filled = decimal.NewFromInt(o.ticket.Quantity)
	o.status.Remaining = decimal.Zero
	o.status.AvgFillPrice = o.ticket.LimitPrice
	return nil
}

func contractKey(c Contract) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.Symbol, c.Expiration, c.Strike.String(), c.Right)
}

type paperSubscription struct {
	snap QuoteSnapshot
}

func (s *paperSubscription) Snapshot() QuoteSnapshot { return s.snap }
func (s *paperSubscription) Cancel()                 {}
