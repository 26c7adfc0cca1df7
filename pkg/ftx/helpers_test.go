package ftx

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/model"
)

type recordingPublisher struct {
	mu        sync.Mutex
	ticks     []model.Tick
	orders    []model.Order
	trades    []model.Trade
	accounts  []model.Account
	positions []model.Position
	contracts []model.Contract
	logs      []string
}

func (p *recordingPublisher) OnTick(tick *model.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, *tick)
}

func (p *recordingPublisher) OnOrder(order *model.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, *order)
}

func (p *recordingPublisher) OnTrade(trade *model.Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades = append(p.trades, *trade)
}

func (p *recordingPublisher) OnAccount(account *model.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = append(p.accounts, *account)
}

func (p *recordingPublisher) OnPosition(position *model.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = append(p.positions, *position)
}

func (p *recordingPublisher) OnContract(contract *model.Contract) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contracts = append(p.contracts, *contract)
}

func (p *recordingPublisher) OnLog(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, msg)
}

func (p *recordingPublisher) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.logs...)
}

func (p *recordingPublisher) Orders() []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Order(nil), p.orders...)
}

func (p *recordingPublisher) Trades() []model.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Trade(nil), p.trades...)
}

func (p *recordingPublisher) Ticks() []model.Tick {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Tick(nil), p.ticks...)
}

type fakeSender struct {
	mu     sync.Mutex
	frames []any
	err    error
}

func (s *fakeSender) SendJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, v)
	return nil
}

func (s *fakeSender) Frames() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.frames...)
}

func (s *fakeSender) Reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadLocation(DefaultTimezone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState("FTX", testLocation(t), zaptest.NewLogger(t))
}

func newTestLogger(t *testing.T) *logging.Logger {
	return logging.Wrap(zaptest.NewLogger(t))
}
