package ftx

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/model"
)

// Publisher receives every normalized record. Records are handed over by
// pointer and are not touched again by the connectors after publication.
type Publisher interface {
	OnTick(tick *model.Tick)
	OnOrder(order *model.Order)
	OnTrade(trade *model.Trade)
	OnAccount(account *model.Account)
	OnPosition(position *model.Position)
	OnContract(contract *model.Contract)
	OnLog(msg string)
}

// State is shared by the REST and stream connectors of one gateway.
type State struct {
	Gateway   string
	Location  *time.Location
	Symbols   *SymbolRegistry
	Orders    *OrderReconciler
	OrderIDs  *ClientOrderIDGenerator
	Snapshots *Snapshots
}

func NewState(gateway string, loc *time.Location, logger *zap.Logger) *State {
	if loc == nil {
		loc = time.UTC
	}
	return &State{
		Gateway:   gateway,
		Location:  loc,
		Symbols:   NewSymbolRegistry(),
		Orders:    NewOrderReconciler(gateway, loc, logger),
		OrderIDs:  NewClientOrderIDGenerator(),
		Snapshots: &Snapshots{},
	}
}

// Reset clears the caches. The id generator is left alone.
func (s *State) Reset() {
	s.Symbols.Clear()
	s.Orders.Reset()
	s.Snapshots.SetAccounts(nil)
	s.Snapshots.SetPositions(nil)
}

// Snapshots keeps the latest account and position query results.
type Snapshots struct {
	mu        sync.RWMutex
	accounts  []model.Account
	positions []model.Position
}

func (s *Snapshots) SetAccounts(accounts []model.Account) {
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
}

func (s *Snapshots) Accounts() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Account(nil), s.accounts...)
}

func (s *Snapshots) SetPositions(positions []model.Position) {
	s.mu.Lock()
	s.positions = positions
	s.mu.Unlock()
}

func (s *Snapshots) Positions() []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Position(nil), s.positions...)
}
