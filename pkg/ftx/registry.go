package ftx

import (
	"sync"

	"github.com/joripage/ftx-gateway/pkg/model"
)

// SymbolRegistry holds the tradable contracts from the last contract query.
type SymbolRegistry struct {
	mu        sync.RWMutex
	contracts map[string]model.Contract
}

func NewSymbolRegistry() *SymbolRegistry {
	return &SymbolRegistry{
		contracts: make(map[string]model.Contract),
	}
}

// Replace swaps the registry contents wholesale.
func (r *SymbolRegistry) Replace(contracts []model.Contract) {
	next := make(map[string]model.Contract, len(contracts))
	for _, c := range contracts {
		next[c.Symbol] = c
	}

	r.mu.Lock()
	r.contracts = next
	r.mu.Unlock()
}

func (r *SymbolRegistry) Get(symbol string) (model.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[symbol]
	return c, ok
}

func (r *SymbolRegistry) Has(symbol string) bool {
	_, ok := r.Get(symbol)
	return ok
}

func (r *SymbolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contracts)
}

func (r *SymbolRegistry) Clear() {
	r.Replace(nil)
}

// subscriptionRegistry keeps subscriptions in insertion order for replay.
// Callers hold the owning connector's lock.
type subscriptionRegistry struct {
	keys  []string
	items map[string]model.SubscribeRequest
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		items: make(map[string]model.SubscribeRequest),
	}
}

func (r *subscriptionRegistry) add(req model.SubscribeRequest) bool {
	key := req.Key()
	if _, ok := r.items[key]; ok {
		return false
	}
	r.items[key] = req
	r.keys = append(r.keys, key)
	return true
}

func (r *subscriptionRegistry) remove(key string) (model.SubscribeRequest, bool) {
	req, ok := r.items[key]
	if !ok {
		return req, false
	}
	delete(r.items, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return req, true
}

func (r *subscriptionRegistry) list() []model.SubscribeRequest {
	out := make([]model.SubscribeRequest, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.items[k])
	}
	return out
}

func (r *subscriptionRegistry) clear() {
	r.keys = nil
	r.items = make(map[string]model.SubscribeRequest)
}
