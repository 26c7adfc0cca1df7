package ftx

import (
	"strconv"
	"sync"
	"time"
)

const (
	clientIDSeedMultiplier = 1_000_000
	clientIDSequenceStart  = 1_000_000
	clientIDSeedLayout     = "060102150405"
)

// ClientOrderIDGenerator issues ids as connectSeed + sequence. The sequence is
// never reset and the seed never moves backwards, so ids only grow for the
// life of the process, across reconnects.
type ClientOrderIDGenerator struct {
	mu   sync.Mutex
	seed int64
	seq  int64
}

func NewClientOrderIDGenerator() *ClientOrderIDGenerator {
	return &ClientOrderIDGenerator{seq: clientIDSequenceStart}
}

// ConnectSeed renders t as yymmddHHMMSS scaled by 1e6.
func ConnectSeed(t time.Time) int64 {
	v, _ := strconv.ParseInt(t.Format(clientIDSeedLayout), 10, 64)
	return v * clientIDSeedMultiplier
}

// Reset adopts the seed for a new connection and returns the seed in use.
func (g *ClientOrderIDGenerator) Reset(connectTime time.Time) int64 {
	seed := ConnectSeed(connectTime)

	g.mu.Lock()
	defer g.mu.Unlock()
	if seed > g.seed {
		g.seed = seed
	}
	return g.seed
}

func (g *ClientOrderIDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seed + g.seq
}

func (g *ClientOrderIDGenerator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}
