package ftx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSeed(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, int64(210304050607_000000), ConnectSeed(ts))
}

func TestClientOrderIDStartsAfterSeed(t *testing.T) {
	g := NewClientOrderIDGenerator()
	seed := g.Reset(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC))

	assert.Equal(t, seed+1_000_001, g.Next())
	assert.Equal(t, seed+1_000_002, g.Next())
}

func TestClientOrderIDAcrossReconnect(t *testing.T) {
	g := NewClientOrderIDGenerator()
	first := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	g.Reset(first)
	var before []int64
	for i := 0; i < 5; i++ {
		before = append(before, g.Next())
	}

	g.Reset(first.Add(time.Second))
	var after []int64
	for i := 0; i < 5; i++ {
		after = append(after, g.Next())
	}

	assert.Less(t, before[len(before)-1], after[0])
}

func TestClientOrderIDSeedNeverMovesBack(t *testing.T) {
	g := NewClientOrderIDGenerator()
	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	g.Reset(now)
	last := g.Next()
	seed := g.Reset(now.Add(-time.Hour))

	assert.Equal(t, ConnectSeed(now), seed)
	assert.Greater(t, g.Next(), last)
}

func TestClientOrderIDConcurrent(t *testing.T) {
	g := NewClientOrderIDGenerator()
	g.Reset(time.Now())

	const workers, perWorker = 8, 200
	ids := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}
