package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDFormat(t *testing.T) {
	ulid := NewULID()
	assert.Len(t, ulid, 26)
	assert.Regexp(t, `^[0-9A-HJKMNP-TV-Z]{26}$`, ulid)
}

func TestGenerateUnique(t *testing.T) {
	g := NewULIDGenerator()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		_, dup := seen[id]
		require.False(t, dup, "duplicate ID: %s", id)
		seen[id] = struct{}{}
	}
}

func TestGenerateMonotonicWithinBatch(t *testing.T) {
	g := NewULIDGenerator()
	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		// 同一毫秒内单调熵保证字典序递增
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestGenerateConcurrent(t *testing.T) {
	g := NewULIDGenerator()

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
