// Package id provides unique ID generation for docseek.
//
// IDs are ULIDs: lexicographically sortable, timestamp-prefixed, and safe
// to use as primary keys and file name prefixes.
//
// Usage:
//
//	docID := id.NewULID() // e.g., "01ARZ3NDEKTSV4RRFFQ69G5FAV"
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string
}

// ULIDGenerator generates ULIDs from a monotonic entropy source.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a new ULID generator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

var (
	defaultULID *ULIDGenerator
	initOnce    sync.Once
)

// NewULID generates a new ULID string using the default generator.
func NewULID() string {
	initOnce.Do(func() {
		defaultULID = NewULIDGenerator()
	})
	return defaultULID.Generate()
}
