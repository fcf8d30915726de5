// Package scheduler runs the background orchestration: pipeline coordination,
// upload dispatch, trend polling, and crash recovery.
package scheduler

import (
	"context"
	"sync"

	businessflow "github.com/trendforge/trendforge/business_flow"
)

// Gate bounds concurrent work plus a waiting queue. Execution slots are
// handed out by Acquire; admission (slot or queue position) is claimed by
// Reserve before any work is persisted.
type Gate struct {
	mu       sync.Mutex
	slots    chan struct{}
	admitted int
	capacity int
	maxQueue int
	waiters  int
}

// NewGate creates a gate with the given execution capacity and queue bound
func NewGate(capacity, maxQueue int) *Gate {
	if capacity <= 0 {
		capacity = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &Gate{
		slots:    make(chan struct{}, capacity),
		capacity: capacity,
		maxQueue: maxQueue,
	}
}

// Reserve claims admission for one unit of work. Position 0 means an
// execution slot is immediately available; otherwise it is the number of
// admitted units ahead. The release func compensates a reservation that
// never ran and is safe to call more than once.
func (g *Gate) Reserve() (int, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.admitted >= g.capacity+g.maxQueue {
		return 0, nil, businessflow.ErrQueueFull
	}
	g.admitted++

	position := g.admitted - g.capacity
	if position < 0 {
		position = 0
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			g.admitted--
			g.mu.Unlock()
		})
	}
	return position, release, nil
}

// Acquire blocks until an execution slot is free or the context ends. The
// returned release func returns the slot and is safe to call more than once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	g.mu.Lock()
	g.waiters++
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.waiters--
		g.mu.Unlock()
	}()

	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-g.slots })
	}
	return release, nil
}

// TryAcquire takes an execution slot without blocking
func (g *Gate) TryAcquire() (func(), bool) {
	select {
	case g.slots <- struct{}{}:
	default:
		return nil, false
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-g.slots })
	}
	return release, true
}

// Complete returns an admission claimed by Reserve once the work is terminal
func (g *Gate) Complete() {
	g.mu.Lock()
	if g.admitted > 0 {
		g.admitted--
	}
	g.mu.Unlock()
}

// Admitted returns how many units currently hold admission
func (g *Gate) Admitted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitted
}

// Waiters returns how many callers are blocked in Acquire
func (g *Gate) Waiters() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters
}

// AdmissionManager owns the global generation gate and one gate per upload
// platform
type AdmissionManager struct {
	generation *Gate

	mu        sync.RWMutex
	platforms map[string]*Gate
}

// NewAdmissionManager creates the manager with the generation gate sized to
// the pipeline config
func NewAdmissionManager(maxConcurrentJobs, queueDepth int) *AdmissionManager {
	return &AdmissionManager{
		generation: NewGate(maxConcurrentJobs, queueDepth),
		platforms:  make(map[string]*Gate),
	}
}

// Generation returns the global generation gate
func (m *AdmissionManager) Generation() *Gate {
	return m.generation
}

// RegisterPlatform creates an upload gate for the platform
func (m *AdmissionManager) RegisterPlatform(name string, workers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.platforms[name] = NewGate(workers, workers*4)
}

// Platform returns the upload gate for the platform, or nil when unknown
func (m *AdmissionManager) Platform(name string) *Gate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.platforms[name]
}
