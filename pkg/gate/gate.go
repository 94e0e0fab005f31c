// Package gate limits how many commands may run at once for a single group.
// Acquisition never waits: a caller that finds the gate full gets ErrBusy.
package gate

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when the gate for a key is already at capacity
var ErrBusy = errors.New("gate: busy")

// Local is an in-process gate keyed by group. Slots are created lazily on
// first use and live as long as the gate.
type Local struct {
	capacity int

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates a gate allowing capacity concurrent holders per key.
// A capacity below 1 is treated as 1.
func NewLocal(capacity int) *Local {
	if capacity < 1 {
		capacity = 1
	}
	return &Local{
		capacity: capacity,
		slots:    make(map[string]chan struct{}),
	}
}

func (g *Local) slot(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.slots[key]
	if !ok {
		ch = make(chan struct{}, g.capacity)
		g.slots[key] = ch
	}
	return ch
}

// TryAcquire takes one unit of the key's capacity or fails with ErrBusy.
// The returned release func is safe to call more than once.
func (g *Local) TryAcquire(_ context.Context, key string) (func(), error) {
	ch := g.slot(key)
	select {
	case ch <- struct{}{}:
	default:
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
