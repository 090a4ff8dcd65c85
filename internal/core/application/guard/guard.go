// Package guard serializes the fund-moving operations of the daemon. The
// asset ledger may hand control to arbitrary code while executing a
// transfer, so an operation that moves funds must never be re-entered
// before it completed.
package guard

import (
	"sync"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

// Guard is the process-wide mutual exclusion held for the duration of
// exactly one fund-moving call. The zero value is ready to use.
type Guard struct {
	mtx sync.Mutex
}

func New() *Guard {
	return &Guard{}
}

// Lock acquires the guard, failing with ErrReentrantCall instead of blocking
// when it is already held.
func (g *Guard) Lock() error {
	if !g.mtx.TryLock() {
		return domain.ErrReentrantCall
	}
	return nil
}

// Unlock releases the guard.
func (g *Guard) Unlock() {
	g.mtx.Unlock()
}

// Exec runs fn under the guard, releasing it on the way out whether fn
// succeeded or not.
func (g *Guard) Exec(fn func() error) error {
	if err := g.Lock(); err != nil {
		return err
	}
	defer g.Unlock()

	return fn()
}
