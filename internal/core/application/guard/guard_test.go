package guard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/escrow-network/escrowd/internal/core/application/guard"
	"github.com/escrow-network/escrowd/internal/core/domain"
)

func TestGuard(t *testing.T) {
	t.Parallel()

	g := guard.New()

	require.NoError(t, g.Lock())
	require.ErrorIs(t, g.Lock(), domain.ErrReentrantCall)
	g.Unlock()
	require.NoError(t, g.Lock())
	g.Unlock()
}

func TestGuardExec(t *testing.T) {
	t.Parallel()

	g := guard.New()

	err := g.Exec(func() error {
		// a nested fund-moving call must be rejected
		return g.Exec(func() error { return nil })
	})
	require.ErrorIs(t, err, domain.ErrReentrantCall)

	// the guard is released after a failing call
	require.NoError(t, g.Exec(func() error { return nil }))
}
