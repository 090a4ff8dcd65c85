package dbbadger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
	dbbadger "github.com/escrow-network/escrowd/internal/infrastructure/storage/db/badger"
)

var (
	ctx = context.Background()

	maker = common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	taker = common.HexToAddress("0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0")
	other = common.HexToAddress("0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b")
)

func TestTradeRepository(t *testing.T) {
	repoManager := newTestDb(t)
	repo := repoManager.TradeRepository()

	// ids come from a persisted counter and are assigned gapless, starting
	// from 1.
	for i := 1; i <= 3; i++ {
		trade := newTrade(taker)
		id, err := repo.AddTrade(ctx, trade)
		require.NoError(t, err)
		require.Equal(t, uint64(i), id)
		require.Equal(t, uint64(i), trade.Id)
	}

	trade, err := repo.GetTrade(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), trade.Id)
	require.Equal(t, maker, trade.Maker)

	trades, err := repo.GetAllTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	for i := range trades {
		require.Equal(t, uint64(i+1), trades[i].Id)
	}
}

func TestUpdateTrade(t *testing.T) {
	repoManager := newTestDb(t)
	repo := repoManager.TradeRepository()

	trade := newTrade(taker)
	id, err := repo.AddTrade(ctx, trade)
	require.NoError(t, err)

	now := time.Now().Unix()
	err = repo.UpdateTrade(
		ctx, id, func(tt *domain.Trade) (*domain.Trade, error) {
			if _, err := tt.Fund(maker, now); err != nil {
				return nil, err
			}
			return tt, nil
		},
	)
	require.NoError(t, err)

	updatedTrade, err := repo.GetTrade(ctx, id)
	require.NoError(t, err)
	require.True(t, updatedTrade.MakerFunded)
}

func TestFailingTradeRepository(t *testing.T) {
	repoManager := newTestDb(t)
	repo := repoManager.TradeRepository()

	trade, err := repo.GetTrade(ctx, 42)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)
	require.Nil(t, trade)

	err = repo.UpdateTrade(
		ctx, 42, func(tt *domain.Trade) (*domain.Trade, error) {
			return tt, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)

	// an error returned by the update closure discards the transaction and
	// leaves the stored trade untouched.
	id, err := repo.AddTrade(ctx, newTrade(taker))
	require.NoError(t, err)

	expectedErr := fmt.Errorf("something went wrong")
	err = repo.UpdateTrade(
		ctx, id, func(tt *domain.Trade) (*domain.Trade, error) {
			tt.MakerFunded = true
			return nil, expectedErr
		},
	)
	require.ErrorIs(t, err, expectedErr)

	storedTrade, err := repo.GetTrade(ctx, id)
	require.NoError(t, err)
	require.False(t, storedTrade.MakerFunded)
}

func TestGetTradesForParty(t *testing.T) {
	repoManager := newTestDb(t)
	repo := repoManager.TradeRepository()

	if _, err := repo.AddTrade(ctx, newTrade(taker)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.AddTrade(ctx, newTrade(other)); err != nil {
		t.Fatal(err)
	}

	trades, err := repo.GetTradesForParty(ctx, maker)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, uint64(1), trades[0].Id)
	require.Equal(t, uint64(2), trades[1].Id)

	trades, err = repo.GetTradesForParty(ctx, taker)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, taker, trades[0].Taker)

	trades, err = repo.GetTradesForParty(
		ctx, common.HexToAddress("0xE11ba2b4D45Eaed5996Cd0823791E0C93114882d"),
	)
	require.NoError(t, err)
	require.Empty(t, trades)
}

func newTestDb(t *testing.T) ports.RepoManager {
	repoManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	t.Cleanup(repoManager.Close)
	return repoManager
}

func newTrade(withTaker common.Address) *domain.Trade {
	trade, err := domain.NewTrade(
		maker, withTaker, "USDT", 10000, 5000, 600,
		domain.MakerSells,
		"bafe71f0b072a87bb84b4707a8e99f4cbbcdfbc5b9e3a1b373a764fa33cf44e1",
		time.Now().Unix(),
	)
	if err != nil {
		panic(err)
	}
	return trade
}
