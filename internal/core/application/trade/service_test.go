package trade_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/escrow-network/escrowd/internal/core/application/guard"
	apppubsub "github.com/escrow-network/escrowd/internal/core/application/pubsub"
	"github.com/escrow-network/escrowd/internal/core/application/trade"
	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
	"github.com/escrow-network/escrowd/internal/infrastructure/ledger"
	pubsubstore "github.com/escrow-network/escrowd/internal/infrastructure/pubsub"
	"github.com/escrow-network/escrowd/internal/infrastructure/storage/db/inmemory"
)

var (
	admin    = common.HexToAddress("0x66f820a414680B5bcda5eECA5dea238543F42054")
	vault    = common.HexToAddress("0xfB695Bf0d1F2d11b881f5F82C2Db1fD27e30E18B")
	maker    = common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	taker    = common.HexToAddress("0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0")
	stranger = common.HexToAddress("0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b")

	testAsset     = "USDT"
	agreementHash = "bafe71f0b072a87bb84b4707a8e99f4cbbcdfbc5b9e3a1b373a764fa33cf44e1"

	initialBalance = uint64(50000)
	feeBps         = uint32(50)
)

func TestSettlement(t *testing.T) {
	svc, _, assetLedger := newTestService(t)
	ctx := context.Background()

	// maker sells: price 10000, deposit 5000, fee 50 bps.
	tradeId, err := svc.CreateTrade(ctx, newTradeArgs(domain.MakerSells))
	require.NoError(t, err)
	require.Greater(t, tradeId, uint64(0))

	amount, err := svc.FundTrade(ctx, tradeId, maker)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), amount)

	amount, err = svc.FundTrade(ctx, tradeId, taker)
	require.NoError(t, err)
	require.Equal(t, uint64(15000), amount)

	escrowedTrade, err := svc.GetTrade(ctx, tradeId)
	require.NoError(t, err)
	require.True(t, escrowedTrade.IsFunded())

	custody, err := assetLedger.BalanceOf(ctx, testAsset)
	require.NoError(t, err)
	require.Equal(t, escrowedTrade.TotalEscrow(), custody)

	require.NoError(t, svc.ConfirmTrade(ctx, tradeId, maker))
	escrowedTrade, err = svc.GetTrade(ctx, tradeId)
	require.NoError(t, err)
	require.True(t, escrowedTrade.IsFunded())
	require.True(t, escrowedTrade.MakerConfirmed)

	require.NoError(t, svc.ConfirmTrade(ctx, tradeId, taker))
	escrowedTrade, err = svc.GetTrade(ctx, tradeId)
	require.NoError(t, err)
	require.True(t, escrowedTrade.IsSettled())
	require.Greater(t, escrowedTrade.SettledAt, int64(0))

	// the maker nets the price less the 50 fee, the taker gets the deposit
	// back, the vault collects the fee and custody is drained.
	require.Equal(
		t, initialBalance-5000+14950,
		assetLedger.AccountBalanceOf(testAsset, maker),
	)
	require.Equal(
		t, initialBalance-15000+5000,
		assetLedger.AccountBalanceOf(testAsset, taker),
	)
	require.Equal(t, uint64(50), assetLedger.AccountBalanceOf(testAsset, vault))

	custody, err = assetLedger.BalanceOf(ctx, testAsset)
	require.NoError(t, err)
	require.Zero(t, custody)
}

func TestCancelAndRefund(t *testing.T) {
	svc, repoManager, assetLedger := newTestService(t)
	ctx := context.Background()

	// maker buys, so the maker side owes price plus deposit.
	tradeId, err := svc.CreateTrade(ctx, newTradeArgs(domain.MakerBuys))
	require.NoError(t, err)

	amount, err := svc.FundTrade(ctx, tradeId, maker)
	require.NoError(t, err)
	require.Equal(t, uint64(15000), amount)

	err = svc.CancelTrade(ctx, tradeId)
	require.ErrorIs(t, err, domain.ErrDeadlineNotReached)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	expireFundingDeadline(t, repoManager, tradeId)

	require.NoError(t, svc.CancelTrade(ctx, tradeId))
	escrowedTrade, err := svc.GetTrade(ctx, tradeId)
	require.NoError(t, err)
	require.True(t, escrowedTrade.IsCancelled())

	amount, err = svc.ClaimRefund(ctx, tradeId, maker)
	require.NoError(t, err)
	require.Equal(t, uint64(15000), amount)
	require.Equal(
		t, initialBalance, assetLedger.AccountBalanceOf(testAsset, maker),
	)

	custody, err := assetLedger.BalanceOf(ctx, testAsset)
	require.NoError(t, err)
	require.Zero(t, custody)

	// the taker never funded, the maker already got everything back.
	_, err = svc.ClaimRefund(ctx, tradeId, taker)
	require.ErrorIs(t, err, domain.ErrNoRefundDue)
	_, err = svc.ClaimRefund(ctx, tradeId, maker)
	require.ErrorIs(t, err, domain.ErrNoRefundDue)
}

func TestFailingCreateTrade(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		args          trade.CreateTradeArgs
		expectedError error
	}{
		{
			name: "missing party",
			args: func() trade.CreateTradeArgs {
				args := newTradeArgs(domain.MakerSells)
				args.Taker = common.Address{}
				return args
			}(),
			expectedError: domain.ErrMissingParty,
		},
		{
			name: "same party",
			args: func() trade.CreateTradeArgs {
				args := newTradeArgs(domain.MakerSells)
				args.Taker = maker
				return args
			}(),
			expectedError: domain.ErrSameParty,
		},
		{
			name: "zero deposit",
			args: func() trade.CreateTradeArgs {
				args := newTradeArgs(domain.MakerSells)
				args.Deposit = 0
				return args
			}(),
			expectedError: domain.ErrNonPositiveAmounts,
		},
		{
			name: "zero funding window",
			args: func() trade.CreateTradeArgs {
				args := newTradeArgs(domain.MakerSells)
				args.FundingWindow = 0
				return args
			}(),
			expectedError: domain.ErrInvalidFundingWindow,
		},
		{
			name: "missing agreement hash",
			args: func() trade.CreateTradeArgs {
				args := newTradeArgs(domain.MakerSells)
				args.AgreementHash = ""
				return args
			}(),
			expectedError: domain.ErrMissingAgreementHash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTrade(ctx, tt.args)
			require.ErrorIs(t, err, tt.expectedError)
			require.ErrorIs(t, err, domain.ErrInvalidArgs)
		})
	}
}

func TestFailingFundTrade(t *testing.T) {
	svc, repoManager, assetLedger := newTestService(t)
	ctx := context.Background()

	tradeId, err := svc.CreateTrade(ctx, newTradeArgs(domain.MakerSells))
	require.NoError(t, err)

	t.Run("unknown trade", func(t *testing.T) {
		_, err := svc.FundTrade(ctx, tradeId+100, maker)
		require.ErrorIs(t, err, domain.ErrTradeNotFound)
	})

	t.Run("stranger", func(t *testing.T) {
		_, err := svc.FundTrade(ctx, tradeId, stranger)
		require.ErrorIs(t, err, domain.ErrNotTradeParty)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("insufficient allowance", func(t *testing.T) {
		assetLedger.Approve(testAsset, maker, 0)
		_, err := svc.FundTrade(ctx, tradeId, maker)
		require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)

		// the failed pull must not leave the trade marked as funded.
		escrowedTrade, err := svc.GetTrade(ctx, tradeId)
		require.NoError(t, err)
		require.False(t, escrowedTrade.MakerFunded)

		assetLedger.Approve(testAsset, maker, initialBalance)
		_, err = svc.FundTrade(ctx, tradeId, maker)
		require.NoError(t, err)
	})

	t.Run("double funding", func(t *testing.T) {
		_, err := svc.FundTrade(ctx, tradeId, maker)
		require.ErrorIs(t, err, domain.ErrAlreadyFunded)
		require.ErrorIs(t, err, domain.ErrDoubleAction)
	})

	t.Run("deadline passed", func(t *testing.T) {
		expireFundingDeadline(t, repoManager, tradeId)
		_, err := svc.FundTrade(ctx, tradeId, taker)
		require.ErrorIs(t, err, domain.ErrFundingDeadlinePassed)
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestFailingConfirmTrade(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tradeId, err := svc.CreateTrade(ctx, newTradeArgs(domain.MakerSells))
	require.NoError(t, err)

	t.Run("unknown trade", func(t *testing.T) {
		err := svc.ConfirmTrade(ctx, tradeId+100, maker)
		require.ErrorIs(t, err, domain.ErrTradeNotFound)
	})

	t.Run("not yet funded", func(t *testing.T) {
		err := svc.ConfirmTrade(ctx, tradeId, maker)
		require.ErrorIs(t, err, domain.ErrTradeNotFunded)
	})

	_, err = svc.FundTrade(ctx, tradeId, maker)
	require.NoError(t, err)
	_, err = svc.FundTrade(ctx, tradeId, taker)
	require.NoError(t, err)

	t.Run("stranger", func(t *testing.T) {
		err := svc.ConfirmTrade(ctx, tradeId, stranger)
		require.ErrorIs(t, err, domain.ErrNotTradeParty)
	})

	t.Run("double confirmation", func(t *testing.T) {
		require.NoError(t, svc.ConfirmTrade(ctx, tradeId, taker))
		err := svc.ConfirmTrade(ctx, tradeId, taker)
		require.ErrorIs(t, err, domain.ErrAlreadyConfirmed)
	})
}

func TestCreateTradeWithFunding(t *testing.T) {
	svc, _, assetLedger := newTestService(t)
	ctx := context.Background()

	tradeId, err := svc.CreateTradeWithFunding(
		ctx, newTradeArgs(domain.MakerSells), taker,
	)
	require.NoError(t, err)

	escrowedTrade, err := svc.GetTrade(ctx, tradeId)
	require.NoError(t, err)
	require.True(t, escrowedTrade.IsOpen())
	require.True(t, escrowedTrade.TakerFunded)
	require.False(t, escrowedTrade.MakerFunded)

	custody, err := assetLedger.BalanceOf(ctx, testAsset)
	require.NoError(t, err)
	require.Equal(t, uint64(15000), custody)
}

func TestFailingCreateTradeWithFunding(t *testing.T) {
	svc, _, assetLedger := newTestService(t)
	ctx := context.Background()

	t.Run("stranger caller", func(t *testing.T) {
		_, err := svc.CreateTradeWithFunding(
			ctx, newTradeArgs(domain.MakerSells), stranger,
		)
		require.ErrorIs(t, err, domain.ErrNotTradeCreator)
	})

	t.Run("maker caller", func(t *testing.T) {
		// only the taker, the creator of a direct trade, can fund at
		// creation time.
		_, err := svc.CreateTradeWithFunding(
			ctx, newTradeArgs(domain.MakerSells), maker,
		)
		require.ErrorIs(t, err, domain.ErrNotTradeCreator)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("allowance too low", func(t *testing.T) {
		assetLedger.Approve(testAsset, taker, 100)
		_, err := svc.CreateTradeWithFunding(
			ctx, newTradeArgs(domain.MakerSells), taker,
		)
		require.ErrorIs(t, err, trade.ErrAllowanceTooLow)

		// nothing must have been persisted nor pulled into custody.
		trades, err := svc.ListTrades(ctx)
		require.NoError(t, err)
		require.Empty(t, trades)

		custody, err := assetLedger.BalanceOf(ctx, testAsset)
		require.NoError(t, err)
		require.Zero(t, custody)
	})
}

func TestReentrantFundTrade(t *testing.T) {
	svc, _, assetLedger := newTestService(t)
	ctx := context.Background()

	tradeId, err := svc.CreateTrade(ctx, newTradeArgs(domain.MakerSells))
	require.NoError(t, err)

	// a ledger callback trying to re-enter the service while a funding is in
	// flight must be rejected, while the outer operation completes.
	var reentrantErr error
	assetLedger.SetTransferHook(func(_ string, _ common.Address, _ uint64) {
		_, reentrantErr = svc.FundTrade(ctx, tradeId, taker)
	})

	_, err = svc.FundTrade(ctx, tradeId, maker)
	require.NoError(t, err)
	require.ErrorIs(t, reentrantErr, domain.ErrReentrantCall)

	assetLedger.SetTransferHook(nil)
	escrowedTrade, err := svc.GetTrade(ctx, tradeId)
	require.NoError(t, err)
	require.True(t, escrowedTrade.MakerFunded)
	require.False(t, escrowedTrade.TakerFunded)
}

func TestListTradesForParty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateTrade(ctx, newTradeArgs(domain.MakerSells))
		require.NoError(t, err)
	}

	trades, err := svc.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	trades, err = svc.ListTradesForParty(ctx, maker)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	trades, err = svc.ListTradesForParty(ctx, stranger)
	require.NoError(t, err)
	require.Empty(t, trades)
}

func newTestService(
	t *testing.T,
) (*trade.Service, ports.RepoManager, *ledger.InProcessLedger) {
	t.Helper()
	ctx := context.Background()

	repoManager := inmemory.NewRepoManager()
	settings, err := domain.NewSettings(admin, vault, feeBps, time.Now().Unix())
	require.NoError(t, err)
	require.NoError(
		t, repoManager.SettingsRepository().InitSettings(ctx, *settings),
	)

	assetLedger := ledger.NewInProcessLedger()
	for _, party := range []common.Address{maker, taker} {
		assetLedger.Credit(testAsset, party, initialBalance)
		assetLedger.Approve(testAsset, party, initialBalance)
	}

	securePubSub, err := pubsubstore.NewService("", nil)
	require.NoError(t, err)
	pubsubSvc, err := apppubsub.NewService(securePubSub, nil)
	require.NoError(t, err)

	svc, err := trade.NewService(
		repoManager, assetLedger, pubsubSvc, guard.New(),
	)
	require.NoError(t, err)
	return svc, repoManager, assetLedger
}

func newTradeArgs(direction domain.TradeDirection) trade.CreateTradeArgs {
	return trade.CreateTradeArgs{
		Maker:         maker,
		Taker:         taker,
		Asset:         testAsset,
		Price:         10000,
		Deposit:       5000,
		FundingWindow: 600,
		Direction:     direction,
		AgreementHash: agreementHash,
	}
}

// expireFundingDeadline rewinds the funding deadline of the trade so tests
// don't have to wait for wall clock time to pass.
func expireFundingDeadline(
	t *testing.T, repoManager ports.RepoManager, tradeId uint64,
) {
	t.Helper()
	require.NoError(t, repoManager.TradeRepository().UpdateTrade(
		context.Background(), tradeId,
		func(trade *domain.Trade) (*domain.Trade, error) {
			trade.FundingDeadline = time.Now().Unix() - 1
			return trade, nil
		},
	))
}
