package inmemory

import (
	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

// RepoManager is a volatile implementation of ports.RepoManager, meant for
// tests and for running the daemon without persistence.
type RepoManager struct {
	tradeRepository    domain.TradeRepository
	orderRepository    domain.OrderRepository
	settingsRepository domain.SettingsRepository
}

func NewRepoManager() ports.RepoManager {
	tradeRepo := NewTradeRepositoryImpl()
	orderRepo := NewOrderRepositoryImpl()
	settingsRepo := NewSettingsRepositoryImpl()

	return &RepoManager{
		tradeRepository:    tradeRepo,
		orderRepository:    orderRepo,
		settingsRepository: settingsRepo,
	}
}

func (d *RepoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *RepoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *RepoManager) SettingsRepository() domain.SettingsRepository {
	return d.settingsRepository
}

func (d *RepoManager) Close() {}
