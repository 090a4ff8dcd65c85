package ports

import (
	"github.com/escrow-network/escrowd/internal/core/domain"
)

// RepoManager gives access to all the repositories of the domain and manages
// the lifecycle of the underlying store.
type RepoManager interface {
	// TradeRepository returns the repository of the Trade entity set.
	TradeRepository() domain.TradeRepository
	// OrderRepository returns the repository of the signed-order fill state.
	OrderRepository() domain.OrderRepository
	// SettingsRepository returns the repository of the admin settings.
	SettingsRepository() domain.SettingsRepository

	// Close gracefully closes the connection with the store.
	Close()
}
