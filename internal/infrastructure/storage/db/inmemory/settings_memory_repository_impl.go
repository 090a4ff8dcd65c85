package inmemory

import (
	"context"
	"sync"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

type settingsInmemoryStore struct {
	settings *domain.Settings
	locker   *sync.Mutex
}

type settingsRepositoryImpl struct {
	store *settingsInmemoryStore
}

// NewSettingsRepositoryImpl returns a new inmemory SettingsRepository
// implementation.
func NewSettingsRepositoryImpl() domain.SettingsRepository {
	return &settingsRepositoryImpl{
		store: &settingsInmemoryStore{
			locker: &sync.Mutex{},
		},
	}
}

func (r *settingsRepositoryImpl) InitSettings(
	_ context.Context, settings domain.Settings,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if r.store.settings != nil {
		return nil
	}
	r.store.settings = &settings
	return nil
}

func (r *settingsRepositoryImpl) GetSettings(
	_ context.Context,
) (*domain.Settings, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if r.store.settings == nil {
		return nil, domain.ErrSettingsNotFound
	}
	settings := *r.store.settings
	return &settings, nil
}

func (r *settingsRepositoryImpl) UpdateSettings(
	_ context.Context,
	updateFn func(s *domain.Settings) (*domain.Settings, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if r.store.settings == nil {
		return domain.ErrSettingsNotFound
	}

	currentSettings := *r.store.settings
	updatedSettings, err := updateFn(&currentSettings)
	if err != nil {
		return err
	}

	r.store.settings = updatedSettings
	return nil
}
