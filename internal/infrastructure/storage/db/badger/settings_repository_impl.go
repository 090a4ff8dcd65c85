package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

// The settings record is a singleton, it always lives under the same key.
const settingsKey = "settings"

type settingsRepositoryImpl struct {
	store *badgerhold.Store
}

func NewSettingsRepositoryImpl(store *badgerhold.Store) domain.SettingsRepository {
	return &settingsRepositoryImpl{store}
}

func (s *settingsRepositoryImpl) InitSettings(
	ctx context.Context, settings domain.Settings,
) error {
	if err := s.store.Insert(settingsKey, settings); err != nil {
		if err == badgerhold.ErrKeyExists {
			return nil
		}
		return err
	}

	return nil
}

func (s *settingsRepositoryImpl) GetSettings(
	ctx context.Context,
) (*domain.Settings, error) {
	var settings domain.Settings
	if err := s.store.Get(settingsKey, &settings); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, err
	}

	return &settings, nil
}

func (s *settingsRepositoryImpl) UpdateSettings(
	ctx context.Context,
	updateFn func(s *domain.Settings) (*domain.Settings, error),
) error {
	return s.store.Badger().Update(func(tx *badger.Txn) error {
		var settings domain.Settings
		if err := s.store.TxGet(tx, settingsKey, &settings); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrSettingsNotFound
			}
			return err
		}

		updatedSettings, err := updateFn(&settings)
		if err != nil {
			return err
		}

		return s.store.TxUpdate(tx, settingsKey, *updatedSettings)
	})
}
