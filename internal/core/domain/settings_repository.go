package domain

import "context"

// SettingsRepository persists the singleton administrative settings record.
type SettingsRepository interface {
	// InitSettings seeds the settings if the repository holds none yet. It is
	// a no-op when settings already exist.
	InitSettings(ctx context.Context, settings Settings) error
	// GetSettings returns the current settings.
	GetSettings(ctx context.Context) (*Settings, error)
	// UpdateSettings commits changes to the settings in a transactional way.
	// If updateFn returns an error no change is persisted.
	UpdateSettings(
		ctx context.Context,
		updateFn func(s *Settings) (*Settings, error),
	) error
}
