package store

import (
	"context"

	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// Well-known settings keys.
const (
	// SettingAutoSync persists the auto-sync toggle across restarts.
	// It is the only scheduler state that survives a restart.
	SettingAutoSync = "auto_sync_enabled"
)

// Store defines the persistence interface for the annotation overlay
// snapshot and the small set of client settings. Everything else the
// client shows is re-fetched from the gateway and never written here.
type Store interface {
	// ReplaceAnnotations atomically replaces the stored snapshot with
	// the given entries.
	ReplaceAnnotations(ctx context.Context, entries map[string]model.Annotation) error

	// LoadAnnotations returns the stored snapshot. Rows that cannot be
	// parsed are skipped rather than failing the load.
	LoadAnnotations(ctx context.Context) (map[string]model.Annotation, error)

	// SetSetting writes a settings value under a well-known key.
	SetSetting(ctx context.Context, key, value string) error

	// GetSetting reads a settings value. Returns ok=false when the key
	// has never been written.
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)

	Close() error
}
