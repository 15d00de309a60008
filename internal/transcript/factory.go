package transcript

import (
	"context"
	"log/slog"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string, autoMigrate bool, log *slog.Logger) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	if autoMigrate {
		if err := Migrate(databaseURL, log); err != nil {
			return nil, err
		}
	}
	return NewPostgresStore(ctx, databaseURL)
}
