// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/persistence/file"
	"github.com/outriq/outriq/pkg/persistence/postgresql"
	"github.com/outriq/outriq/pkg/persistence/redisstore"
)

// NewPersistence selects the storage backend from the database URL scheme:
// postgres and redis URLs get their drivers, anything else is treated as a
// filesystem root path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redisstore.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
