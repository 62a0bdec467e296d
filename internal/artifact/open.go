package artifact

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/config"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/database"
)

// Open returns the store selected by cfg.Artifacts.Source. The returned
// close function releases any database pool and is never nil.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, func(), error) {
	switch cfg.Artifacts.Source {
	case config.SourcePostgres:
		pool, err := database.Connect(ctx, cfg.Database, log)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect artifact database: %w", err)
		}
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("using postgres artifact store")
		return store, pool.Close, nil
	default:
		log.Info().Str("dir", cfg.Artifacts.Dir).Msg("using file artifact store")
		return NewFileStore(cfg.Artifacts.Dir), func() {}, nil
	}
}
