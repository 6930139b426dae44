package vectorstore

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gap-assessment/internal/config"
)

// Open builds the configured store backend and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLite(cfg.Path, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("vectorstore: unknown driver %q", cfg.Driver)
	}
}
