package blobcache

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/config"
)

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	log := zap.L().With(zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.CacheDriverFile, "":
		log.Debug("opening file cache", zap.String("dir", cfg.Dir))
		return NewFileStore(afero.NewOsFs(), cfg.Dir), nil
	case config.CacheDriverSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "place-enrich-cache.db"
		}
		log.Debug("opening sqlite cache", zap.String("dsn", dsn))
		return NewSQLite(ctx, dsn)
	case config.CacheDriverPostgres:
		log.Debug("opening postgres cache")
		return NewPostgres(ctx, cfg.DatabaseURL)
	case config.CacheDriverRedis:
		log.Debug("opening redis cache", zap.String("addr", cfg.RedisAddr))
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
	default:
		return nil, eris.Errorf("blobcache: unknown driver %q", cfg.Driver)
	}
}
