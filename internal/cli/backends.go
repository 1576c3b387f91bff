package cli

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/specsync/pkg/blob"
	"github.com/matzehuels/specsync/pkg/config"
	"github.com/matzehuels/specsync/pkg/session"
	"github.com/matzehuels/specsync/pkg/store"
)

// backends bundles the storage selected by the configuration.
type backends struct {
	Store    store.Store
	Blobs    blob.Store
	Sessions session.Store

	redis *redis.Client
}

// openBackends connects every backend named in cfg. One Redis client is
// shared by the Redis blob and session stores.
func openBackends(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backends, error) {
	b := &backends{}
	if err := b.open(ctx, cfg); err != nil {
		b.Close(context.Background())
		return nil, err
	}
	logger.Debug("opened backends",
		"storage", cfg.Storage.Backend,
		"blobs", cfg.Blobs.Backend,
		"sessions", cfg.Sessions.Backend)
	return b, nil
}

func (b *backends) open(ctx context.Context, cfg *config.Config) (err error) {
	if cfg.UsesRedis() {
		if b.redis, err = cfg.RedisClient(); err != nil {
			return err
		}
		if err = b.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	switch cfg.Storage.Backend {
	case config.BackendMongo:
		if b.Store, err = store.NewMongoStore(ctx, cfg.Storage.Mongo); err != nil {
			return err
		}
	default:
		b.Store = store.NewMemoryStore()
	}

	switch cfg.Blobs.Backend {
	case config.BackendRedis:
		b.Blobs = blob.NewRedisStore(b.redis)
	default:
		if b.Blobs, err = blob.NewFileStore(cfg.BlobDir()); err != nil {
			return err
		}
	}

	b.Sessions, err = newSessionStore(cfg, b.redis)
	return err
}

// Close releases every backend. The shared Redis client is closed once.
func (b *backends) Close(ctx context.Context) error {
	var errs []error
	if b.Store != nil {
		errs = append(errs, b.Store.Close(ctx))
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
		return errors.Join(errs...)
	}
	if b.Blobs != nil {
		errs = append(errs, b.Blobs.Close())
	}
	if b.Sessions != nil {
		errs = append(errs, b.Sessions.Close())
	}
	return errors.Join(errs...)
}

// newSessionStore opens the configured session backend. rdb must be set for
// the Redis backend.
func newSessionStore(cfg *config.Config, rdb *redis.Client) (session.Store, error) {
	switch cfg.Sessions.Backend {
	case config.BackendRedis:
		return session.NewRedisStore(rdb, ""), nil
	case config.BackendMemory:
		return session.NewMemoryStore(), nil
	default:
		return session.NewFileStore(cfg.SessionDir())
	}
}

// openSessions opens only the session backend, for commands that manage
// tokens without serving.
func openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	var rdb *redis.Client
	if cfg.Sessions.Backend == config.BackendRedis {
		var err error
		if rdb, err = cfg.RedisClient(); err != nil {
			return nil, err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, err
		}
	}
	return newSessionStore(cfg, rdb)
}
