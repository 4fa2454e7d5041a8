// Package store provides the durable backends for the catalog: a JSON file, redis and postgres.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
	"price-catalog/src/pkg/config"
)

const (
	KindFile     = "file"
	KindRedis    = "redis"
	KindPostgres = "postgres"
)

type Config struct {
	Kind        string `json:"kind,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	RedisKey    string `json:"redis_key,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		Kind:      KindFile,
		FilePath:  "item_prices.json",
		RedisAddr: "127.0.0.1:6379",
		RedisKey:  "item_prices",
	}
}

var Cfg Config = DefaultValueConfig()

/*
If local Config is provided - use it. Replace all missing values with default ones.

If not provided - just use defaultConfig.
*/
func InitializeConfig(localConfig *Config) {
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "store", "not provided", "default store config")
		return
	}

	defaultConfig := DefaultValueConfig()
	Cfg = *localConfig

	tl.ApplyDefaults(&Cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", config.GetPackageName(), tl.PrettyForStderr(defVal),
		)
	})

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "store", "provided", "local store config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", config.GetPackageName()), Cfg)
}

/*
Open returns the backend selected by cfg.Kind together with a function that
releases its connections.
*/
func Open(ctx context.Context, cfg Config) (store catalog.Store, closeFn func(), e *xerr.Error) {
	closeFn = func() {}

	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindFile, "":
		tl.Log(tl.Info1, palette.Cyan, "Using %s store at '%s'", "file", cfg.FilePath)
		return NewFileStore(cfg.FilePath), closeFn, e

	case KindRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingErr := client.Ping(ctx).Err()
		if pingErr != nil {
			_ = client.Close()
			e = xerr.NewError(pingErr, "ping redis", cfg.RedisAddr)
			return nil, closeFn, e
		}
		tl.Log(tl.Info1, palette.Cyan, "Using %s store at '%s' (key '%s')", "redis", cfg.RedisAddr, cfg.RedisKey)
		return NewRedisStore(client, cfg.RedisKey), func() { _ = client.Close() }, e

	case KindPostgres:
		pool, poolErr := pgxpool.New(ctx, cfg.PostgresDSN)
		if poolErr != nil {
			e = xerr.NewError(poolErr, "connect to postgres", "postgres_dsn")
			return nil, closeFn, e
		}
		postgresStore := NewPostgresStore(pool)
		e = postgresStore.EnsureSchema(ctx)
		if e != nil {
			pool.Close()
			return nil, closeFn, e
		}
		tl.Log(tl.Info1, palette.Cyan, "Using %s store", "postgres")
		return postgresStore, pool.Close, e
	}

	e = xerr.NewError(fmt.Errorf("unknown store kind '%s'", cfg.Kind), "open catalog store", cfg.Kind)
	return nil, closeFn, e
}
