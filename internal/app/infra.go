package app

import (
	"context"
	"errors"

	"github.com/Amitphadol/Babylon-login-app/internal/config"
	"github.com/Amitphadol/Babylon-login-app/internal/db"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/redis"
)

type Infra struct {
	// DB is nil unless DATABASE_DSN is set.
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	infra.Redis = redisClient

	logger.Info("redis ready", map[string]any{
		"addr": cfg.RedisAddr,
	})

	if cfg.DatabaseDSN != "" {
		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.DB = database

		logger.Info("database ready", nil)
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	return errors.Join(errs...)
}
