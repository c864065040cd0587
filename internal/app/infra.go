package app

import (
	"context"
	"database/sql"

	"github.com/druid-matt/ossinsight/internal/config"
	"github.com/druid-matt/ossinsight/internal/db"
	"github.com/druid-matt/ossinsight/internal/logger"
	"github.com/druid-matt/ossinsight/internal/redis"

	_ "github.com/lib/pq"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := db.RunKeystoneMigration(ctx, sqlDB); err != nil {
		return nil, err
	}

	logger.Info("database ready", nil)

	infra := &Infra{DB: &db.DB{DB: sqlDB}}

	// Redis is optional; without it OAuth states stay cookie-only.
	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		infra.Redis = redisClient
		logger.Info("redis ready", nil)
	}

	return infra, nil
}
