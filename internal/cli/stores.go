package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"quizdesk/internal/app"
	"quizdesk/internal/config"
	"quizdesk/internal/infra/memory"
	"quizdesk/internal/infra/postgres"
	rediscache "quizdesk/internal/infra/redis"
)

type stores struct {
	quizzes app.QuizRepository
	users   app.UserRepository
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks Postgres when a URL is configured and memory otherwise,
// then puts the Redis cache in front of quizzes when Redis is configured.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		s.quizzes = postgres.NewQuizRepository(pool)
		s.users = postgres.NewUserRepository(pool)
		log.Info().Msg("using postgres document store")
	} else {
		s.quizzes = memory.NewQuizRepository()
		s.users = memory.NewUserRepository()
		log.Warn().Msg("postgres url not set, data is kept in memory")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		s.quizzes = rediscache.NewQuizRepository(client, s.quizzes, ttl)
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", ttl).Msg("quiz cache enabled")
	}
	return s, nil
}
