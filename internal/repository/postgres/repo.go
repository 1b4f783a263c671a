package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo — доступ движка к основным таблицам (proposals, missions, steps,
// agent_quotas, approval_policy, users) через пул pgx.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo создает пул соединений и проверяет доступность базы.
func NewRepo(ctx context.Context, connString string, maxConns, minConns int32) (*Repo, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid conn string: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool init failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: database unreachable: %w", err)
	}

	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

// dayBounds возвращает границы календарных суток (UTC), в которые попадает t.
// Дневные агрегаты квот и капов считаются по этим границам.
func dayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
