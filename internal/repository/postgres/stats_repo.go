package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// AgentStats собирает сводку по агенту за окно в windowDays суток.
// Чистое чтение, состояния не меняет.
func (r *Repo) AgentStats(ctx context.Context, agentID string, windowDays int, now time.Time) (*domain.AgentStats, error) {
	since := now.UTC().AddDate(0, 0, -windowDays)

	stats := &domain.AgentStats{AgentID: agentID, WindowDays: windowDays}

	var autoApproved int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'approved' AND auto_approved),
			COALESCE(SUM(estimated_cost_usd), 0),
			COALESCE(AVG(priority), 0)
		FROM proposals
		WHERE agent_id = $1 AND created_at >= $2`,
		agentID, since,
	).Scan(
		&stats.ProposalsSubmitted,
		&stats.ProposalsApproved,
		&autoApproved,
		&stats.TotalCostUsd,
		&stats.AvgPriority,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query agent stats: %w", err)
	}

	// Доля автоодобрений среди одобренных
	if stats.ProposalsApproved > 0 {
		stats.AutoApprovalRate = float64(autoApproved) / float64(stats.ProposalsApproved)
	}
	return stats, nil
}

// GlobalStats питает дашборд консоли.
func (r *Repo) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	g := &domain.GlobalStats{TopStepKinds: make(map[string]int64)}

	var approved int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending' AND expires_at > NOW()),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'approved' AND auto_approved)
		FROM proposals`).Scan(&g.TotalProposals, &g.PendingReview, &approved, &g.AutoApproved)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query proposal stats: %w", err)
	}
	if approved > 0 {
		g.AutoApprovalRate = float64(g.AutoApproved) / float64(approved)
	}

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM missions WHERE status = 'active'`).Scan(&g.ActiveMissions)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query mission stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT kind, COUNT(*) FROM steps GROUP BY kind ORDER BY COUNT(*) DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query step stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan step stat: %w", err)
		}
		g.TopStepKinds[kind] = n
	}
	return g, rows.Err()
}
