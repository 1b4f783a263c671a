package postgres

/*
Файл usage_repo.go считает дневные агрегаты для гейтов.
DailyUsage — производная величина: всегда живой запрос к таблицам,
никакого кэширования между запросами (корректность зависит от свежести).
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// AgentDailyUsage возвращает количество и суммарную стоимость предложений
// агента, поданных в текущие календарные сутки.
func (r *Repo) AgentDailyUsage(ctx context.Context, agentID string, now time.Time) (int, float64, error) {
	dayStart, dayEnd := dayBounds(now)

	query := `
		SELECT COUNT(*), COALESCE(SUM(estimated_cost_usd), 0)
		FROM proposals
		WHERE agent_id = $1 AND created_at >= $2 AND created_at < $3`

	var count int
	var costSum float64
	err := r.pool.QueryRow(ctx, query, agentID, dayStart, dayEnd).Scan(&count, &costSum)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: failed to query daily usage: %w", err)
	}
	return count, costSum, nil
}

// MaterializedStepCounts возвращает число материализованных за сутки шагов
// агента по видам операций. Кап меряется именно по материализованным шагам,
// а не по параллельно висящим pending-предложениям — это осознанный
// soft-limit (см. DESIGN.md).
func (r *Repo) MaterializedStepCounts(ctx context.Context, agentID string, now time.Time) (map[domain.StepKind]int, error) {
	dayStart, dayEnd := dayBounds(now)

	query := `
		SELECT s.kind, COUNT(*)
		FROM steps s
		JOIN missions m ON s.mission_id = m.id
		WHERE m.agent_id = $1 AND s.created_at >= $2 AND s.created_at < $3
		GROUP BY s.kind`

	rows, err := r.pool.Query(ctx, query, agentID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query step counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.StepKind]int)
	for rows.Next() {
		var kind domain.StepKind
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan step count: %w", err)
		}
		counts[kind] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return counts, nil
}
