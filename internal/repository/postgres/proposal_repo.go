package postgres

/*
Файл proposal_repo.go содержит чтение и однострочные записи предложений.
Многострочная запись (материализация миссии) живет в mission_repo.go.
*/

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
)

const proposalColumns = `id, agent_id, title, description, priority, estimated_cost_usd,
	proposed_steps, metadata, status, auto_approved, rejection_reason,
	created_at, expires_at, reviewed_at`

// CreateProposal сохраняет новое предложение в статусе pending.
// Шаги и метаданные кладутся в JSONB: движок их не интерпретирует,
// только переносит в миссию при материализации.
func (r *Repo) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	steps, err := json.Marshal(p.ProposedSteps)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode steps: %w", err)
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO proposals (id, agent_id, title, description, priority, estimated_cost_usd,
		                       proposed_steps, metadata, status, auto_approved, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		p.ID, p.AgentID, p.Title, p.Description, p.Priority, p.EstimatedCostUsd,
		steps, meta, p.Status, p.AutoApproved, p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create proposal: %w", err)
	}
	return nil
}

// GetProposal возвращает предложение по ID. nil — не найдено (404 в хендлере).
func (r *Repo) GetProposal(ctx context.Context, id string) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`

	p, err := scanProposal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get proposal: %w", err)
	}
	return p, nil
}

// ListPending возвращает живую очередь ручного ревью: pending без истекших,
// приоритетные сначала, при равном приоритете — более старые.
func (r *Repo) ListPending(ctx context.Context, limit int, now time.Time) ([]*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
		FROM proposals
		WHERE status = 'pending' AND expires_at > $1
		ORDER BY priority DESC, created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query pending proposals: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan proposal: %w", err)
		}
		results = append(results, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// RejectProposal фиксирует отказ оператора. Условие status = 'pending'
// защищает от Double Decision по уже обработанной заявке.
func (r *Repo) RejectProposal(ctx context.Context, id, reason string, now time.Time) error {
	query := `
		UPDATE proposals
		SET status = 'rejected',
		    rejection_reason = $1,
		    reviewed_at = $2
		WHERE id = $3 AND status = 'pending'`

	ct, err := r.pool.Exec(ctx, query, reason, now, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to reject proposal: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	var rejection sql.NullString

	err := row.Scan(
		&p.ID,
		&p.AgentID,
		&p.Title,
		&p.Description,
		&p.Priority,
		&p.EstimatedCostUsd,
		&p.ProposedSteps,
		&p.Metadata,
		&p.Status,
		&p.AutoApproved,
		&rejection,
		&p.CreatedAt,
		&p.ExpiresAt,
		&p.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}

	if rejection.Valid {
		val := rejection.String
		p.RejectionReason = &val
	}
	return &p, nil
}
