package postgres

/*
Файл policy_repo.go отвечает за долговременное хранение операторских политик:
дневных квот агентов и правил автоодобрения. Мгновенные проверки в рантайме
идут через снапшот в памяти (policy.MemoProvider), который читает эти методы.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// GetDailyQuota — точечное чтение квоты агента. nil — квота не настроена.
func (r *Repo) GetDailyQuota(ctx context.Context, agentID string) (*domain.DailyQuota, error) {
	query := `SELECT agent_id, max_proposals, max_cost_usd, updated_at FROM agent_quotas WHERE agent_id = $1`

	q := &domain.DailyQuota{}
	err := r.pool.QueryRow(ctx, query, agentID).Scan(&q.AgentID, &q.MaxProposals, &q.MaxCostUsd, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get quota: %w", err)
	}
	return q, nil
}

// ListQuotas — «холодная загрузка» всех квот для снапшота политик.
func (r *Repo) ListQuotas(ctx context.Context) (map[string]domain.DailyQuota, error) {
	query := `SELECT agent_id, max_proposals, max_cost_usd, updated_at FROM agent_quotas`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query quotas: %w", err)
	}
	defer rows.Close()

	quotas := make(map[string]domain.DailyQuota)
	for rows.Next() {
		var q domain.DailyQuota
		if err := rows.Scan(&q.AgentID, &q.MaxProposals, &q.MaxCostUsd, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan quota: %w", err)
		}
		quotas[q.AgentID] = q
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return quotas, nil
}

// UpsertQuota задает или обновляет квоту агента (консольная операция).
func (r *Repo) UpsertQuota(ctx context.Context, q *domain.DailyQuota) error {
	query := `
		INSERT INTO agent_quotas (agent_id, max_proposals, max_cost_usd, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (agent_id)
		DO UPDATE SET max_proposals = $2, max_cost_usd = $3, updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, q.AgentID, q.MaxProposals, q.MaxCostUsd)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert quota: %w", err)
	}
	return nil
}

// DeleteQuota снимает квоту агента. Без квоты агент подавать предложения
// не может (fail-closed), так что это фактически мягкая блокировка.
func (r *Repo) DeleteQuota(ctx context.Context, agentID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM agent_quotas WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete quota: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("postgres: quota not found")
	}
	return nil
}

// GetAutoApprovalPolicy читает единственную строку правил автоодобрения.
// nil — правила не заданы, автоодобрение считается выключенным.
func (r *Repo) GetAutoApprovalPolicy(ctx context.Context) (*domain.AutoApprovalPolicy, error) {
	query := `
		SELECT enabled, max_auto_approve_cost, require_approval_kinds, low_risk_threshold, updated_at
		FROM approval_policy WHERE id = 1`

	p := &domain.AutoApprovalPolicy{}
	var kinds []byte
	err := r.pool.QueryRow(ctx, query).Scan(
		&p.Enabled, &p.MaxAutoApproveCost, &kinds, &p.LowRiskThreshold, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get approval policy: %w", err)
	}
	if len(kinds) > 0 {
		if err := json.Unmarshal(kinds, &p.RequireApprovalKinds); err != nil {
			return nil, fmt.Errorf("postgres: corrupt require_approval_kinds: %w", err)
		}
	}
	return p, nil
}

// UpdateAutoApprovalPolicy перезаписывает правила автоодобрения.
func (r *Repo) UpdateAutoApprovalPolicy(ctx context.Context, p *domain.AutoApprovalPolicy) error {
	kinds, err := json.Marshal(p.RequireApprovalKinds)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode kinds: %w", err)
	}

	query := `
		INSERT INTO approval_policy (id, enabled, max_auto_approve_cost, require_approval_kinds, low_risk_threshold, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id)
		DO UPDATE SET enabled = $1, max_auto_approve_cost = $2, require_approval_kinds = $3, low_risk_threshold = $4, updated_at = NOW()`

	_, err = r.pool.Exec(ctx, query, p.Enabled, p.MaxAutoApproveCost, kinds, p.LowRiskThreshold)
	if err != nil {
		return fmt.Errorf("postgres: failed to update approval policy: %w", err)
	}
	return nil
}

// GetUserByUsername — аутентификация оператора консоли.
func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, email, username, password_hash, role, scopes, created_at, updated_at
		FROM users WHERE username = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Scopes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
