package postgres

/*
Файл mission_repo.go — единственное место с многострочной атомарной записью.
Материализация (proposal -> approved, mission, N steps) выполняется в одной
транзакции: любой сбой откатывает все, частичных миссий не бывает.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// Materialize переводит предложение в approved и создает миссию с шагами.
// auto == true только на автоматическом пути одобрения.
// Гарантия: на выходе миссия имеет ровно len(ProposedSteps) шагов со
// step_order = 1..N в исходном порядке; при ошибке видимых строк нет.
func (r *Repo) Materialize(ctx context.Context, p *domain.Proposal, auto bool, now time.Time) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("postgres: begin materialize tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Флип статуса. Условие status = 'pending' исключает двойную
	// материализацию при гонке авто- и ручного путей.
	ct, err := tx.Exec(ctx, `
		UPDATE proposals
		SET status = 'approved', auto_approved = $1, reviewed_at = $2
		WHERE id = $3 AND status = 'pending'`,
		auto, now, p.ID,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to approve proposal: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return "", domain.ErrAlreadyProcessed
	}

	// 2. Миссия
	missionID := uuid.New().String()
	_, err = tx.Exec(ctx, `
		INSERT INTO missions (id, proposal_id, agent_id, title, description, priority,
		                      estimated_cost_usd, actual_cost_usd, status, progress_pct,
		                      created_at, started_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, 0, $9, $9, $9)`,
		missionID, p.ID, p.AgentID, p.Title, p.Description, p.Priority,
		p.EstimatedCostUsd, domain.MissionActive, now,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to create mission: %w", err)
	}

	// 3. Шаги, в исходном порядке, step_order с единицы
	for i, st := range p.ProposedSteps {
		input, err := json.Marshal(st.InputData)
		if err != nil {
			return "", fmt.Errorf("postgres: failed to encode step input: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO steps (id, mission_id, step_order, kind, title, description,
			                   input_data, max_retries, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New().String(), missionID, i+1, st.Kind, st.Title, st.Description,
			input, st.MaxRetries, domain.StepPending, now,
		)
		if err != nil {
			return "", fmt.Errorf("postgres: failed to insert step %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("postgres: materialize commit failed: %w", err)
	}
	return missionID, nil
}

// GetMission возвращает миссию по ID. nil — не найдена.
func (r *Repo) GetMission(ctx context.Context, id string) (*domain.Mission, error) {
	query := `
		SELECT id, proposal_id, agent_id, title, description, priority,
		       estimated_cost_usd, actual_cost_usd, status, progress_pct,
		       created_at, started_at, completed_at, last_activity_at
		FROM missions WHERE id = $1`

	var m domain.Mission
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.ProposalID, &m.AgentID, &m.Title, &m.Description, &m.Priority,
		&m.EstimatedCostUsd, &m.ActualCostUsd, &m.Status, &m.ProgressPct,
		&m.CreatedAt, &m.StartedAt, &m.CompletedAt, &m.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get mission: %w", err)
	}
	return &m, nil
}

// ListMissionSteps возвращает шаги миссии в порядке исполнения.
func (r *Repo) ListMissionSteps(ctx context.Context, missionID string) ([]domain.Step, error) {
	query := `
		SELECT id, mission_id, step_order, kind, title, description,
		       input_data, max_retries, status, created_at
		FROM steps WHERE mission_id = $1
		ORDER BY step_order ASC`

	rows, err := r.pool.Query(ctx, query, missionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query steps: %w", err)
	}
	defer rows.Close()

	steps := make([]domain.Step, 0)
	for rows.Next() {
		var s domain.Step
		if err := rows.Scan(
			&s.ID, &s.MissionID, &s.StepOrder, &s.Kind, &s.Title, &s.Description,
			&s.InputData, &s.MaxRetries, &s.Status, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan step: %w", err)
		}
		steps = append(steps, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return steps, nil
}
