package engine

/*
Файл lifecycle.go — оркестратор жизненного цикла предложений.

Подача: валидация -> оценка стоимости -> квота -> капы -> запись pending ->
оценка автоодобрения -> материализация либо очередь ручного ревью.
Отказы валидации и гейтов — значения (SubmitResult), наружу как ошибки
уходят только инфраструктурные сбои.
*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zexoverz/dominion-sub001/internal/audit"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/policy"
	"go.uber.org/zap"
)

var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrMissionNotFound  = errors.New("mission not found")
)

// Store — требования оркестратора к хранилищу. Реализуется postgres.Repo.
type Store interface {
	UsageStore
	CreateProposal(ctx context.Context, p *domain.Proposal) error
	GetProposal(ctx context.Context, id string) (*domain.Proposal, error)
	ListPending(ctx context.Context, limit int, now time.Time) ([]*domain.Proposal, error)
	RejectProposal(ctx context.Context, id, reason string, now time.Time) error

	// Materialize — единственная многострочная транзакция: proposal ->
	// approved + миссия + шаги, все или ничего. Ее используют оба пути
	// одобрения, авто и ручной.
	Materialize(ctx context.Context, p *domain.Proposal, auto bool, now time.Time) (missionID string, err error)

	GetMission(ctx context.Context, id string) (*domain.Mission, error)
	ListMissionSteps(ctx context.Context, missionID string) ([]domain.Step, error)

	AgentStats(ctx context.Context, agentID string, windowDays int, now time.Time) (*domain.AgentStats, error)
}

type Engine struct {
	store    Store
	policies policy.Provider
	quota    *QuotaGate
	caps     *StepCapGate
	auditor  audit.Auditor
	metrics  *Metrics
	logger   *zap.Logger

	// Now подменяется в тестах для детерминированных суток и TTL
	Now func() time.Time

	// PendingLimit — дефолтный размер очереди ревью, если клиент не задал свой
	PendingLimit int
}

func New(store Store, policies policy.Provider, auditor audit.Auditor, metrics *Metrics, logger *zap.Logger) *Engine {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{
		store:        store,
		policies:     policies,
		quota:        NewQuotaGate(policies, store),
		caps:         NewStepCapGate(store),
		auditor:      auditor,
		metrics:      metrics,
		logger:       logger.Named("lifecycle"),
		Now:          time.Now,
		PendingLimit: 100,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Submit — единственная точка входа для агентов.
func (e *Engine) Submit(ctx context.Context, p *domain.Proposal) (res *domain.SubmitResult, err error) {
	start := time.Now()
	defer func() {
		outcome := "fault"
		if res != nil {
			outcome = string(res.Status)
		}
		e.metrics.SubmitTotal.WithLabelValues(p.AgentID, outcome).Inc()
		e.metrics.SubmitDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	// 1. Структурная валидация — до любого похода в БД
	if verr := ValidateProposal(p); verr != nil {
		return rejected(p.ID, verr.Error(), 0), nil
	}

	// 2. Стоимость всегда выводится из каталога, клиентская цифра затирается
	p.EstimatedCostUsd = EstimateCost(p.ProposedSteps)
	now := e.now()

	// 3. Квота агента (fail-closed без настроенной квоты)
	dec, err := e.quota.Check(ctx, p.AgentID, p.EstimatedCostUsd, now)
	if err != nil {
		return nil, e.fault(p, "quota gate", err)
	}
	if !dec.Allowed {
		return rejected(p.ID, dec.Reason, p.EstimatedCostUsd), nil
	}

	// 4. Капы по видам операций
	dec, err = e.caps.Check(ctx, p.AgentID, p.ProposedSteps, now)
	if err != nil {
		return nil, e.fault(p, "step cap gate", err)
	}
	if !dec.Allowed {
		return rejected(p.ID, dec.Reason, p.EstimatedCostUsd), nil
	}

	// 5. Запись pending-предложения
	p.Status = domain.ProposalPending
	p.AutoApproved = false
	p.CreatedAt = now
	p.ExpiresAt = now.Add(domain.ProposalTTL)
	for i := range p.ProposedSteps {
		if p.ProposedSteps[i].MaxRetries <= 0 {
			p.ProposedSteps[i].MaxRetries = domain.DefaultMaxRetries
		}
	}
	if err := e.store.CreateProposal(ctx, p); err != nil {
		return nil, e.fault(p, "persist proposal", err)
	}

	// 6. Оценка автоодобрения (чистая, по снапшоту политики)
	pol, err := e.policies.AutoApproval(ctx)
	if err != nil {
		return nil, e.fault(p, "approval policy lookup", err)
	}
	ad := EvaluateAutoApproval(pol, p)

	if !ad.Approved {
		e.auditor.Emit(p.AgentID, audit.EventProposalCreated, p.Title, p.EstimatedCostUsd, map[string]interface{}{
			"proposal_id":   p.ID,
			"auto_approved": false,
			"defer_reason":  ad.Reason,
		})
		e.logger.Info("proposal queued for manual review",
			zap.String("proposal_id", p.ID),
			zap.String("agent_id", p.AgentID),
			zap.String("reason", ad.Reason))
		return &domain.SubmitResult{
			ProposalID:       p.ID,
			Status:           domain.OutcomePending,
			EstimatedCostUsd: p.EstimatedCostUsd,
		}, nil
	}

	// 7. Автоматический путь: та же транзакция материализации, что и у оператора
	missionID, err := e.store.Materialize(ctx, p, true, now)
	if err != nil {
		e.metrics.MaterializeFailures.Inc()
		return nil, e.fault(p, "materialize", err)
	}

	e.auditor.Emit(p.AgentID, audit.EventProposalCreated, p.Title, p.EstimatedCostUsd, map[string]interface{}{
		"proposal_id":   p.ID,
		"auto_approved": true,
		"mission_id":    missionID,
	})
	e.logger.Info("proposal auto-approved",
		zap.String("proposal_id", p.ID),
		zap.String("agent_id", p.AgentID),
		zap.String("mission_id", missionID))

	return &domain.SubmitResult{
		ProposalID:       p.ID,
		Status:           domain.OutcomeAutoApproved,
		MissionID:        missionID,
		EstimatedCostUsd: p.EstimatedCostUsd,
	}, nil
}

// Approve — ручной путь одобрения. Обязан идти через ту же материализацию,
// что и автоодобрение, иначе пути разъедутся по семантике транзакции.
func (e *Engine) Approve(ctx context.Context, proposalID, reviewerID string) (string, error) {
	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return "", fmt.Errorf("proposal lookup failed: %w", err)
	}
	if p == nil {
		return "", ErrProposalNotFound
	}

	now := e.now()
	if err := p.CanDecide(now); err != nil {
		return "", err
	}

	missionID, err := e.store.Materialize(ctx, p, false, now)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			return "", err
		}
		e.metrics.MaterializeFailures.Inc()
		return "", e.fault(p, "manual materialize", err)
	}

	e.auditor.Emit(p.AgentID, audit.EventProposalApproved, p.Title, p.EstimatedCostUsd, map[string]interface{}{
		"proposal_id": p.ID,
		"mission_id":  missionID,
		"reviewer_id": reviewerID,
	})
	e.logger.Info("proposal manually approved",
		zap.String("proposal_id", p.ID),
		zap.String("reviewer_id", reviewerID),
		zap.String("mission_id", missionID))
	return missionID, nil
}

// Reject — ручной отказ с причиной оператора.
func (e *Engine) Reject(ctx context.Context, proposalID, reviewerID, reason string) error {
	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("proposal lookup failed: %w", err)
	}
	if p == nil {
		return ErrProposalNotFound
	}

	now := e.now()
	if err := p.CanDecide(now); err != nil {
		return err
	}
	if err := e.store.RejectProposal(ctx, proposalID, reason, now); err != nil {
		return err
	}

	e.auditor.Emit(p.AgentID, audit.EventProposalRejected, p.Title, p.EstimatedCostUsd, map[string]interface{}{
		"proposal_id": p.ID,
		"reviewer_id": reviewerID,
		"reason":      reason,
	})
	return nil
}

// GetProposal — чистое чтение, состояния не меняет.
func (e *Engine) GetProposal(ctx context.Context, id string) (*domain.Proposal, error) {
	p, err := e.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProposalNotFound
	}
	return p, nil
}

// ListPending возвращает очередь ручного ревью: приоритет по убыванию,
// при равном — более старые сначала; истекшие исключены.
func (e *Engine) ListPending(ctx context.Context, limit int) ([]*domain.Proposal, error) {
	if limit <= 0 {
		limit = e.PendingLimit
	}
	return e.store.ListPending(ctx, limit, e.now())
}

// GetMission возвращает материализованную миссию вместе с шагами.
func (e *Engine) GetMission(ctx context.Context, id string) (*domain.Mission, []domain.Step, error) {
	m, err := e.store.GetMission(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, ErrMissionNotFound
	}
	steps, err := e.store.ListMissionSteps(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return m, steps, nil
}

// AgentStats — сводка по агенту за окно windowDays.
func (e *Engine) AgentStats(ctx context.Context, agentID string, windowDays int) (*domain.AgentStats, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	return e.store.AgentStats(ctx, agentID, windowDays, e.now())
}

// rejected — структурированный отказ без персистентности.
func rejected(id, reason string, cost float64) *domain.SubmitResult {
	return &domain.SubmitResult{
		ProposalID:       id,
		Status:           domain.OutcomeRejected,
		RejectionReason:  reason,
		EstimatedCostUsd: cost,
	}
}

// fault оборачивает инфраструктурный сбой и перед пробросом наружу
// best-effort пишет его в аудит.
func (e *Engine) fault(p *domain.Proposal, stage string, err error) error {
	e.logger.Error("lifecycle infrastructure fault",
		zap.String("stage", stage),
		zap.String("proposal_id", p.ID),
		zap.Error(err))
	kind := audit.EventLifecycleFault
	if stage == "materialize" || stage == "manual materialize" {
		kind = audit.EventMaterializationFailed
	}
	e.auditor.Emit(p.AgentID, kind, p.Title, p.EstimatedCostUsd, map[string]interface{}{
		"proposal_id": p.ID,
		"stage":       stage,
		"error":       err.Error(),
	})
	return fmt.Errorf("%s: %w", stage, err)
}
