package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/infra"
	"go.uber.org/zap"
)

// PolicyRepository описывает требования сервиса к хранилищу политик
type PolicyRepository interface {
	ListQuotas(ctx context.Context) (map[string]domain.DailyQuota, error)
	GetDailyQuota(ctx context.Context, agentID string) (*domain.DailyQuota, error)
	UpsertQuota(ctx context.Context, q *domain.DailyQuota) error
	DeleteQuota(ctx context.Context, agentID string) error
	GetAutoApprovalPolicy(ctx context.Context) (*domain.AutoApprovalPolicy, error)
	UpdateAutoApprovalPolicy(ctx context.Context, p *domain.AutoApprovalPolicy) error
}

// PolicyService — консольное управление квотами и правилами автоодобрения.
// Каждое изменение сопровождается сигналом в Redis: движки перечитают
// свой снапшот политик (горячая перезагрузка без рестарта).
type PolicyService struct {
	repo   PolicyRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPolicyService(repo PolicyRepository, rdb *redis.Client, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("policy-admin"),
	}
}

func (s *PolicyService) ListQuotas(ctx context.Context) (map[string]domain.DailyQuota, error) {
	return s.repo.ListQuotas(ctx)
}

func (s *PolicyService) GetQuota(ctx context.Context, agentID string) (*domain.DailyQuota, error) {
	return s.repo.GetDailyQuota(ctx, agentID)
}

func (s *PolicyService) UpsertQuota(ctx context.Context, q *domain.DailyQuota) error {
	if err := s.repo.UpsertQuota(ctx, q); err != nil {
		return err
	}
	s.logger.Info("agent quota updated",
		zap.String("agent_id", q.AgentID),
		zap.Int("max_proposals", q.MaxProposals),
		zap.Float64("max_cost_usd", q.MaxCostUsd))
	return s.notifyUpdate(ctx)
}

func (s *PolicyService) DeleteQuota(ctx context.Context, agentID string) error {
	if err := s.repo.DeleteQuota(ctx, agentID); err != nil {
		return err
	}
	return s.notifyUpdate(ctx)
}

func (s *PolicyService) GetAutoApproval(ctx context.Context) (*domain.AutoApprovalPolicy, error) {
	return s.repo.GetAutoApprovalPolicy(ctx)
}

func (s *PolicyService) UpdateAutoApproval(ctx context.Context, p *domain.AutoApprovalPolicy) error {
	if err := s.repo.UpdateAutoApprovalPolicy(ctx, p); err != nil {
		return err
	}
	s.logger.Info("auto-approval policy updated",
		zap.Bool("enabled", p.Enabled),
		zap.Float64("max_cost", p.MaxAutoApproveCost))
	return s.notifyUpdate(ctx)
}

// notifyUpdate отправляет широковещательный сигнал в Redis. Сигнал простой:
// подписанный движок сам перечитает весь набор политик из БД.
func (s *PolicyService) notifyUpdate(ctx context.Context) error {
	return s.rdb.Publish(ctx, infra.RedisChanPolicyUpdate, "refresh").Err()
}
