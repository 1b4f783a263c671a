package policy

import (
	"context"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// Provider — read-only доступ движка к операторским политикам.
// Инжектируется зависимостью, а не глобальным синглтоном, чтобы тесты
// могли подставить фиксированные правила.
type Provider interface {
	// DailyQuota возвращает дневную квоту агента. nil — квота не настроена,
	// что движок обязан трактовать как запрет (fail-closed).
	DailyQuota(ctx context.Context, agentID string) (*domain.DailyQuota, error)

	// AutoApproval возвращает правила автоодобрения. nil — автоодобрение
	// не сконфигурировано, все решения уходят оператору.
	AutoApproval(ctx context.Context) (*domain.AutoApprovalPolicy, error)
}

// StaticProvider отдает фиксированный набор правил. Используется в тестах
// и для локального запуска без Postgres.
type StaticProvider struct {
	Quotas map[string]domain.DailyQuota
	Auto   *domain.AutoApprovalPolicy
}

func (s *StaticProvider) DailyQuota(_ context.Context, agentID string) (*domain.DailyQuota, error) {
	q, ok := s.Quotas[agentID]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *StaticProvider) AutoApproval(_ context.Context) (*domain.AutoApprovalPolicy, error) {
	return s.Auto, nil
}
