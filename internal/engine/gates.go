package engine

/*
Файл gates.go — дневные ограничители: квота агента и кап по видам операций.

Оба гейта — проверки вида "прочитал-решил" без шага резервирования: два
конкурентных предложения одного агента могут оба увидеть usage ниже потолка
и оба пройти. Это осознанный soft-limit (лимиты защищают бюджет, а не
раздают аллокации); ужесточение до атомарного reserve-and-check возможно
без изменения контракта.
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/policy"
)

// GateDecision — вердикт гейта. Отказ — ожидаемый исход с причиной
// для агента, а не ошибка.
type GateDecision struct {
	Allowed bool
	Reason  string
}

func allow() GateDecision {
	return GateDecision{Allowed: true}
}

func deny(format string, args ...interface{}) GateDecision {
	return GateDecision{Reason: fmt.Sprintf(format, args...)}
}

// UsageStore — живые дневные агрегаты. Не кэшируются между запросами:
// корректность гейтов зависит от свежести.
type UsageStore interface {
	AgentDailyUsage(ctx context.Context, agentID string, now time.Time) (int, float64, error)
	MaterializedStepCounts(ctx context.Context, agentID string, now time.Time) (map[domain.StepKind]int, error)
}

// QuotaGate проверяет дневные потолки агента: число предложений и
// суммарную стоимость. Без настроенной квоты — запрет (fail-closed).
type QuotaGate struct {
	policies policy.Provider
	usage    UsageStore
}

func NewQuotaGate(policies policy.Provider, usage UsageStore) *QuotaGate {
	return &QuotaGate{policies: policies, usage: usage}
}

func (g *QuotaGate) Check(ctx context.Context, agentID string, candidateCost float64, now time.Time) (GateDecision, error) {
	quota, err := g.policies.DailyQuota(ctx, agentID)
	if err != nil {
		return GateDecision{}, fmt.Errorf("quota lookup failed: %w", err)
	}
	if quota == nil {
		// Конфигурационный пробел, а не переполнение лимита: поднимаем
		// отдельной формулировкой, чтобы операторы его замечали
		return deny("no daily quota configured for agent %s", agentID), nil
	}

	count, costSum, err := g.usage.AgentDailyUsage(ctx, agentID, now)
	if err != nil {
		return GateDecision{}, fmt.Errorf("daily usage query failed: %w", err)
	}

	if count >= quota.MaxProposals {
		return deny("daily proposal limit reached: %d/%d", count+1, quota.MaxProposals), nil
	}
	if costSum+candidateCost > quota.MaxCostUsd {
		return deny("daily cost limit exceeded: $%.2f spent + $%.2f requested > $%.2f",
			costSum, candidateCost, quota.MaxCostUsd), nil
	}
	return allow(), nil
}

// StepCapGate проверяет дневные капы по видам операций. Счет ведется по
// уже материализованным шагам миссий агента, а не по pending-предложениям:
// кап ограничивает заявленную работу на момент подачи.
type StepCapGate struct {
	usage UsageStore
}

func NewStepCapGate(usage UsageStore) *StepCapGate {
	return &StepCapGate{usage: usage}
}

func (g *StepCapGate) Check(ctx context.Context, agentID string, steps []domain.StepTemplate, now time.Time) (GateDecision, error) {
	counts, err := g.usage.MaterializedStepCounts(ctx, agentID, now)
	if err != nil {
		return GateDecision{}, fmt.Errorf("step count query failed: %w", err)
	}

	seen := make(map[domain.StepKind]bool)
	for _, st := range steps {
		if seen[st.Kind] {
			continue
		}
		seen[st.Kind] = true

		entry, ok := domain.CatalogLookup(st.Kind)
		if !ok {
			continue // валидатор такое не пропускает
		}
		if counts[st.Kind] >= entry.CapPerDay {
			return deny("daily cap for step kind %q reached: %d/%d",
				st.Kind, counts[st.Kind], entry.CapPerDay), nil
		}
	}
	return allow(), nil
}
