package domain

import "time"

// DailyQuota — дневной потолок агента по количеству предложений и их
// суммарной стоимости. Отсутствие квоты трактуется как запрет (fail-closed):
// агент без настроенного лимита действовать не может.
type DailyQuota struct {
	AgentID      string    `json:"agent_id"`
	MaxProposals int       `json:"max_proposals"`
	MaxCostUsd   float64   `json:"max_cost_usd"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AutoApprovalPolicy — правила автоодобрения, задаются оператором
// и горячо перечитываются движком (см. policy.MemoProvider).
type AutoApprovalPolicy struct {
	Enabled            bool    `json:"enabled"`
	MaxAutoApproveCost float64 `json:"max_auto_approve_cost"`
	// Виды операций, всегда требующие ручного ревью, независимо от стоимости и риска
	RequireApprovalKinds []StepKind `json:"require_approval_kinds"`
	// Порог среднего риска шагов, выше которого предложение уходит оператору
	LowRiskThreshold float64   `json:"low_risk_threshold"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RequiresReview — входит ли вид операции в список обязательного ревью.
func (p *AutoApprovalPolicy) RequiresReview(kind StepKind) bool {
	for _, k := range p.RequireApprovalKinds {
		if k == kind {
			return true
		}
	}
	return false
}
