package engine

import (
	"fmt"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// ApprovalDecision — итог оценки автоодобрения. Отложенное решение
// оставляет предложение в pending для оператора.
type ApprovalDecision struct {
	Approved bool
	Reason   string // Заполнена только для отложенных
}

func approved() ApprovalDecision {
	return ApprovalDecision{Approved: true}
}

func deferred(format string, args ...interface{}) ApprovalDecision {
	return ApprovalDecision{Reason: fmt.Sprintf(format, args...)}
}

// EvaluateAutoApproval — чистая функция над политикой и предложением,
// ни одной записи не делает. Порядок проверок: выключатель, стоимость
// (граница включительно в пользу одобрения), обязательное ревью по виду
// операции, средний риск.
func EvaluateAutoApproval(pol *domain.AutoApprovalPolicy, p *domain.Proposal) ApprovalDecision {
	if pol == nil || !pol.Enabled {
		return deferred("auto-approval disabled")
	}

	if p.EstimatedCostUsd > pol.MaxAutoApproveCost {
		return deferred("estimated cost $%.2f exceeds auto-approve ceiling $%.2f",
			p.EstimatedCostUsd, pol.MaxAutoApproveCost)
	}

	for _, st := range p.ProposedSteps {
		if pol.RequiresReview(st.Kind) {
			return deferred("step kind %q requires manual review", st.Kind)
		}
	}

	var riskSum float64
	for _, st := range p.ProposedSteps {
		if entry, ok := domain.CatalogLookup(st.Kind); ok {
			riskSum += float64(entry.RiskLevel)
		}
	}
	avgRisk := riskSum / float64(len(p.ProposedSteps))
	if avgRisk > pol.LowRiskThreshold {
		return deferred("average risk %.2f exceeds threshold %.2f", avgRisk, pol.LowRiskThreshold)
	}

	return approved()
}
