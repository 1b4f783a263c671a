package engine

import (
	"strings"
	"testing"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

func testPolicy() *domain.AutoApprovalPolicy {
	return &domain.AutoApprovalPolicy{
		Enabled:              true,
		MaxAutoApproveCost:   5.0,
		RequireApprovalKinds: []domain.StepKind{domain.StepDeploy, domain.StepPublish},
		LowRiskThreshold:     2.0,
	}
}

func proposalWith(cost float64, kinds ...domain.StepKind) *domain.Proposal {
	steps := make([]domain.StepTemplate, 0, len(kinds))
	for _, k := range kinds {
		steps = append(steps, domain.StepTemplate{Kind: k, Title: "Step"})
	}
	return &domain.Proposal{EstimatedCostUsd: cost, ProposedSteps: steps}
}

func TestEvaluateAutoApproval(t *testing.T) {
	cases := []struct {
		name     string
		pol      *domain.AutoApprovalPolicy
		p        *domain.Proposal
		approved bool
		reason   string
	}{
		{
			name:     "nil policy defers",
			pol:      nil,
			p:        proposalWith(0.25, domain.StepCrawl),
			reason:   "auto-approval disabled",
		},
		{
			name: "disabled policy defers",
			pol: func() *domain.AutoApprovalPolicy {
				pol := testPolicy()
				pol.Enabled = false
				return pol
			}(),
			p:      proposalWith(0.25, domain.StepCrawl),
			reason: "auto-approval disabled",
		},
		{
			name:     "low cost low risk approves",
			pol:      testPolicy(),
			p:        proposalWith(0.60, domain.StepCrawl, domain.StepAnalyze),
			approved: true,
		},
		{
			name:   "cost above ceiling defers",
			pol:    testPolicy(),
			p:      proposalWith(5.01, domain.StepCrawl),
			reason: "exceeds auto-approve ceiling",
		},
		{
			// Граница включительно: ровно на потолке — одобряем
			name:     "cost at ceiling approves",
			pol:      testPolicy(),
			p:        proposalWith(5.0, domain.StepCrawl),
			approved: true,
		},
		{
			name:   "restricted kind defers regardless of cost",
			pol:    testPolicy(),
			p:      proposalWith(0.40, domain.StepPublish),
			reason: "requires manual review",
		},
		{
			// crawl(1) + deploy(5): средний риск 3.0 > 2.0, но deploy
			// отсекается раньше по списку обязательного ревью
			name:   "review list checked before risk",
			pol:    testPolicy(),
			p:      proposalWith(2.75, domain.StepCrawl, domain.StepDeploy),
			reason: "requires manual review",
		},
		{
			// analyze(2) + generate_report(2): средний риск ровно 2.0 — проходит
			name:     "avg risk at threshold approves",
			pol:      testPolicy(),
			p:        proposalWith(0.95, domain.StepAnalyze, domain.StepGenerateReport),
			approved: true,
		},
		{
			// notify(1) + deploy(5) без deploy в списке ревью: средний 3.0
			name: "avg risk above threshold defers",
			pol: func() *domain.AutoApprovalPolicy {
				pol := testPolicy()
				pol.RequireApprovalKinds = nil
				pol.MaxAutoApproveCost = 10
				return pol
			}(),
			p:      proposalWith(2.55, domain.StepNotify, domain.StepDeploy),
			reason: "exceeds threshold",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec := EvaluateAutoApproval(tc.pol, tc.p)
			if dec.Approved != tc.approved {
				t.Fatalf("approved = %v, want %v (reason %q)", dec.Approved, tc.approved, dec.Reason)
			}
			if !tc.approved && !strings.Contains(dec.Reason, tc.reason) {
				t.Errorf("reason %q does not contain %q", dec.Reason, tc.reason)
			}
			if tc.approved && dec.Reason != "" {
				t.Errorf("approved decision must not carry a reason, got %q", dec.Reason)
			}
		})
	}
}
