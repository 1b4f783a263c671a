package engine

import (
	"strings"
	"testing"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

func baseProposal() *domain.Proposal {
	return &domain.Proposal{
		AgentID:     "agent-7",
		Title:       "Weekly market crawl",
		Description: "Collect and analyze weekly market data",
		Priority:    50,
		ProposedSteps: []domain.StepTemplate{
			{Kind: domain.StepCrawl, Title: "Fetch sources"},
		},
	}
}

func TestValidateProposal(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(p *domain.Proposal)
		field   string // Пустое поле = валидно
		message string
	}{
		{
			name:   "valid",
			mutate: func(p *domain.Proposal) {},
		},
		{
			name:   "missing agent id",
			mutate: func(p *domain.Proposal) { p.AgentID = "" },
			field:  "agent_id",
		},
		{
			name:   "title too short",
			mutate: func(p *domain.Proposal) { p.Title = "abc" },
			field:  "title",
		},
		{
			name:   "title too long",
			mutate: func(p *domain.Proposal) { p.Title = strings.Repeat("x", 201) },
			field:  "title",
		},
		{
			name:   "description too short",
			mutate: func(p *domain.Proposal) { p.Description = "short" },
			field:  "description",
		},
		{
			name:   "priority zero",
			mutate: func(p *domain.Proposal) { p.Priority = 0 },
			field:  "priority",
		},
		{
			name:   "priority above range",
			mutate: func(p *domain.Proposal) { p.Priority = 101 },
			field:  "priority",
		},
		{
			name:   "no steps",
			mutate: func(p *domain.Proposal) { p.ProposedSteps = nil },
			field:  "proposed_steps",
		},
		{
			name: "too many steps",
			mutate: func(p *domain.Proposal) {
				p.ProposedSteps = make([]domain.StepTemplate, 21)
				for i := range p.ProposedSteps {
					p.ProposedSteps[i] = domain.StepTemplate{Kind: domain.StepNotify, Title: "Ping"}
				}
			},
			field: "proposed_steps",
		},
		{
			name: "unknown step kind",
			mutate: func(p *domain.Proposal) {
				p.ProposedSteps[0].Kind = "terraform"
			},
			field:   "proposed_steps",
			message: "unknown kind",
		},
		{
			name: "step title too short",
			mutate: func(p *domain.Proposal) {
				p.ProposedSteps[0].Title = "ab"
			},
			field: "proposed_steps",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := baseProposal()
			tc.mutate(p)

			err := ValidateProposal(p)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on field %s, got nil", tc.field)
			}
			if err.Field != tc.field {
				t.Errorf("expected field %s, got %s", tc.field, err.Field)
			}
			if tc.message != "" && !strings.Contains(err.Message, tc.message) {
				t.Errorf("expected message containing %q, got %q", tc.message, err.Message)
			}
		})
	}
}

// Unicode-заголовки меряются в рунах, не в байтах
func TestValidateProposalUnicodeTitle(t *testing.T) {
	p := baseProposal()
	p.Title = "Отчет" // 5 рун, 10 байт

	if err := ValidateProposal(p); err != nil {
		t.Fatalf("5-rune title must pass: %v", err)
	}
}

func TestValidationStopsAtFirstFailure(t *testing.T) {
	p := baseProposal()
	p.Title = "ab"
	p.Priority = 0 // Тоже невалиден, но title проверяется раньше

	err := ValidateProposal(p)
	if err == nil || err.Field != "title" {
		t.Fatalf("expected first failure on title, got %v", err)
	}
}
