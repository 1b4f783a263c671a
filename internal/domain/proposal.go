package domain

import (
	"errors"
	"time"
)

// Статусы жизненного цикла предложения
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// ProposalTTL — время жизни pending-предложения с момента подачи.
// Истечение не удаляет строку, а лишь выводит ее из очереди ревью.
const ProposalTTL = 24 * time.Hour

var (
	ErrAlreadyProcessed = errors.New("proposal already processed")
	ErrProposalExpired  = errors.New("proposal has expired")
)

// StepTemplate — шаг предложения до материализации.
// Порядок в слайсе и есть будущий step_order миссии.
type StepTemplate struct {
	Kind        StepKind               `json:"kind"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	InputData   map[string]interface{} `json:"input_data,omitempty"`
	MaxRetries  int                    `json:"max_retries"`
}

// DefaultMaxRetries подставляется, если агент не указал свое значение.
const DefaultMaxRetries = 3

// Proposal — запрошенная агентом единица работы.
// EstimatedCostUsd всегда выводится из каталога на момент подачи,
// клиентская цифра не является источником правды.
type Proposal struct {
	ID               string                 `json:"id"`
	AgentID          string                 `json:"agent_id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Priority         int                    `json:"priority"` // 1..100
	EstimatedCostUsd float64                `json:"estimated_cost_usd"`
	ProposedSteps    []StepTemplate         `json:"proposed_steps"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Status           ProposalStatus         `json:"status"`
	AutoApproved     bool                   `json:"auto_approved"`
	RejectionReason  *string                `json:"rejection_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// Expired — истекло ли окно ручного ревью.
func (p *Proposal) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// CanDecide проверяет правила конечного автомата перед ручным решением.
// Решение возможно только по живому pending-предложению.
func (p *Proposal) CanDecide(now time.Time) error {
	if p.Status != ProposalPending {
		return ErrAlreadyProcessed
	}
	if p.Expired(now) {
		return ErrProposalExpired
	}
	return nil
}

// Исходы Submit: ожидаемые бизнес-результаты, а не ошибки.
type SubmitOutcome string

const (
	OutcomePending      SubmitOutcome = "pending"
	OutcomeAutoApproved SubmitOutcome = "auto_approved"
	OutcomeRejected     SubmitOutcome = "rejected"
)

// SubmitResult — структурированный ответ оркестратора на подачу предложения.
type SubmitResult struct {
	ProposalID       string        `json:"proposal_id"`
	Status           SubmitOutcome `json:"status"`
	MissionID        string        `json:"mission_id,omitempty"`
	RejectionReason  string        `json:"rejection_reason,omitempty"`
	EstimatedCostUsd float64       `json:"estimated_cost_usd"`
}
