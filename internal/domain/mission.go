package domain

import "time"

// Статусы миссии. Терминальные статусы принадлежат подсистеме исполнения,
// движок жизненного цикла создает миссию только в active.
type MissionStatus string

const (
	MissionActive MissionStatus = "active"
)

type StepStatus string

const (
	StepPending StepStatus = "pending"
)

// Mission — материализованная, исполняемая форма одобренного предложения.
// Инвариант: миссия никогда не видна без полного набора шагов —
// материализация атомарна (одна транзакция).
type Mission struct {
	ID               string        `json:"id"`
	ProposalID       string        `json:"proposal_id"`
	AgentID          string        `json:"agent_id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Priority         int           `json:"priority"`
	EstimatedCostUsd float64       `json:"estimated_cost_usd"`
	ActualCostUsd    float64       `json:"actual_cost_usd"`
	Status           MissionStatus `json:"status"`
	ProgressPct      float64       `json:"progress_pct"`

	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// Step — шаг миссии. StepOrder присваивается при материализации
// (1..N в исходном порядке шаблонов) и далее не меняется.
type Step struct {
	ID          string                 `json:"id"`
	MissionID   string                 `json:"mission_id"`
	StepOrder   int                    `json:"step_order"`
	Kind        StepKind               `json:"kind"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	InputData   map[string]interface{} `json:"input_data,omitempty"`
	MaxRetries  int                    `json:"max_retries"`
	Status      StepStatus             `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
}
