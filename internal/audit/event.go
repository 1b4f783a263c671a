package audit

import "time"

// Виды событий жизненного цикла
const (
	EventProposalCreated       = "proposal_created"
	EventProposalApproved      = "proposal_approved"
	EventProposalRejected      = "proposal_rejected"
	EventMaterializationFailed = "materialization_failed"
	EventLifecycleFault        = "lifecycle_fault"
)

// Event — запись в журнале аудита. Append-only; потеря отдельной записи
// допустима, потеря консистентности миссий — нет.
type Event struct {
	ID      string `json:"id"`       // UUID события
	AgentID string `json:"agent_id"` // Чье предложение
	Kind    string `json:"kind"`     // Что произошло
	Title   string `json:"title"`    // Человекочитаемый заголовок

	Details map[string]interface{} `json:"details,omitempty"` // Контекст (mission_id, причина и т.д.)
	CostUsd float64                `json:"cost_usd"`

	Timestamp time.Time `json:"timestamp"`
}
