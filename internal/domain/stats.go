package domain

// AgentStats — сводка по агенту за окно в N дней для административного API.
type AgentStats struct {
	AgentID            string  `json:"agent_id"`
	WindowDays         int     `json:"window_days"`
	ProposalsSubmitted int64   `json:"proposals_submitted"`
	ProposalsApproved  int64   `json:"proposals_approved"`
	AutoApprovalRate   float64 `json:"auto_approval_rate"`
	TotalCostUsd       float64 `json:"total_cost_usd"`
	AvgPriority        float64 `json:"avg_priority"`
}

// GlobalStats питает дашборд консоли.
type GlobalStats struct {
	TotalProposals   int64            `json:"total_proposals"`
	PendingReview    int64            `json:"pending_review"`
	AutoApproved     int64            `json:"auto_approved"`
	ActiveMissions   int64            `json:"active_missions"`
	AutoApprovalRate float64          `json:"auto_approval_rate"`
	TopStepKinds     map[string]int64 `json:"top_step_kinds"`
}
