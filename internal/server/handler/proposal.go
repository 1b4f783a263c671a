package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/engine"
	"github.com/zexoverz/dominion-sub001/internal/infra/auth"
)

// LifecycleService — что хендлеру нужно от движка
type LifecycleService interface {
	Submit(ctx context.Context, p *domain.Proposal) (*domain.SubmitResult, error)
	GetProposal(ctx context.Context, id string) (*domain.Proposal, error)
	ListPending(ctx context.Context, limit int) ([]*domain.Proposal, error)
	AgentStats(ctx context.Context, agentID string, windowDays int) (*domain.AgentStats, error)
	Approve(ctx context.Context, id, reviewerID string) (string, error)
	Reject(ctx context.Context, id, reviewerID, reason string) error
	GetMission(ctx context.Context, id string) (*domain.Mission, []domain.Step, error)
}

type ProposalHandler struct {
	service LifecycleService
}

func NewProposalHandler(s LifecycleService) *ProposalHandler {
	return &ProposalHandler{service: s}
}

// Submit принимает предложение от агента.
// POST /v1/proposals
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var p domain.Proposal
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Submit(r.Context(), &p)
	if err != nil {
		// Инфраструктурный сбой; отказы гейтов сюда не попадают
		http.Error(w, "submission failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == domain.OutcomeRejected {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(result)
}

// Get возвращает предложение по ID.
// GET /v1/proposals/{id}
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.service.GetProposal(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrProposalNotFound) {
			http.Error(w, "proposal not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// ListPending — очередь ручного ревью для консоли.
// GET /v1/proposals/pending?limit=...
func (h *ProposalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.service.ListPending(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Approve фиксирует ручное одобрение оператора.
// POST /v1/proposals/{id}/approve
func (h *ProposalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// ReviewerID из контекста (авторизованный оператор) — для подотчетности
	reviewerID := auth.UserID(r.Context())
	if reviewerID == "" {
		http.Error(w, "reviewer identity is required", http.StatusUnauthorized)
		return
	}

	missionID, err := h.service.Approve(r.Context(), id, reviewerID)
	if err != nil {
		writeDecisionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"mission_id": missionID})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject фиксирует ручной отказ с причиной оператора.
// POST /v1/proposals/{id}/reject
func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}

	reviewerID := auth.UserID(r.Context())
	if reviewerID == "" {
		http.Error(w, "reviewer identity is required", http.StatusUnauthorized)
		return
	}

	if err := h.service.Reject(r.Context(), id, reviewerID, req.Reason); err != nil {
		writeDecisionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMission — материализованная миссия с шагами в порядке исполнения.
// GET /v1/missions/{id}
func (h *ProposalHandler) GetMission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, steps, err := h.service.GetMission(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrMissionNotFound) {
			http.Error(w, "mission not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"mission": m,
		"steps":   steps,
	})
}

// AgentStats — сводка по агенту.
// GET /v1/agents/{id}/stats?window_days=7
func (h *ProposalHandler) AgentStats(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	windowDays, _ := strconv.Atoi(r.URL.Query().Get("window_days"))

	stats, err := h.service.AgentStats(r.Context(), agentID, windowDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// writeDecisionError мапит ошибки ручного решения на HTTP-статусы:
// повторное решение и истекшее окно — конфликт, а не сбой.
func writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrProposalNotFound):
		http.Error(w, "proposal not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyProcessed), errors.Is(err, domain.ErrProposalExpired):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
