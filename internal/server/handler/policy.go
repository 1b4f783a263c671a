package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/server/service"
)

type PolicyHandler struct {
	service *service.PolicyService
}

func NewPolicyHandler(s *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: s}
}

// ListQuotas возвращает все дневные квоты для админки.
// GET /v1/policy/quotas
func (h *PolicyHandler) ListQuotas(w http.ResponseWriter, r *http.Request) {
	quotas, err := h.service.ListQuotas(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch quotas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quotas)
}

// GetQuota возвращает квоту конкретного агента.
// GET /v1/policy/quotas/{agentId}
func (h *PolicyHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	quota, err := h.service.GetQuota(r.Context(), agentID)
	if err != nil {
		http.Error(w, "Failed to retrieve quota: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if quota == nil {
		http.Error(w, "Quota not configured", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quota)
}

// UpsertQuota задает или меняет квоту агента и инициирует горячую
// перезагрузку снапшота политик на всех инстансах.
// PUT /v1/policy/quotas/{agentId}
func (h *PolicyHandler) UpsertQuota(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	var q domain.DailyQuota
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	q.AgentID = agentID

	if err := h.service.UpsertQuota(r.Context(), &q); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteQuota снимает квоту агента (мягкая блокировка: без квоты подача невозможна).
// DELETE /v1/policy/quotas/{agentId}
func (h *PolicyHandler) DeleteQuota(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	if err := h.service.DeleteQuota(r.Context(), agentID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAutoApproval возвращает текущие правила автоодобрения.
// GET /v1/policy/auto-approval
func (h *PolicyHandler) GetAutoApproval(w http.ResponseWriter, r *http.Request) {
	pol, err := h.service.GetAutoApproval(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch auto-approval policy", http.StatusInternalServerError)
		return
	}
	if pol == nil {
		http.Error(w, "Auto-approval policy not configured", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pol)
}

// UpdateAutoApproval перезаписывает правила автоодобрения.
// PUT /v1/policy/auto-approval
func (h *PolicyHandler) UpdateAutoApproval(w http.ResponseWriter, r *http.Request) {
	var pol domain.AutoApprovalPolicy
	if err := json.NewDecoder(r.Body).Decode(&pol); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateAutoApproval(r.Context(), &pol); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
