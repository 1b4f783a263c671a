package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zexoverz/dominion-sub001/internal/audit"
)

// AuditLogProvider описывает контракт для чтения журнала аудита.
type AuditLogProvider interface {
	FetchLogs(ctx context.Context, agentID, kind string) ([]audit.Event, error)
}

type AuditHandler struct {
	provider AuditLogProvider
}

func NewAuditHandler(p AuditLogProvider) *AuditHandler {
	return &AuditHandler{provider: p}
}

// GetLogs возвращает последние события с поддержкой фильтрации
// GET /v1/audit?agent_id=...&kind=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	kind := r.URL.Query().Get("kind")

	logs, err := h.provider.FetchLogs(r.Context(), agentID, kind)
	if err != nil {
		http.Error(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
