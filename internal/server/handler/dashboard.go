package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// DashboardService — что нужно хендлеру дашборда
type DashboardService interface {
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)
}

type DashboardHandler struct {
	service DashboardService
}

func NewDashboardHandler(s DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStats — сводка для главного экрана консоли.
// GET /v1/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GlobalStats(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
