package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/engine"
)

// fakeLifecycle возвращает заранее заданные ответы движка
type fakeLifecycle struct {
	submitRes  *domain.SubmitResult
	submitErr  error
	proposal   *domain.Proposal
	decideErr  error
	rejectErr  error
	lastReason string
}

func (f *fakeLifecycle) Submit(_ context.Context, _ *domain.Proposal) (*domain.SubmitResult, error) {
	return f.submitRes, f.submitErr
}

func (f *fakeLifecycle) GetProposal(_ context.Context, _ string) (*domain.Proposal, error) {
	if f.proposal == nil {
		return nil, engine.ErrProposalNotFound
	}
	return f.proposal, nil
}

func (f *fakeLifecycle) ListPending(_ context.Context, _ int) ([]*domain.Proposal, error) {
	return []*domain.Proposal{}, nil
}

func (f *fakeLifecycle) AgentStats(_ context.Context, agentID string, windowDays int) (*domain.AgentStats, error) {
	return &domain.AgentStats{AgentID: agentID, WindowDays: windowDays}, nil
}

func (f *fakeLifecycle) Approve(_ context.Context, _, _ string) (string, error) {
	if f.decideErr != nil {
		return "", f.decideErr
	}
	return "mission-1", nil
}

func (f *fakeLifecycle) Reject(_ context.Context, _, _, reason string) error {
	f.lastReason = reason
	return f.rejectErr
}

func (f *fakeLifecycle) GetMission(_ context.Context, _ string) (*domain.Mission, []domain.Step, error) {
	return nil, nil, engine.ErrMissionNotFound
}

func submitBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"agent_id": "agent-7",
		"title":    "Weekly crawl",
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(body)
}

func TestSubmitStatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		res      *domain.SubmitResult
		wantCode int
	}{
		{
			name:     "auto approved is 200",
			res:      &domain.SubmitResult{Status: domain.OutcomeAutoApproved, MissionID: "m-1"},
			wantCode: http.StatusOK,
		},
		{
			name:     "pending is 200",
			res:      &domain.SubmitResult{Status: domain.OutcomePending},
			wantCode: http.StatusOK,
		},
		{
			// Отказ гейта/валидации — структурированный ответ, не 200
			name:     "rejected is 422",
			res:      &domain.SubmitResult{Status: domain.OutcomeRejected, RejectionReason: "no daily quota configured for agent agent-7"},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewProposalHandler(&fakeLifecycle{submitRes: tc.res})

			rec := httptest.NewRecorder()
			h.Submit(rec, httptest.NewRequest(http.MethodPost, "/v1/proposals", submitBody(t)))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}

			var got domain.SubmitResult
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("response must be JSON: %v", err)
			}
			if got.Status != tc.res.Status {
				t.Errorf("expected status %s, got %s", tc.res.Status, got.Status)
			}
		})
	}
}

func TestSubmitBadBody(t *testing.T) {
	h := NewProposalHandler(&fakeLifecycle{})

	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/v1/proposals", bytes.NewBufferString("{broken")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetProposalNotFound(t *testing.T) {
	h := NewProposalHandler(&fakeLifecycle{})

	r := chi.NewRouter()
	r.Get("/v1/proposals/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/proposals/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDecisionErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", engine.ErrProposalNotFound, http.StatusNotFound},
		{"already processed", domain.ErrAlreadyProcessed, http.StatusConflict},
		{"expired", domain.ErrProposalExpired, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDecisionError(rec, tc.err)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
		})
	}
}

func TestApproveRequiresIdentity(t *testing.T) {
	h := NewProposalHandler(&fakeLifecycle{})

	r := chi.NewRouter()
	r.Post("/v1/proposals/{id}/approve", h.Approve)

	// Без операторского контекста — отказ до вызова движка
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/proposals/p-1/approve", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	h := NewProposalHandler(&fakeLifecycle{})

	r := chi.NewRouter()
	r.Post("/v1/proposals/{id}/reject", h.Reject)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/proposals/p-1/reject",
		bytes.NewBufferString(`{"reason": ""}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
