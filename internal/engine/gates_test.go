package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/policy"
)

type fakeUsage struct {
	count      int
	costSum    float64
	stepCounts map[domain.StepKind]int
	err        error
}

func (f *fakeUsage) AgentDailyUsage(_ context.Context, _ string, _ time.Time) (int, float64, error) {
	return f.count, f.costSum, f.err
}

func (f *fakeUsage) MaterializedStepCounts(_ context.Context, _ string, _ time.Time) (map[domain.StepKind]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stepCounts == nil {
		return map[domain.StepKind]int{}, nil
	}
	return f.stepCounts, nil
}

func quotaProvider(maxProposals int, maxCost float64) *policy.StaticProvider {
	return &policy.StaticProvider{
		Quotas: map[string]domain.DailyQuota{
			"agent-7": {AgentID: "agent-7", MaxProposals: maxProposals, MaxCostUsd: maxCost},
		},
	}
}

func TestQuotaGateAllowsUnderLimits(t *testing.T) {
	g := NewQuotaGate(quotaProvider(10, 100), &fakeUsage{count: 3, costSum: 10})

	dec, err := g.Check(context.Background(), "agent-7", 5.0, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allow, got %q", dec.Reason)
	}
}

func TestQuotaGateDeniesWithoutQuota(t *testing.T) {
	g := NewQuotaGate(&policy.StaticProvider{}, &fakeUsage{})

	dec, err := g.Check(context.Background(), "stranger", 0.25, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed || !strings.Contains(dec.Reason, "no daily quota configured for agent stranger") {
		t.Fatalf("expected fail-closed denial, got %+v", dec)
	}
}

func TestQuotaGateDeniesAtProposalCount(t *testing.T) {
	g := NewQuotaGate(quotaProvider(5, 100), &fakeUsage{count: 5})

	dec, err := g.Check(context.Background(), "agent-7", 0.25, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed || !strings.Contains(dec.Reason, "daily proposal limit reached: 6/5") {
		t.Fatalf("expected count denial, got %+v", dec)
	}
}

func TestQuotaGateCostBoundary(t *testing.T) {
	// 49.40 + 0.60 == 50.00 — ровно на потолке проходит
	g := NewQuotaGate(quotaProvider(10, 50), &fakeUsage{costSum: 49.40})
	dec, err := g.Check(context.Background(), "agent-7", 0.60, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("exact ceiling must pass, got %q", dec.Reason)
	}

	// Цент сверху — отказ
	g = NewQuotaGate(quotaProvider(10, 50), &fakeUsage{costSum: 49.41})
	dec, err = g.Check(context.Background(), "agent-7", 0.60, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed || !strings.Contains(dec.Reason, "daily cost limit exceeded") {
		t.Fatalf("expected cost denial, got %+v", dec)
	}
}

func TestQuotaGatePropagatesUsageError(t *testing.T) {
	g := NewQuotaGate(quotaProvider(10, 50), &fakeUsage{err: errors.New("db down")})

	if _, err := g.Check(context.Background(), "agent-7", 0.25, time.Now()); err == nil {
		t.Fatal("expected infrastructure error to propagate")
	}
}

func TestStepCapGateDeniesAtCap(t *testing.T) {
	g := NewStepCapGate(&fakeUsage{stepCounts: map[domain.StepKind]int{domain.StepDeploy: 5}})

	steps := []domain.StepTemplate{{Kind: domain.StepDeploy, Title: "Ship"}}
	dec, err := g.Check(context.Background(), "agent-7", steps, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed || !strings.Contains(dec.Reason, `daily cap for step kind "deploy" reached: 5/5`) {
		t.Fatalf("expected cap denial, got %+v", dec)
	}
}

func TestStepCapGateChecksKindOnce(t *testing.T) {
	// Кап меряется по материализованной истории, а не по числу
	// повторов вида внутри одного предложения
	g := NewStepCapGate(&fakeUsage{stepCounts: map[domain.StepKind]int{domain.StepNotify: 199}})

	steps := []domain.StepTemplate{
		{Kind: domain.StepNotify, Title: "Ping A"},
		{Kind: domain.StepNotify, Title: "Ping B"},
		{Kind: domain.StepNotify, Title: "Ping C"},
	}
	dec, err := g.Check(context.Background(), "agent-7", steps, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("one slot left must allow the batch, got %q", dec.Reason)
	}
}

func TestEstimateCostFromCatalog(t *testing.T) {
	steps := []domain.StepTemplate{
		{Kind: domain.StepCrawl, Title: "Fetch"},
		{Kind: domain.StepAnalyze, Title: "Analyze"},
	}
	if got := EstimateCost(steps); got != 0.60 {
		t.Fatalf("expected 0.60, got %.2f", got)
	}

	if got := EstimateCost(nil); got != 0 {
		t.Fatalf("empty steps cost 0, got %.2f", got)
	}
}
