package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
)

// vendorSourceStub 内存供应商查询
type vendorSourceStub struct {
	vendors map[string]*entity.Vendor
}

func (s *vendorSourceStub) FindByID(_ context.Context, id string) (*entity.Vendor, error) {
	if v, ok := s.vendors[id]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func newPlanningFixture(vendors map[string]*entity.Vendor) *PlanningService {
	cfg := DefaultPlanningConfig()
	risk := NewRiskAnalyzer(&vendorSourceStub{vendors: vendors}, cfg)
	risk.SetClock(fixedNow)
	svc := NewPlanningService(risk, NewCapacityOptimizer(), NewStandardPhasePlanner(), cfg)
	svc.SetClock(fixedNow)
	return svc
}

func TestCreatePlanRejectsInvalidOrder(t *testing.T) {
	svc := newPlanningFixture(nil)
	ctx := context.Background()

	delivery := fixedNow().Add(30 * 24 * time.Hour)
	noItems := &entity.Order{ID: "o1", DeliveryDate: &delivery}
	if _, err := svc.CreatePlan(ctx, noItems); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for missing items, got %v", err)
	}

	noDate := orderFixture(1_000_000, 3, delivery)
	noDate.DeliveryDate = nil
	if _, err := svc.CreatePlan(ctx, noDate); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for missing delivery date, got %v", err)
	}
}

func TestCreatePlanTimelineBackScheduling(t *testing.T) {
	svc := newPlanningFixture(nil)

	delivery := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	// 6M订单缓冲2天，5行项生产7天
	order := orderFixture(6_000_000, 5, delivery)

	plan, err := svc.CreatePlan(context.Background(), order)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	if plan.Timeline.BufferDays != 2 {
		t.Fatalf("expected buffer 2 days, got %d", plan.Timeline.BufferDays)
	}
	wantStart := delivery.AddDate(0, 0, -9)
	wantEnd := delivery.AddDate(0, 0, -2)
	if !plan.Timeline.StartDate.Equal(wantStart) {
		t.Errorf("expected start %s, got %s", wantStart, plan.Timeline.StartDate)
	}
	if !plan.Timeline.EndDate.Equal(wantEnd) {
		t.Errorf("expected end %s, got %s", wantEnd, plan.Timeline.EndDate)
	}

	if len(plan.Timeline.Phases) != len(entity.StandardPhases) {
		t.Fatalf("expected %d phases, got %d", len(entity.StandardPhases), len(plan.Timeline.Phases))
	}
	last := plan.Timeline.Phases[len(plan.Timeline.Phases)-1]
	if !last.EndDate.Equal(wantEnd) {
		t.Errorf("last phase should end at timeline end, got %s", last.EndDate)
	}
}

func TestCreatePlanMilestoneChain(t *testing.T) {
	svc := newPlanningFixture(nil)
	delivery := fixedNow().Add(40 * 24 * time.Hour)
	order := orderFixture(2_000_000, 4, delivery)

	plan, err := svc.CreatePlan(context.Background(), order)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	if len(plan.Milestones) != len(plan.Timeline.Phases) {
		t.Fatalf("expected one milestone per phase, got %d", len(plan.Milestones))
	}
	if len(plan.Milestones[0].DependsOn) != 0 {
		t.Errorf("first milestone should have no dependencies")
	}
	for i := 1; i < len(plan.Milestones); i++ {
		deps := plan.Milestones[i].DependsOn
		if len(deps) != 1 || deps[0] != plan.Milestones[i-1].ID {
			t.Errorf("milestone %d should depend on previous, got %v", i, deps)
		}
	}
	for _, m := range plan.Milestones {
		if m.Completed {
			t.Errorf("new milestone %s should not be completed", m.ID)
		}
	}
}

func TestCreatePlanCheckpointsMandatory(t *testing.T) {
	svc := newPlanningFixture(nil)
	delivery := fixedNow().Add(40 * 24 * time.Hour)
	order := orderFixture(2_000_000, 4, delivery)

	plan, err := svc.CreatePlan(context.Background(), order)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	if len(plan.QualityCheckpoints) != len(entity.StandardPhases) {
		t.Fatalf("expected %d checkpoints, got %d", len(entity.StandardPhases), len(plan.QualityCheckpoints))
	}
	for _, cp := range plan.QualityCheckpoints {
		if !cp.Mandatory {
			t.Errorf("checkpoint %s should be mandatory", cp.ID)
		}
		if len(cp.Criteria) == 0 {
			t.Errorf("checkpoint %s has no criteria", cp.ID)
		}
	}
}

func TestCreatePlanUnassignedVendorTriggersContingency(t *testing.T) {
	svc := newPlanningFixture(nil)
	delivery := fixedNow().Add(40 * 24 * time.Hour)
	order := orderFixture(2_000_000, 4, delivery)

	plan, err := svc.CreatePlan(context.Background(), order)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	var vendorRisk *entity.RiskFactor
	for i := range plan.RiskFactors {
		if plan.RiskFactors[i].Type == "vendor_assignment" {
			vendorRisk = &plan.RiskFactors[i]
			break
		}
	}
	if vendorRisk == nil {
		t.Fatal("expected vendor_assignment risk for unassigned order")
	}
	if vendorRisk.Severity != entity.SeverityCritical || vendorRisk.Probability != 1.0 {
		t.Fatalf("expected critical risk with probability 1.0, got %s/%.2f", vendorRisk.Severity, vendorRisk.Probability)
	}

	found := false
	for _, cp := range plan.ContingencyPlans {
		if cp.Priority == string(entity.SeverityCritical) && cp.ImplementationDays == 1 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a critical contingency plan with 1 implementation day")
	}
}

func TestCreatePlanRequirementsFromSpecifications(t *testing.T) {
	svc := newPlanningFixture(nil)
	delivery := fixedNow().Add(40 * 24 * time.Hour)
	order := orderFixture(2_000_000, 2, delivery)
	order.Items[0].Specifications = entity.JSONB{
		"material":  "brass",
		"precision": "high",
		"finish":    "polished",
	}

	plan, err := svc.CreatePlan(context.Background(), order)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	req := plan.Requirements
	if req.ProductType != "etching" {
		t.Errorf("expected product type etching, got %s", req.ProductType)
	}
	if !containsString(req.Materials, "brass") {
		t.Errorf("expected brass in materials, got %v", req.Materials)
	}
	if !containsString(req.Equipment, "cnc_engraver") {
		t.Errorf("high precision should add cnc_engraver, got %v", req.Equipment)
	}
	if !containsString(req.Skills, "surface_finishing") {
		t.Errorf("finish requirement should add surface_finishing, got %v", req.Skills)
	}
	if req.Quantity != 20 {
		t.Errorf("expected quantity 20, got %d", req.Quantity)
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
