package service

import (
	"context"
	"testing"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/testutil"
)

func TestIdentifyRisksUnassignedVendorShortCircuits(t *testing.T) {
	analyzer := NewRiskAnalyzer(&vendorSourceStub{}, DefaultPlanningConfig())
	analyzer.SetClock(fixedNow)

	order := orderFixture(2_000_000, 3, fixedNow().Add(40*24*time.Hour))
	risks := analyzer.IdentifyRisks(context.Background(), order, nil)

	vendorCount := 0
	for _, r := range risks {
		if r.Category == entity.RiskCategoryVendor {
			vendorCount++
			if r.Type != "vendor_assignment" {
				t.Errorf("expected only vendor_assignment, got %s", r.Type)
			}
			if r.Severity != entity.SeverityCritical || r.Probability != 1.0 {
				t.Errorf("expected critical/1.0, got %s/%.2f", r.Severity, r.Probability)
			}
		}
	}
	if vendorCount != 1 {
		t.Fatalf("expected exactly one vendor risk, got %d", vendorCount)
	}
}

func TestIdentifyRisksRushComplexOrder(t *testing.T) {
	vendorID := "v1"
	vendors := map[string]*entity.Vendor{
		vendorID: testutil.BuildVendor(vendorID, 4.8, 5),
	}
	analyzer := NewRiskAnalyzer(&vendorSourceStub{vendors: vendors}, DefaultPlanningConfig())
	analyzer.SetClock(fixedNow)

	// 11M/12行项/5天：very_high复杂度加急单
	order := orderFixture(11_000_000, 12, fixedNow().Add(5*24*time.Hour))
	order.VendorID = &vendorID

	risks := analyzer.IdentifyRisks(context.Background(), order, nil)

	hasType := func(riskType string) *entity.RiskFactor {
		for i := range risks {
			if risks[i].Type == riskType {
				return &risks[i]
			}
		}
		return nil
	}

	tight := hasType("tight_deadline")
	if tight == nil || tight.Severity != entity.SeverityHigh {
		t.Fatalf("expected high tight_deadline risk, got %+v", tight)
	}
	mismatch := hasType("complexity_timeline_mismatch")
	if mismatch == nil || mismatch.Severity != entity.SeverityCritical {
		t.Fatalf("expected critical complexity_timeline_mismatch, got %+v", mismatch)
	}
	if hasType("vendor_assignment") != nil {
		t.Error("assigned vendor should not produce vendor_assignment risk")
	}
	if hasType("complex_process_quality") == nil {
		t.Error("expected quality risk for high complexity order")
	}
}

func TestIdentifyRisksSortedByScore(t *testing.T) {
	analyzer := NewRiskAnalyzer(&vendorSourceStub{}, DefaultPlanningConfig())
	analyzer.SetClock(fixedNow)

	order := orderFixture(11_000_000, 12, fixedNow().Add(5*24*time.Hour))
	risks := analyzer.IdentifyRisks(context.Background(), order, nil)

	if len(risks) < 2 {
		t.Fatalf("expected multiple risks, got %d", len(risks))
	}
	for i := 1; i < len(risks); i++ {
		if risks[i].Score() > risks[i-1].Score() {
			t.Fatalf("risks not sorted by score: %f before %f", risks[i-1].Score(), risks[i].Score())
		}
	}
	// 未指派供应商分值4.0应排第一
	if risks[0].Type != "vendor_assignment" {
		t.Errorf("expected vendor_assignment first, got %s", risks[0].Type)
	}
}

func TestVendorRisksLowRatingAndLongLeadTime(t *testing.T) {
	vendorID := "v2"
	vendors := map[string]*entity.Vendor{
		vendorID: testutil.BuildVendor(vendorID, 3.0, 20),
	}
	analyzer := NewRiskAnalyzer(&vendorSourceStub{vendors: vendors}, DefaultPlanningConfig())
	analyzer.SetClock(fixedNow)

	order := orderFixture(2_000_000, 3, fixedNow().Add(60*24*time.Hour))
	order.VendorID = &vendorID

	risks := analyzer.IdentifyRisks(context.Background(), order, nil)

	var hasRating, hasLeadTime bool
	for _, r := range risks {
		switch r.Type {
		case "vendor_rating":
			hasRating = true
			if r.Severity != entity.SeverityHigh {
				t.Errorf("expected high vendor_rating, got %s", r.Severity)
			}
		case "vendor_lead_time":
			hasLeadTime = true
		}
	}
	if !hasRating {
		t.Error("expected vendor_rating risk for rating below 3.5")
	}
	if !hasLeadTime {
		t.Error("expected vendor_lead_time risk for 20 day lead time")
	}
}

func TestResourceRisksCriticalUnavailable(t *testing.T) {
	analyzer := NewRiskAnalyzer(&vendorSourceStub{}, DefaultPlanningConfig())
	analyzer.SetClock(fixedNow)

	resources := &entity.ResourceAllocation{
		Materials: map[string]entity.Material{
			"brass": {Name: "brass", Critical: true, Available: false, Quantity: 10, UnitCost: 100},
		},
		Equipment:       map[string]entity.Equipment{},
		TotalCost:       entity.Money{Amount: 1000},
		UtilizationRate: 0.95,
	}
	order := orderFixture(2_000_000, 3, fixedNow().Add(60*24*time.Hour))

	risks := analyzer.IdentifyRisks(context.Background(), order, resources)

	var hasUnavailable, hasUtilization, hasConcentration bool
	for _, r := range risks {
		switch r.Type {
		case "critical_resource_unavailable":
			hasUnavailable = true
			if r.Severity != entity.SeverityCritical {
				t.Errorf("expected critical severity, got %s", r.Severity)
			}
		case "high_utilization":
			hasUtilization = true
		case "material_cost_concentration":
			hasConcentration = true
		}
	}
	if !hasUnavailable {
		t.Error("expected critical_resource_unavailable risk")
	}
	if !hasUtilization {
		t.Error("expected high_utilization risk at 95%")
	}
	if !hasConcentration {
		t.Error("expected material_cost_concentration risk")
	}
}
