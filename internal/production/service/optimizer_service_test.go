package service

import (
	"math"
	"testing"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
)

func TestOptimizeMaterialWasteAndDiscount(t *testing.T) {
	o := NewCapacityOptimizer()

	// wood损耗10% + 数量加成1.2% → 12件降到11件，批量折扣11%
	m := o.optimizeMaterial(entity.Material{
		Name: "wood", Type: "wood", Quantity: 12, UnitCost: 100,
	})
	if m.Quantity != 11 {
		t.Fatalf("expected quantity 11, got %d", m.Quantity)
	}
	if math.Abs(m.UnitCost-89) > 1e-9 {
		t.Fatalf("expected unit cost 89, got %f", m.UnitCost)
	}
}

func TestOptimizeMaterialFloorsAtOne(t *testing.T) {
	o := NewCapacityOptimizer()
	m := o.optimizeMaterial(entity.Material{Name: "metal", Type: "metal", Quantity: 1, UnitCost: 50})
	if m.Quantity < 1 {
		t.Fatalf("quantity must not drop below 1, got %d", m.Quantity)
	}
	// 不足10件无批量折扣
	if m.UnitCost != 50 {
		t.Fatalf("expected unchanged unit cost, got %f", m.UnitCost)
	}
}

func TestOptimizeEquipmentSetupAndUtilization(t *testing.T) {
	o := NewCapacityOptimizer()
	e := o.optimizeEquipment(entity.Equipment{Name: "laser_engraver", SetupHours: 2, UtilizationPct: 0.75})
	if math.Abs(e.SetupHours-1.4) > 1e-9 {
		t.Fatalf("expected setup 1.4h, got %f", e.SetupHours)
	}
	if math.Abs(e.UtilizationPct-0.9) > 1e-9 {
		t.Fatalf("expected utilization 0.90, got %f", e.UtilizationPct)
	}

	short := o.optimizeEquipment(entity.Equipment{SetupHours: 0.6})
	if short.SetupHours != 0.5 {
		t.Fatalf("setup hours should floor at 0.5, got %f", short.SetupHours)
	}
}

func TestOptimizeLaborSkillAdjustments(t *testing.T) {
	o := NewCapacityOptimizer()
	l := o.optimizeLabor(entity.Labor{
		Role:        "precision_machining",
		SkillLevel:  entity.SkillAdvanced,
		Workers:     3,
		HoursPerDay: 8,
	}, 3)

	if math.Abs(l.HoursPerDay-9.6) > 1e-9 {
		t.Fatalf("expected 9.6 hours/day for advanced, got %f", l.HoursPerDay)
	}
	if l.Workers != 2 {
		t.Fatalf("expected team of 2 for 3 skills, got %d", l.Workers)
	}
	if math.Abs(l.Productivity-1.35) > 1e-9 {
		t.Fatalf("expected productivity 1.35, got %f", l.Productivity)
	}
}

func TestOptimizeLaborHoursCap(t *testing.T) {
	o := NewCapacityOptimizer()
	l := o.optimizeLabor(entity.Labor{SkillLevel: entity.SkillExpert, Workers: 1, HoursPerDay: 9}, 1)
	if l.HoursPerDay != 10 {
		t.Fatalf("hours per day should cap at 10, got %f", l.HoursPerDay)
	}
}

func TestOptimizeTotalCostAndUtilization(t *testing.T) {
	o := NewCapacityOptimizer()
	start := fixedNow()
	timeline := &entity.ProductionTimeline{
		StartDate: start,
		EndDate:   start.Add(8 * 24 * time.Hour),
	}
	resources := &entity.ResourceAllocation{
		Materials: map[string]entity.Material{
			"wood": {Name: "wood", Type: "wood", Quantity: 12, UnitCost: 100},
		},
		Equipment: map[string]entity.Equipment{
			"laser_engraver": {Name: "laser_engraver", Hours: 10, HourlyCost: 50, SetupHours: 2},
		},
		Labor: map[string]entity.Labor{
			"machine_operation": {Role: "machine_operation", SkillLevel: entity.SkillIntermediate, Workers: 2, HoursPerDay: 8, TotalHours: 40, HourlyRate: 20},
		},
		Facilities: map[string]entity.Facility{
			"main_workshop": {Name: "main_workshop", Days: 5, Efficiency: 0.8},
		},
		Tooling: map[string]entity.Tool{
			"engraving_bits": {Name: "engraving_bits", Efficiency: 0.85},
		},
		TotalCost: entity.Money{Currency: "IDR"},
	}

	optimized := o.Optimize(resources, timeline)

	// 原分配不被修改
	if resources.Materials["wood"].Quantity != 12 {
		t.Fatal("input allocation must not be mutated")
	}

	// 物料 11×89 + 设备 50×10 + 人力 20×40×1，整体92折
	labor := optimized.Labor["machine_operation"]
	wantCost := (11*89.0 + 500 + 20*40*float64(labor.Workers)) * 0.92
	if math.Abs(optimized.TotalCost.Amount-wantCost) > 1e-6 {
		t.Fatalf("expected total cost %f, got %f", wantCost, optimized.TotalCost.Amount)
	}

	// 三类资源齐备：0.75+0.05+0.10+0.08 → 上限0.95
	if math.Abs(optimized.UtilizationRate-0.95) > 1e-9 {
		t.Fatalf("expected utilization 0.95, got %f", optimized.UtilizationRate)
	}

	if optimized.Facilities["main_workshop"].Efficiency != 0.85 {
		t.Errorf("facility efficiency should be tuned to 0.85")
	}
	if optimized.Facilities["main_workshop"].Days != 8 {
		t.Errorf("facility days should follow timeline, got %d", optimized.Facilities["main_workshop"].Days)
	}
	if optimized.Tooling["engraving_bits"].Efficiency != 0.90 {
		t.Errorf("tooling efficiency should be tuned to 0.90")
	}
}
