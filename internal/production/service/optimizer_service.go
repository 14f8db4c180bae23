package service

import (
	"math"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
)

// 物料损耗优化比例
var wasteReductionByType = map[string]float64{
	"metal":   0.05,
	"glass":   0.03,
	"plastic": 0.08,
	"wood":    0.10,
}

const defaultWasteReduction = 0.05

// 技能等级对工时的放大系数
var skillHoursMultiplier = map[string]float64{
	entity.SkillExpert:       1.3,
	entity.SkillAdvanced:     1.2,
	entity.SkillIntermediate: 1.0,
	entity.SkillBeginner:     0.8,
}

// 技能等级产能加成
var skillProductivityBonus = map[string]float64{
	entity.SkillExpert:       0.30,
	entity.SkillAdvanced:     0.20,
	entity.SkillIntermediate: 0.10,
	entity.SkillBeginner:     0,
}

// CapacityOptimizer 产能优化器。固定启发式系数表，
// 纯函数、确定性，不保证最优解。
type CapacityOptimizer struct{}

func NewCapacityOptimizer() *CapacityOptimizer {
	return &CapacityOptimizer{}
}

// Optimize 输出应用效率启发式后的新资源分配，原分配不变
func (o *CapacityOptimizer) Optimize(resources *entity.ResourceAllocation, timeline *entity.ProductionTimeline) *entity.ResourceAllocation {
	optimized := &entity.ResourceAllocation{
		Materials:  make(map[string]entity.Material, len(resources.Materials)),
		Equipment:  make(map[string]entity.Equipment, len(resources.Equipment)),
		Labor:      make(map[string]entity.Labor, len(resources.Labor)),
		Facilities: make(map[string]entity.Facility, len(resources.Facilities)),
		Tooling:    make(map[string]entity.Tool, len(resources.Tooling)),
		TotalCost:  entity.Money{Currency: resources.TotalCost.Currency},
	}

	for name, m := range resources.Materials {
		optimized.Materials[name] = o.optimizeMaterial(m)
	}
	for name, e := range resources.Equipment {
		optimized.Equipment[name] = o.optimizeEquipment(e)
	}
	skillCount := len(resources.Labor)
	for name, l := range resources.Labor {
		optimized.Labor[name] = o.optimizeLabor(l, skillCount)
	}
	for name, f := range resources.Facilities {
		f.Efficiency = 0.85
		if timeline != nil {
			days := int(timeline.EndDate.Sub(timeline.StartDate).Hours() / 24)
			if days > 0 {
				f.Days = days
			}
		}
		optimized.Facilities[name] = f
	}
	for name, t := range resources.Tooling {
		t.Efficiency = 0.90
		optimized.Tooling[name] = t
	}

	optimized.TotalCost.Amount = o.totalCost(optimized)
	optimized.UtilizationRate = o.utilizationRate(optimized)
	return optimized
}

// optimizeMaterial 损耗优化 + 批量折扣
func (o *CapacityOptimizer) optimizeMaterial(m entity.Material) entity.Material {
	reduction := defaultWasteReduction
	if r, ok := wasteReductionByType[m.Type]; ok {
		reduction = r
	}
	reduction += math.Min(float64(m.Quantity)*0.001, 0.05)
	if reduction > 0.15 {
		reduction = 0.15
	}

	qty := int(math.Ceil(float64(m.Quantity) * (1 - reduction)))
	if qty < 1 {
		qty = 1
	}
	m.Quantity = qty

	if qty >= 10 {
		discount := math.Min(float64(qty)*0.01, 0.15)
		m.UnitCost = m.UnitCost * (1 - discount)
	}
	return m
}

// optimizeEquipment 换型时间压缩30%（下限0.5h），利用率拉满至90%
func (o *CapacityOptimizer) optimizeEquipment(e entity.Equipment) entity.Equipment {
	e.SetupHours = e.SetupHours * 0.7
	if e.SetupHours < 0.5 {
		e.SetupHours = 0.5
	}
	e.UtilizationPct = math.Min(0.75+0.15, 0.95)
	return e
}

// optimizeLabor 按技能调整日工时与团队规模
func (o *CapacityOptimizer) optimizeLabor(l entity.Labor, requiredSkillCount int) entity.Labor {
	multiplier, ok := skillHoursMultiplier[l.SkillLevel]
	if !ok {
		multiplier = 1.0
	}
	l.HoursPerDay = math.Min(l.HoursPerDay*multiplier, 10)

	team := int(math.Ceil(float64(requiredSkillCount) / 2))
	if team > l.Workers {
		team = l.Workers
	}
	if team < 1 {
		team = 1
	}
	l.Workers = team

	l.Productivity = 1.0 + skillProductivityBonus[l.SkillLevel] + 0.15
	return l
}

// totalCost 物料+设备+人力成本合计，整体优化折扣8%
func (o *CapacityOptimizer) totalCost(a *entity.ResourceAllocation) float64 {
	var total float64
	for _, m := range a.Materials {
		total += float64(m.Quantity) * m.UnitCost
	}
	for _, e := range a.Equipment {
		total += e.HourlyCost * e.Hours
	}
	for _, l := range a.Labor {
		total += l.HourlyRate * l.TotalHours * float64(l.Workers)
	}
	return total * 0.92
}

// utilizationRate 基线75% + 各类资源优化增益，上限95%
func (o *CapacityOptimizer) utilizationRate(a *entity.ResourceAllocation) float64 {
	rate := 0.75
	if len(a.Materials) > 0 {
		rate += 0.05
	}
	if len(a.Equipment) > 0 {
		rate += 0.10
	}
	if len(a.Labor) > 0 {
		rate += 0.08
	}
	return math.Min(rate, 0.95)
}
