package service

import (
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
)

// phaseWeights 五个标准阶段的工期占比
type phaseWeights [5]float64

// 按产品类型的阶段占比。蚀刻类前处理重，雕刻类主工序重。
var phaseWeightsByProduct = map[string]phaseWeights{
	"etching":   {0.15, 0.25, 0.35, 0.15, 0.10},
	"engraving": {0.20, 0.10, 0.45, 0.15, 0.10},
	"stamping":  {0.15, 0.20, 0.40, 0.15, 0.10},
	"signage":   {0.25, 0.15, 0.35, 0.15, 0.10},
}

var defaultPhaseWeights = phaseWeights{0.20, 0.15, 0.40, 0.15, 0.10}

// 关键阶段：延误直接拖垮整个计划
var criticalPhases = map[string]bool{
	entity.PhaseDesign:          true,
	entity.PhaseProduction:      true,
	entity.PhaseFinalInspection: true,
}

// StandardPhasePlanner 标准阶段规划：按产品类型的占比表
// 把生产区间切分为五个标准阶段
type StandardPhasePlanner struct{}

func NewStandardPhasePlanner() *StandardPhasePlanner {
	return &StandardPhasePlanner{}
}

// PlanPhases 产出有序阶段列表，末段结束时间对齐区间终点
func (p *StandardPhasePlanner) PlanPhases(productType string, start, end time.Time) []entity.ProductionPhase {
	if !end.After(start) {
		return nil
	}

	weights, ok := phaseWeightsByProduct[productType]
	if !ok {
		weights = defaultPhaseWeights
	}

	total := end.Sub(start)
	phases := make([]entity.ProductionPhase, 0, len(entity.StandardPhases))
	cursor := start
	for i, name := range entity.StandardPhases {
		phaseEnd := cursor.Add(time.Duration(float64(total) * weights[i]))
		if i == len(entity.StandardPhases)-1 {
			phaseEnd = end
		}
		phases = append(phases, entity.ProductionPhase{
			Name:      name,
			StartDate: cursor,
			EndDate:   phaseEnd,
			Critical:  criticalPhases[name],
		})
		cursor = phaseEnd
	}
	return phases
}

// CriticalPath 关键路径 = 关键阶段的有序名称列表
func (p *StandardPhasePlanner) CriticalPath(phases []entity.ProductionPhase) []string {
	var path []string
	for _, phase := range phases {
		if phase.Critical {
			path = append(path, phase.Name)
		}
	}
	return path
}
