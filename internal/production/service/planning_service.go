package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/google/uuid"
)

// 各阶段交付物模板
var phaseDeliverables = map[string][]string{
	entity.PhaseDesign:              {"设计稿", "客户确认记录"},
	entity.PhaseMaterialPreparation: {"物料到料清单", "来料检验报告"},
	entity.PhaseProduction:          {"加工完成品", "工序流转卡"},
	entity.PhaseFinishing:           {"表面处理完成品"},
	entity.PhaseFinalInspection:     {"终检报告", "出货包装清单"},
}

// 各阶段责任角色
var phaseResponsible = map[string]string{
	entity.PhaseDesign:              "designer",
	entity.PhaseMaterialPreparation: "procurement",
	entity.PhaseProduction:          "production_lead",
	entity.PhaseFinishing:           "production_lead",
	entity.PhaseFinalInspection:     "qa_engineer",
}

// 质量检查点模板
var checkpointTemplates = map[string]struct {
	Name     string
	Criteria []string
	Methods  []string
	Docs     []string
}{
	entity.PhaseDesign: {
		Name:     "设计确认检查",
		Criteria: []string{"设计稿与订单规格一致", "客户书面确认已取得"},
		Methods:  []string{"规格逐项比对", "确认记录核验"},
		Docs:     []string{"设计稿", "客户确认单"},
	},
	entity.PhaseMaterialPreparation: {
		Name:     "来料检验",
		Criteria: []string{"材质与规格相符", "表面无划伤变形"},
		Methods:  []string{"抽样量测", "外观目检"},
		Docs:     []string{"材质证明", "来料检验报告"},
	},
	entity.PhaseProduction: {
		Name:     "过程巡检",
		Criteria: []string{"蚀刻/雕刻深度在公差内", "图案位置偏差≤0.2mm"},
		Methods:  []string{"深度仪量测", "投影比对"},
		Docs:     []string{"巡检记录表"},
	},
	entity.PhaseFinishing: {
		Name:     "表面处理检查",
		Criteria: []string{"表面处理均匀无色差", "无残留药剂"},
		Methods:  []string{"外观目检", "色差仪比对"},
		Docs:     []string{"表面处理记录"},
	},
	entity.PhaseFinalInspection: {
		Name:     "出货终检",
		Criteria: []string{"全尺寸合格", "数量与订单一致", "包装符合出货标准"},
		Methods:  []string{"全尺寸检验", "清点核对"},
		Docs:     []string{"终检报告", "装箱单"},
	},
}

// PlanningService 生产计划编排器，串起需求分析、
// 资源评估、倒排时间线、风险识别与产能优化的完整管线
type PlanningService struct {
	risk      *RiskAnalyzer
	optimizer *CapacityOptimizer
	planner   PhasePlanner
	cfg       PlanningConfig
	now       func() time.Time
}

func NewPlanningService(risk *RiskAnalyzer, optimizer *CapacityOptimizer, planner PhasePlanner, cfg PlanningConfig) *PlanningService {
	return &PlanningService{
		risk:      risk,
		optimizer: optimizer,
		planner:   planner,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetClock 固定时钟，测试用
func (s *PlanningService) SetClock(now func() time.Time) {
	s.now = now
}

// SetPhasePlanner 替换阶段规划策略
func (s *PlanningService) SetPhasePlanner(planner PhasePlanner) {
	s.planner = planner
}

// CreatePlan 为订单构建生产计划。订单缺行项或交付日期返回ErrInvalidOrder。
// 纯计算，无副作用，计划持久化由调用方负责。
func (s *PlanningService) CreatePlan(ctx context.Context, order *entity.Order) (*entity.ProductionPlan, error) {
	if order == nil || len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: no line items", ErrInvalidOrder)
	}
	if order.DeliveryDate == nil {
		return nil, fmt.Errorf("%w: no delivery date", ErrInvalidOrder)
	}

	now := s.now()

	requirements := s.analyzeRequirements(order, now)
	baseline := s.assessResources(order, requirements)
	timeline := s.computeTimeline(order, requirements.ProductType)
	milestones := s.buildMilestones(order.ID, timeline)
	risks := s.risk.IdentifyRisks(ctx, order, baseline)
	optimized := s.optimizer.Optimize(baseline, timeline)
	contingencies := s.buildContingencyPlans(order, risks)
	checkpoints := s.buildCheckpoints(order.ID, timeline)

	return &entity.ProductionPlan{
		OrderID:            order.ID,
		Requirements:       *requirements,
		Resources:          *optimized,
		Timeline:           *timeline,
		Milestones:         milestones,
		RiskFactors:        risks,
		ContingencyPlans:   contingencies,
		QualityCheckpoints: checkpoints,
		CreatedAt:          now,
	}, nil
}

// analyzeRequirements 从订单行项推导生产需求
func (s *PlanningService) analyzeRequirements(order *entity.Order, now time.Time) *entity.ProductionRequirements {
	productType := modalItemType(order.Items)

	quantity := 0
	specs := entity.JSONB{}
	materialSet := map[string]bool{}
	equipmentSet := map[string]bool{}
	skillSet := map[string]bool{"machine_operation": true, "cad_design": true}

	for _, e := range baseEquipment(productType) {
		equipmentSet[e] = true
	}

	for _, item := range order.Items {
		quantity += item.Quantity
		for k, v := range item.Specifications {
			specs[k] = v
			switch k {
			case "material":
				if name, ok := v.(string); ok && name != "" {
					materialSet[name] = true
				}
			case "precision":
				if level, ok := v.(string); ok && level == "high" {
					equipmentSet["cnc_engraver"] = true
					skillSet["precision_machining"] = true
				}
			case "finish":
				if finish, ok := v.(string); ok && finish != "" {
					equipmentSet["polishing_station"] = true
					skillSet["surface_finishing"] = true
				}
			}
		}
	}
	if len(materialSet) == 0 {
		materialSet[defaultMaterial(productType)] = true
	}

	complexity := complexityLevel(complexityScore(order, now, s.cfg))

	productionDays := productionDays(len(order.Items))
	qualityStandard := "standard_sampling"
	if complexity.AtLeast(entity.ComplexityHigh) {
		qualityStandard = "full_inspection"
	}

	return &entity.ProductionRequirements{
		ProductType:     productType,
		Specifications:  specs,
		Quantity:        quantity,
		Complexity:      complexity,
		Materials:       sortedKeys(materialSet),
		Equipment:       sortedKeys(equipmentSet),
		Skills:          sortedKeys(skillSet),
		EstimatedCost:   entity.Money{Amount: order.TotalAmount * 0.6, Currency: order.Currency},
		EstimatedHours:  float64(productionDays) * s.cfg.WorkdayHours,
		QualityStandard: qualityStandard,
	}
}

// assessResources 基线资源评估。成本按订单金额比例摊分，
// 为占位估算，后续由产能优化器覆盖。
func (s *PlanningService) assessResources(order *entity.Order, req *entity.ProductionRequirements) *entity.ResourceAllocation {
	materialBudget := order.TotalAmount * 0.4
	equipmentBudget := order.TotalAmount * 0.15
	laborBudget := order.TotalAmount * 0.2

	alloc := &entity.ResourceAllocation{
		Materials:       map[string]entity.Material{},
		Equipment:       map[string]entity.Equipment{},
		Labor:           map[string]entity.Labor{},
		Facilities:      map[string]entity.Facility{},
		Tooling:         map[string]entity.Tool{},
		TotalCost:       entity.Money{Amount: materialBudget + equipmentBudget + laborBudget, Currency: order.Currency},
		UtilizationRate: 0.75,
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	vendorID := ""
	if order.VendorID != nil {
		vendorID = *order.VendorID
	}
	for i, name := range req.Materials {
		alloc.Materials[name] = entity.Material{
			Name:          name,
			Type:          materialType(name),
			Quantity:      qty,
			Unit:          "pcs",
			UnitCost:      materialBudget / float64(len(req.Materials)) / float64(qty),
			SupplierID:    vendorID,
			RequiredPhase: entity.PhaseMaterialPreparation,
			Critical:      i == 0,
			Available:     true,
		}
	}

	for i, name := range req.Equipment {
		alloc.Equipment[name] = entity.Equipment{
			Name:           name,
			Type:           name,
			Hours:          req.EstimatedHours / float64(len(req.Equipment)),
			HourlyCost:     equipmentBudget / req.EstimatedHours,
			SetupHours:     2,
			UtilizationPct: 0.75,
			Critical:       i == 0,
			Available:      true,
		}
	}

	for _, skill := range req.Skills {
		specialized := skill == "precision_machining" || skill == "surface_finishing"
		level := entity.SkillIntermediate
		if specialized {
			level = entity.SkillAdvanced
		}
		alloc.Labor[skill] = entity.Labor{
			Role:         skill,
			SkillLevel:   level,
			Workers:      2,
			HoursPerDay:  s.cfg.WorkdayHours,
			TotalHours:   req.EstimatedHours / float64(len(req.Skills)),
			HourlyRate:   laborBudget / req.EstimatedHours / 2,
			Productivity: 1.0,
			Specialized:  specialized,
		}
	}

	alloc.Facilities["main_workshop"] = entity.Facility{
		Name:       "main_workshop",
		AreaSqm:    120,
		DailyCost:  order.TotalAmount * 0.01,
		Days:       productionDays(len(order.Items)),
		Efficiency: 0.8,
	}

	alloc.Tooling[defaultTooling(req.ProductType)] = entity.Tool{
		Name:         defaultTooling(req.ProductType),
		Quantity:     qty/10 + 1,
		UnitCost:     order.TotalAmount * 0.002,
		LifespanUses: 500,
		Efficiency:   0.85,
	}

	return alloc
}

// computeTimeline 从交付日期倒排时间线。
// 生产天数 = 5 + ceil(行项数/3)，缓冲按订单金额分档。
func (s *PlanningService) computeTimeline(order *entity.Order, productType string) *entity.ProductionTimeline {
	days := productionDays(len(order.Items))
	buffer := s.bufferDays(order.TotalAmount)

	delivery := *order.DeliveryDate
	start := delivery.AddDate(0, 0, -(days + buffer))
	end := delivery.AddDate(0, 0, -buffer)

	phases := s.planner.PlanPhases(productType, start, end)

	return &entity.ProductionTimeline{
		StartDate:    start,
		EndDate:      end,
		Phases:       phases,
		BufferDays:   buffer,
		CriticalPath: s.planner.CriticalPath(phases),
	}
}

func (s *PlanningService) bufferDays(totalAmount float64) int {
	switch {
	case totalAmount > s.cfg.HighValueThreshold:
		return 3
	case totalAmount > s.cfg.MediumValueThreshold:
		return 2
	default:
		return 1
	}
}

// buildMilestones 每个阶段一个完成里程碑，顺序依赖前一阶段
func (s *PlanningService) buildMilestones(orderID string, timeline *entity.ProductionTimeline) []entity.ProductionMilestone {
	milestones := make([]entity.ProductionMilestone, 0, len(timeline.Phases))
	var prevID string
	for _, phase := range timeline.Phases {
		id := fmt.Sprintf("milestone_%s_%s", phase.Name, orderID)
		var deps []string
		if prevID != "" {
			deps = []string{prevID}
		}
		milestones = append(milestones, entity.ProductionMilestone{
			ID:           id,
			Name:         fmt.Sprintf("%s阶段完成", phase.Name),
			Description:  fmt.Sprintf("%s阶段全部交付物完成并通过检查", phase.Name),
			DueDate:      phase.EndDate,
			Critical:     phase.Critical,
			Deliverables: phaseDeliverables[phase.Name],
			DependsOn:    deps,
			Responsible:  phaseResponsible[phase.Name],
			Progress:     0,
		})
		prevID = id
	}
	return milestones
}

// buildContingencyPlans 为需要立即响应的风险生成应急预案
func (s *PlanningService) buildContingencyPlans(order *entity.Order, risks []entity.RiskFactor) []entity.ContingencyPlan {
	var plans []entity.ContingencyPlan
	for _, risk := range risks {
		if !risk.RequiresImmediateAttention() {
			continue
		}
		days := 2
		if risk.Severity == entity.SeverityCritical {
			days = 1
		}
		plans = append(plans, entity.ContingencyPlan{
			ID:                uuid.New().String()[:32],
			Name:              fmt.Sprintf("应急预案: %s", risk.Type),
			TriggerConditions: []string{risk.Description},
			Actions:           risk.Mitigations,
			RequiredResources: []string{"pm", "备用供应商名单"},
			EstimatedCost:     entity.Money{Amount: order.TotalAmount * 0.05, Currency: order.Currency},
			ImplementationDays: days,
			Priority:          string(risk.Severity),
			Responsible:       "pm",
		})
	}
	return plans
}

// buildCheckpoints 为命中标准阶段的时间线阶段生成强制质量检查点
func (s *PlanningService) buildCheckpoints(orderID string, timeline *entity.ProductionTimeline) []entity.QualityCheckpoint {
	var checkpoints []entity.QualityCheckpoint
	for _, phase := range timeline.Phases {
		tpl, ok := checkpointTemplates[phase.Name]
		if !ok {
			continue
		}
		checkpoints = append(checkpoints, entity.QualityCheckpoint{
			ID:                fmt.Sprintf("checkpoint_%s_%s", phase.Name, orderID),
			Name:              tpl.Name,
			Phase:             phase.Name,
			Criteria:          tpl.Criteria,
			ValidationMethods: tpl.Methods,
			RequiredDocs:      tpl.Docs,
			Responsible:       phaseResponsible[phase.Name],
			Mandatory:         true,
		})
	}
	return checkpoints
}

// productionDays 生产天数 = 5 + ceil(行项数/3)
func productionDays(itemCount int) int {
	return 5 + int(math.Ceil(float64(itemCount)/3))
}

// modalItemType 行项类型的众数作为产品类型
func modalItemType(items []entity.OrderItem) string {
	counts := map[string]int{}
	for _, item := range items {
		counts[item.ItemType]++
	}
	best, bestCount := "etching", 0
	for _, item := range items {
		// 按首次出现顺序遍历，保证同票数时结果稳定
		if counts[item.ItemType] > bestCount {
			best, bestCount = item.ItemType, counts[item.ItemType]
		}
	}
	return best
}

func baseEquipment(productType string) []string {
	switch productType {
	case "etching":
		return []string{"etching_bath", "masking_station"}
	case "engraving":
		return []string{"laser_engraver"}
	case "stamping":
		return []string{"hydraulic_press"}
	case "signage":
		return []string{"laser_engraver", "mounting_station"}
	default:
		return []string{"laser_engraver"}
	}
}

func defaultMaterial(productType string) string {
	switch productType {
	case "etching":
		return "metal"
	case "engraving":
		return "wood"
	default:
		return "metal"
	}
}

func defaultTooling(productType string) string {
	switch productType {
	case "etching":
		return "etching_stencils"
	default:
		return "engraving_bits"
	}
}

func materialType(name string) string {
	switch name {
	case "metal", "brass", "stainless_steel", "aluminum", "copper":
		return "metal"
	case "glass", "acrylic_glass":
		return "glass"
	case "plastic", "acrylic":
		return "plastic"
	case "wood", "bamboo", "mdf":
		return "wood"
	default:
		return name
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
