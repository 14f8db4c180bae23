package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/google/uuid"
)

// RiskAnalyzer 风险分析器。按六大类独立评估后拼接，
// 结果按综合风险分（严重度权重×概率）降序排列。
type RiskAnalyzer struct {
	vendors VendorSource
	cfg     PlanningConfig
	now     func() time.Time
}

func NewRiskAnalyzer(vendors VendorSource, cfg PlanningConfig) *RiskAnalyzer {
	return &RiskAnalyzer{
		vendors: vendors,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock 固定时钟，测试用
func (a *RiskAnalyzer) SetClock(now func() time.Time) {
	a.now = now
}

// IdentifyRisks 识别订单+资源分配的风险因子。
// 数据缺失降级为空列表，不报错。
func (a *RiskAnalyzer) IdentifyRisks(ctx context.Context, order *entity.Order, resources *entity.ResourceAllocation) []entity.RiskFactor {
	now := a.now()
	complexity := complexityLevel(complexityScore(order, now, a.cfg))

	var risks []entity.RiskFactor
	risks = append(risks, a.timelineRisks(order, complexity, now)...)
	risks = append(risks, a.resourceRisks(resources)...)
	risks = append(risks, a.vendorRisks(ctx, order, complexity)...)
	risks = append(risks, a.qualityRisks(order, complexity)...)
	risks = append(risks, a.financialRisks(order, resources)...)
	risks = append(risks, a.externalRisks(order)...)

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Score() > risks[j].Score()
	})
	return risks
}

func (a *RiskAnalyzer) timelineRisks(order *entity.Order, complexity entity.ComplexityLevel, now time.Time) []entity.RiskFactor {
	var risks []entity.RiskFactor
	days := daysUntilDelivery(order, now)

	switch {
	case days < 7:
		risks = append(risks, newRisk(entity.RiskCategoryTimeline, "tight_deadline",
			fmt.Sprintf("交付仅剩%d天，排程无缓冲", days),
			entity.SeverityHigh, 0.8,
			"任何阶段延误将直接错过交付日期",
			"优先排产并锁定关键设备", "与客户确认可否分批交付", "安排加班班次"))
	case days < 14:
		risks = append(risks, newRisk(entity.RiskCategoryTimeline, "short_deadline",
			fmt.Sprintf("交付剩余%d天，排程紧张", days),
			entity.SeverityMedium, 0.5,
			"阶段间缓冲不足，延误传导风险高",
			"压缩设计确认周期", "物料提前下单"))
	}

	if complexity.AtLeast(entity.ComplexityHigh) && days < 21 {
		risks = append(risks, newRisk(entity.RiskCategoryTimeline, "complexity_timeline_mismatch",
			fmt.Sprintf("高复杂度订单交付周期仅%d天，复杂度与工期不匹配", days),
			entity.SeverityCritical, 0.9,
			"高复杂度工序无法在可用工期内完成全部质检",
			"重新评估交付日期", "拆分订单分批生产", "增配熟练技工"))
	}

	return risks
}

func (a *RiskAnalyzer) resourceRisks(resources *entity.ResourceAllocation) []entity.RiskFactor {
	var risks []entity.RiskFactor
	if resources == nil {
		return risks
	}

	criticalTotal, criticalAvailable := 0, 0
	for _, m := range resources.Materials {
		if m.Critical {
			criticalTotal++
			if m.Available {
				criticalAvailable++
			}
		}
	}
	for _, e := range resources.Equipment {
		if e.Critical {
			criticalTotal++
			if e.Available {
				criticalAvailable++
			}
		}
	}
	if criticalTotal > 0 && criticalAvailable == 0 {
		risks = append(risks, newRisk(entity.RiskCategoryResource, "critical_resource_unavailable",
			"关键资源全部不可用",
			entity.SeverityCritical, 0.95,
			"缺少关键物料/设备时生产无法启动",
			"寻找替代供应渠道", "协调外协加工", "调整排产顺序等待到料"))
	}

	if resources.UtilizationRate > 0.9 {
		risks = append(risks, newRisk(entity.RiskCategoryResource, "high_utilization",
			fmt.Sprintf("资源利用率%.0f%%，接近满载", resources.UtilizationRate*100),
			entity.SeverityHigh, 0.7,
			"无冗余产能吸收突发需求或返工",
			"预留备用班次", "识别可外协工序"))
	}

	if resources.TotalCost.Amount > 0 {
		fraction := resources.MaterialCost() / resources.TotalCost.Amount
		if fraction > 0.6 {
			risks = append(risks, newRisk(entity.RiskCategoryResource, "material_cost_concentration",
				fmt.Sprintf("物料成本占比%.0f%%，对料价波动敏感", fraction*100),
				entity.SeverityMedium, 0.4,
				"物料涨价或损耗超标将显著侵蚀毛利",
				"锁定物料价格", "提高首检覆盖降低损耗"))
		}
	}

	return risks
}

func (a *RiskAnalyzer) vendorRisks(ctx context.Context, order *entity.Order, complexity entity.ComplexityLevel) []entity.RiskFactor {
	if order.VendorID == nil || *order.VendorID == "" {
		// 未指派供应商为致命风险，跳过其余供应商检查
		return []entity.RiskFactor{newRisk(entity.RiskCategoryVendor, "vendor_assignment",
			"订单未指派生产供应商",
			entity.SeverityCritical, 1.0,
			"无供应商承接时计划完全无法执行",
			"立即指派合格供应商", "启动备选供应商评审")}
	}

	vendor, err := a.vendors.FindByID(ctx, *order.VendorID)
	if err != nil || vendor == nil {
		// 供应商记录缺失按未指派处理
		return []entity.RiskFactor{newRisk(entity.RiskCategoryVendor, "vendor_assignment",
			"指派的供应商记录不存在",
			entity.SeverityCritical, 1.0,
			"无供应商承接时计划完全无法执行",
			"核对供应商主数据", "重新指派供应商")}
	}

	var risks []entity.RiskFactor

	rating := 0.0
	if vendor.Rating != nil {
		rating = *vendor.Rating
	}
	if rating < 3.5 {
		risks = append(risks, newRisk(entity.RiskCategoryVendor, "vendor_rating",
			fmt.Sprintf("供应商%s评分%.1f，低于合格线3.5", vendor.Name, rating),
			entity.SeverityHigh, 0.8,
			"低评分供应商历史交付与质量表现差",
			"增加驻厂巡检频次", "关键工序双供应商备份"))
	}

	if vendor.LeadTimeDays > 14 {
		risks = append(risks, newRisk(entity.RiskCategoryVendor, "vendor_lead_time",
			fmt.Sprintf("供应商交期%d天，超过14天警戒线", vendor.LeadTimeDays),
			entity.SeverityMedium, 0.6,
			"长交期压缩生产与质检可用时间",
			"提前锁定产能", "分批交付缩短首批等待"))
	}

	// 评分档位低于复杂度档位视为专长不匹配
	ratingTier := 0
	switch {
	case rating >= 4.5:
		ratingTier = 3
	case rating >= 4.0:
		ratingTier = 2
	case rating >= 3.5:
		ratingTier = 1
	}
	if complexityTier(complexity) > ratingTier {
		risks = append(risks, newRisk(entity.RiskCategoryVendor, "vendor_specialization",
			fmt.Sprintf("供应商%s能力档位与订单复杂度不匹配", vendor.Name),
			entity.SeverityMedium, 0.5,
			"复杂工艺交给能力不足的供应商将放大返工率",
			"安排技术交底", "首件确认后再批量投产"))
	}

	return risks
}

func (a *RiskAnalyzer) qualityRisks(order *entity.Order, complexity entity.ComplexityLevel) []entity.RiskFactor {
	var risks []entity.RiskFactor

	if complexity.AtLeast(entity.ComplexityHigh) {
		risks = append(risks, newRisk(entity.RiskCategoryQuality, "complex_process_quality",
			"高复杂度工艺质量波动风险",
			entity.SeverityHigh, 0.6,
			"复杂蚀刻/雕刻工序一次合格率偏低",
			"增加过程巡检点", "首件全尺寸检验"))
	}

	for _, item := range order.Items {
		if item.HasCustomSpecifications() {
			risks = append(risks, newRisk(entity.RiskCategoryQuality, "custom_specifications",
				"行项包含定制规格，理解偏差风险",
				entity.SeverityMedium, 0.4,
				"规格理解偏差导致成品不符合客户预期",
				"设计稿客户书面确认", "打样确认后投产"))
			break
		}
	}

	return risks
}

func (a *RiskAnalyzer) financialRisks(order *entity.Order, resources *entity.ResourceAllocation) []entity.RiskFactor {
	var risks []entity.RiskFactor

	if resources != nil && order.TotalAmount > 0 {
		fraction := resources.TotalCost.Amount / order.TotalAmount
		if fraction > 0.8 {
			risks = append(risks, newRisk(entity.RiskCategoryFinancial, "thin_margin",
				fmt.Sprintf("资源成本占订单金额%.0f%%，利润空间薄", fraction*100),
				entity.SeverityHigh, 0.7,
				"任何超支直接转为亏损",
				"复核资源分配寻找降本点", "与客户协商变更收费"))
		}
	}

	if order.PaymentStatus == entity.PaymentStatusPending {
		risks = append(risks, newRisk(entity.RiskCategoryFinancial, "payment_pending",
			"订单款项未到账",
			entity.SeverityMedium, 0.3,
			"垫资生产存在回款风险",
			"收到定金后再采购关键物料", "确认客户信用额度"))
	}

	return risks
}

func (a *RiskAnalyzer) externalRisks(order *entity.Order) []entity.RiskFactor {
	var risks []entity.RiskFactor

	if order.DeliveryDate != nil {
		month := order.DeliveryDate.Month()
		// 10月至次年3月为雨季，物流延误概率上升
		if month >= time.October || month <= time.March {
			risks = append(risks, newRisk(entity.RiskCategoryExternal, "rainy_season",
				"交付期处于雨季，物流延误风险",
				entity.SeverityLow, 0.3,
				"干线与末端配送时效下降",
				"预留物流缓冲天数", "优先选择铁路/航空干线"))
		}
	}

	risks = append(risks, newRisk(entity.RiskCategoryExternal, "supply_chain_general",
		"一般性供应链波动风险",
		entity.SeverityLow, 0.2,
		"大宗物料价格与供给存在常态波动",
		"关键物料保持安全库存"))

	return risks
}

func complexityTier(c entity.ComplexityLevel) int {
	switch c {
	case entity.ComplexityVeryHigh:
		return 3
	case entity.ComplexityHigh:
		return 2
	case entity.ComplexityMedium:
		return 1
	default:
		return 0
	}
}

func newRisk(category, riskType, description string, severity entity.Severity, probability float64, impact string, mitigations ...string) entity.RiskFactor {
	return entity.RiskFactor{
		ID:          uuid.New().String()[:32],
		Type:        riskType,
		Description: description,
		Severity:    severity,
		Probability: probability,
		Impact:      impact,
		Mitigations: mitigations,
		Category:    category,
	}
}
