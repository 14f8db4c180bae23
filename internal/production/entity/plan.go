package entity

import (
	"encoding/json"
	"time"
)

// ComplexityLevel 生产复杂度等级
type ComplexityLevel string

const (
	ComplexityLow      ComplexityLevel = "low"
	ComplexityMedium   ComplexityLevel = "medium"
	ComplexityHigh     ComplexityLevel = "high"
	ComplexityVeryHigh ComplexityLevel = "very_high"
)

var complexityRank = map[ComplexityLevel]int{
	ComplexityLow:      0,
	ComplexityMedium:   1,
	ComplexityHigh:     2,
	ComplexityVeryHigh: 3,
}

// AtLeast 复杂度不低于给定等级
func (c ComplexityLevel) AtLeast(other ComplexityLevel) bool {
	return complexityRank[c] >= complexityRank[other]
}

// Severity 风险严重度
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityWeight 严重度权重，参与综合风险分计算
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// 标准生产阶段
const (
	PhaseDesign              = "design"
	PhaseMaterialPreparation = "material_preparation"
	PhaseProduction          = "production"
	PhaseFinishing           = "finishing"
	PhaseFinalInspection     = "final_inspection"
)

// StandardPhases 标准阶段顺序
var StandardPhases = []string{
	PhaseDesign,
	PhaseMaterialPreparation,
	PhaseProduction,
	PhaseFinishing,
	PhaseFinalInspection,
}

// ProductionRequirements 由订单行项推导的生产需求
type ProductionRequirements struct {
	ProductType     string          `json:"product_type"`
	Specifications  JSONB           `json:"specifications,omitempty"`
	Quantity        int             `json:"quantity"`
	Complexity      ComplexityLevel `json:"complexity"`
	Materials       []string        `json:"materials"`
	Equipment       []string        `json:"equipment"`
	Skills          []string        `json:"skills"`
	EstimatedCost   Money           `json:"estimated_cost"`
	EstimatedHours  float64         `json:"estimated_hours"`
	QualityStandard string          `json:"quality_standard"`
}

// ProductionPhase 生产阶段
type ProductionPhase struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Critical  bool      `json:"critical"`
}

// ProductionTimeline 倒排生产时间线
type ProductionTimeline struct {
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	Phases       []ProductionPhase `json:"phases"`
	BufferDays   int               `json:"buffer_days"`
	CriticalPath []string          `json:"critical_path"`
}

// Phase 按名称查找阶段
func (t *ProductionTimeline) Phase(name string) *ProductionPhase {
	for i := range t.Phases {
		if t.Phases[i].Name == name {
			return &t.Phases[i]
		}
	}
	return nil
}

// ExpectedProgress 按时间流逝比例计算的期望进度
func (t *ProductionTimeline) ExpectedProgress(now time.Time) float64 {
	total := t.EndDate.Sub(t.StartDate)
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(t.StartDate)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 1
	}
	return elapsed.Seconds() / total.Seconds()
}

// ProductionMilestone 阶段完成里程碑
type ProductionMilestone struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	DueDate      time.Time  `json:"due_date"`
	Critical     bool       `json:"critical"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Deliverables []string   `json:"deliverables"`
	DependsOn    []string   `json:"depends_on"`
	Responsible  string     `json:"responsible"`
	Progress     float64    `json:"progress"` // [0,1]
}

// QualityCheckpoint 质量检查点
type QualityCheckpoint struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Phase             string   `json:"phase"`
	Criteria          []string `json:"criteria"`
	ValidationMethods []string `json:"validation_methods"`
	RequiredDocs      []string `json:"required_docs"`
	Responsible       string   `json:"responsible"`
	Mandatory         bool     `json:"mandatory"`
}

// RiskFactor 风险因子
type RiskFactor struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Probability float64  `json:"probability"` // [0,1]
	Impact      string   `json:"impact"`
	Mitigations []string `json:"mitigations"`
	Category    string   `json:"category"`
}

// Score 综合风险分 = 严重度权重 × 发生概率
func (f *RiskFactor) Score() float64 {
	return SeverityWeight(f.Severity) * f.Probability
}

// RequiresImmediateAttention 是否需要立即响应（critical，或 high 且概率≥0.7）
func (f *RiskFactor) RequiresImmediateAttention() bool {
	if f.Severity == SeverityCritical {
		return true
	}
	return f.Severity == SeverityHigh && f.Probability >= 0.7
}

// 风险类别
const (
	RiskCategoryTimeline  = "timeline"
	RiskCategoryResource  = "resource"
	RiskCategoryVendor    = "vendor"
	RiskCategoryQuality   = "quality"
	RiskCategoryFinancial = "financial"
	RiskCategoryExternal  = "external"
)

// ContingencyPlan 应急预案
type ContingencyPlan struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	TriggerConditions  []string `json:"trigger_conditions"`
	Actions            []string `json:"actions"`
	RequiredResources  []string `json:"required_resources"`
	EstimatedCost      Money    `json:"estimated_cost"`
	ImplementationDays int      `json:"implementation_days"`
	Priority           string   `json:"priority"`
	Responsible        string   `json:"responsible"`
}

// ProductionPlan 生产计划聚合根
type ProductionPlan struct {
	OrderID            string                 `json:"order_id"`
	Requirements       ProductionRequirements `json:"requirements"`
	Resources          ResourceAllocation     `json:"resources"`
	Timeline           ProductionTimeline     `json:"timeline"`
	Milestones         []ProductionMilestone  `json:"milestones"`
	RiskFactors        []RiskFactor           `json:"risk_factors"`
	ContingencyPlans   []ContingencyPlan      `json:"contingency_plans"`
	QualityCheckpoints []QualityCheckpoint    `json:"quality_checkpoints"`
	CreatedAt          time.Time              `json:"created_at"`
}

// Milestone 按ID查找里程碑
func (p *ProductionPlan) Milestone(id string) *ProductionMilestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}

// Snapshot 计划序列化为JSONB快照
func (p *ProductionPlan) Snapshot() (JSONB, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var snapshot JSONB
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// PlanFromSnapshot 从JSONB快照还原计划
func PlanFromSnapshot(snapshot JSONB) (*ProductionPlan, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	var plan ProductionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ProductionPlanRecord 计划持久化记录，快照整体存JSONB
type ProductionPlanRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string    `json:"order_id" gorm:"size:32;uniqueIndex;not null"`
	Snapshot  JSONB     `json:"snapshot" gorm:"type:jsonb;not null"`
	Status    string    `json:"status" gorm:"size:16;default:active"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionPlanRecord) TableName() string {
	return "production_plans"
}
