package entity

// Money 金额
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Material 物料资源
type Material struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"` // metal/glass/plastic/wood
	Quantity      int     `json:"quantity"`
	Unit          string  `json:"unit"`
	UnitCost      float64 `json:"unit_cost"`
	SupplierID    string  `json:"supplier_id,omitempty"`
	RequiredPhase string  `json:"required_phase,omitempty"`
	Critical      bool    `json:"critical"`
	Available     bool    `json:"available"`
}

// Equipment 设备资源
type Equipment struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Hours          float64 `json:"hours"`
	HourlyCost     float64 `json:"hourly_cost"`
	SetupHours     float64 `json:"setup_hours"`
	UtilizationPct float64 `json:"utilization_pct"`
	Critical       bool    `json:"critical"`
	Available      bool    `json:"available"`
}

// Labor 人力资源
type Labor struct {
	Role         string  `json:"role"`
	SkillLevel   string  `json:"skill_level"` // beginner/intermediate/advanced/expert
	Workers      int     `json:"workers"`
	HoursPerDay  float64 `json:"hours_per_day"`
	TotalHours   float64 `json:"total_hours"`
	HourlyRate   float64 `json:"hourly_rate"`
	Productivity float64 `json:"productivity"`
	Specialized  bool    `json:"specialized"`
}

// Facility 场地资源
type Facility struct {
	Name       string  `json:"name"`
	AreaSqm    float64 `json:"area_sqm"`
	DailyCost  float64 `json:"daily_cost"`
	Days       int     `json:"days"`
	Efficiency float64 `json:"efficiency"`
}

// Tool 工装/治具资源
type Tool struct {
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitCost     float64 `json:"unit_cost"`
	LifespanUses int     `json:"lifespan_uses"`
	Efficiency   float64 `json:"efficiency"`
}

// 技能等级
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
	SkillExpert       = "expert"
)

// ResourceAllocation 资源分配方案，五类资源按名称索引
type ResourceAllocation struct {
	Materials       map[string]Material  `json:"materials"`
	Equipment       map[string]Equipment `json:"equipment"`
	Labor           map[string]Labor     `json:"labor"`
	Facilities      map[string]Facility  `json:"facilities"`
	Tooling         map[string]Tool      `json:"tooling"`
	TotalCost       Money                `json:"total_cost"`
	UtilizationRate float64              `json:"utilization_rate"` // [0,1]
}

// HasCriticalAvailable 是否存在可用的关键资源
func (a *ResourceAllocation) HasCriticalAvailable() bool {
	for _, m := range a.Materials {
		if m.Critical && m.Available {
			return true
		}
	}
	for _, e := range a.Equipment {
		if e.Critical && e.Available {
			return true
		}
	}
	return false
}

// MaterialCost 物料成本合计
func (a *ResourceAllocation) MaterialCost() float64 {
	var total float64
	for _, m := range a.Materials {
		total += float64(m.Quantity) * m.UnitCost
	}
	return total
}
