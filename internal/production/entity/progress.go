package entity

import (
	"encoding/json"
	"time"
)

// 检查点状态
const (
	CheckpointPending = "pending"
	CheckpointPassed  = "passed"
	CheckpointFailed  = "failed"
)

// PhaseCompleted 所有阶段完成后的终态
const PhaseCompleted = "completed"

// ProductionProgress 单个订单的生产进度状态
type ProductionProgress struct {
	OrderID             string             `json:"order_id"`
	OverallProgress     float64            `json:"overall_progress"` // [0,1]
	CurrentPhase        string             `json:"current_phase"`
	CompletedMilestones []string           `json:"completed_milestones"`
	ActiveIssues        []ProductionIssue  `json:"active_issues"`
	PhaseProgress       map[string]float64 `json:"phase_progress"`
	CheckpointStatus    map[string]string  `json:"checkpoint_status"`
	Revision            int                `json:"revision"` // 乐观锁版本号
	Notes               string             `json:"notes,omitempty"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// HasMilestone 里程碑是否已记录为完成
func (p *ProductionProgress) HasMilestone(id string) bool {
	for _, m := range p.CompletedMilestones {
		if m == id {
			return true
		}
	}
	return false
}

// ToMap 进度序列化为JSONB，用于写入订单元数据
func (p *ProductionProgress) ToMap() (JSONB, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m JSONB
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ProgressFromMap 从订单元数据还原进度
func ProgressFromMap(m JSONB) (*ProductionProgress, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var p ProductionProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProgressUpdate 一次进度变更请求
type ProgressUpdate struct {
	Phase              string   `json:"phase,omitempty"`
	PhaseProgress      *float64 `json:"phase_progress,omitempty"`
	CompletedMilestone string   `json:"completed_milestone,omitempty"`
	CheckpointID       string   `json:"checkpoint_id,omitempty"`
	CheckpointStatus   string   `json:"checkpoint_status,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// ProductionIssue 检测到的生产问题
type ProductionIssue struct {
	Type            string    `json:"type"` // timeline_delay/resource_constraint/quality/milestone_delay
	Severity        Severity  `json:"severity"`
	Description     string    `json:"description"`
	Impact          string    `json:"impact"`
	Recommendations []string  `json:"recommendations"`
	DetectedAt      time.Time `json:"detected_at"`
}

// 问题类型
const (
	IssueTimelineDelay      = "timeline_delay"
	IssueResourceConstraint = "resource_constraint"
	IssueQuality            = "quality"
	IssueMilestoneDelay     = "milestone_delay"
)

// MilestoneSummary 里程碑状态统计
type MilestoneSummary struct {
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
	AtRisk     int `json:"at_risk"`
}

// ProgressReport 进度报告
type ProgressReport struct {
	OrderID             string            `json:"order_id"`
	GeneratedAt         time.Time         `json:"generated_at"`
	OverallProgress     float64           `json:"overall_progress"`
	CurrentPhase        string            `json:"current_phase"`
	Milestones          MilestoneSummary  `json:"milestones"`
	TimelineVariance    float64           `json:"timeline_variance"` // actual - expected
	TimelineStatus      string            `json:"timeline_status"`   // ahead/on_track/slightly_behind/behind
	ResourceUtilization float64           `json:"resource_utilization"`
	QualityPassRate     float64           `json:"quality_pass_rate"`
	QualityScore        float64           `json:"quality_score"`
	RiskIndicators      []string          `json:"risk_indicators"`
	Recommendations     []string          `json:"recommendations"`
	ActiveIssues        []ProductionIssue `json:"active_issues"`
}

// 时间线状态
const (
	TimelineAhead          = "ahead"
	TimelineOnTrack        = "on_track"
	TimelineSlightlyBehind = "slightly_behind"
	TimelineBehind         = "behind"
)
