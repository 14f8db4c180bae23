package entity

import (
	"time"
)

// Event 生产域事件
type Event interface {
	EventName() string
}

// ProgressUpdatedEvent 进度更新事件
type ProgressUpdatedEvent struct {
	OrderID         string    `json:"order_id"`
	OverallProgress float64   `json:"overall_progress"`
	CurrentPhase    string    `json:"current_phase"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ProgressUpdatedEvent) EventName() string { return "production.progress_updated" }

// MilestoneCompletedEvent 里程碑完成事件
type MilestoneCompletedEvent struct {
	OrderID       string    `json:"order_id"`
	MilestoneID   string    `json:"milestone_id"`
	MilestoneName string    `json:"milestone_name"`
	CompletedAt   time.Time `json:"completed_at"`
}

func (MilestoneCompletedEvent) EventName() string { return "production.milestone_completed" }

// IssueDetectedEvent 问题检出事件
type IssueDetectedEvent struct {
	OrderID     string    `json:"order_id"`
	IssueType   string    `json:"issue_type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
}

func (IssueDetectedEvent) EventName() string { return "production.issue_detected" }
