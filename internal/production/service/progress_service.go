package service

import (
	"context"
	"fmt"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"go.uber.org/zap"
)

// ProgressTracker 进度跟踪器。对单订单的进度记录做读-改-写，
// 写入走版本号CAS，同一订单并发更新只会成功一个。
type ProgressTracker struct {
	orders OrderSource
	sink   EventSink
	logger *zap.Logger
	now    func() time.Time
}

func NewProgressTracker(orders OrderSource, sink EventSink, logger *zap.Logger) *ProgressTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressTracker{
		orders: orders,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock 固定时钟，测试用
func (t *ProgressTracker) SetClock(now func() time.Time) {
	t.now = now
}

// UpdateProgress 应用一次进度变更：加载→合并→校验→落库→发事件。
// 校验失败不落任何变更。
func (t *ProgressTracker) UpdateProgress(ctx context.Context, plan *entity.ProductionPlan, update *entity.ProgressUpdate) (*entity.ProductionProgress, error) {
	now := t.now()

	progress, err := t.orders.LoadProgress(ctx, plan.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if progress == nil {
		progress = t.initProgress(plan)
	}
	expectedRevision := progress.Revision
	prior := make(map[string]bool, len(progress.CompletedMilestones))
	for _, id := range progress.CompletedMilestones {
		prior[id] = true
	}

	t.merge(progress, update)
	progress.OverallProgress = meanPhaseProgress(progress)
	progress.CurrentPhase = currentPhase(plan, progress)

	if err := t.validate(plan, progress); err != nil {
		return nil, err
	}

	completedEvents := t.flipMilestones(plan, progress, prior, now)
	issues := t.detectIssues(plan, progress, now)
	progress.ActiveIssues = issues
	progress.UpdatedAt = now

	if err := t.orders.SaveProgress(ctx, plan.OrderID, progress, expectedRevision); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	// 事件顺序固定：进度更新 → 里程碑完成 → 问题检出
	t.dispatch(ctx, entity.ProgressUpdatedEvent{
		OrderID:         plan.OrderID,
		OverallProgress: progress.OverallProgress,
		CurrentPhase:    progress.CurrentPhase,
		UpdatedAt:       progress.UpdatedAt,
	})
	for _, ev := range completedEvents {
		t.dispatch(ctx, ev)
	}
	for _, issue := range issues {
		t.dispatch(ctx, entity.IssueDetectedEvent{
			OrderID:     plan.OrderID,
			IssueType:   issue.Type,
			Severity:    issue.Severity,
			Description: issue.Description,
			DetectedAt:  issue.DetectedAt,
		})
	}

	return progress, nil
}

// initProgress 首次更新时的初始状态
func (t *ProgressTracker) initProgress(plan *entity.ProductionPlan) *entity.ProductionProgress {
	phaseProgress := map[string]float64{}
	for _, phase := range plan.Timeline.Phases {
		phaseProgress[phase.Name] = 0
	}
	current := entity.PhaseDesign
	if len(plan.Timeline.Phases) > 0 {
		current = plan.Timeline.Phases[0].Name
	}
	checkpointStatus := map[string]string{}
	for _, cp := range plan.QualityCheckpoints {
		checkpointStatus[cp.ID] = entity.CheckpointPending
	}
	return &entity.ProductionProgress{
		OrderID:             plan.OrderID,
		OverallProgress:     0,
		CurrentPhase:        current,
		CompletedMilestones: []string{},
		ActiveIssues:        []entity.ProductionIssue{},
		PhaseProgress:       phaseProgress,
		CheckpointStatus:    checkpointStatus,
		Revision:            0,
	}
}

func (t *ProgressTracker) merge(progress *entity.ProductionProgress, update *entity.ProgressUpdate) {
	if update == nil {
		return
	}
	if update.Phase != "" && update.PhaseProgress != nil {
		if progress.PhaseProgress == nil {
			progress.PhaseProgress = map[string]float64{}
		}
		progress.PhaseProgress[update.Phase] = *update.PhaseProgress
	}
	if update.CompletedMilestone != "" && !progress.HasMilestone(update.CompletedMilestone) {
		progress.CompletedMilestones = append(progress.CompletedMilestones, update.CompletedMilestone)
	}
	if update.CheckpointID != "" && update.CheckpointStatus != "" {
		if progress.CheckpointStatus == nil {
			progress.CheckpointStatus = map[string]string{}
		}
		progress.CheckpointStatus[update.CheckpointID] = update.CheckpointStatus
	}
	if update.Notes != "" {
		progress.Notes = update.Notes
	}
}

// validate 进度值范围 + 里程碑依赖完整性，针对计划的完整里程碑列表检查
func (t *ProgressTracker) validate(plan *entity.ProductionPlan, progress *entity.ProductionProgress) error {
	if progress.OverallProgress < 0 || progress.OverallProgress > 1 {
		return fmt.Errorf("%w: overall progress %.2f", ErrValidation, progress.OverallProgress)
	}
	for phase, value := range progress.PhaseProgress {
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: phase %s progress %.2f", ErrValidation, phase, value)
		}
	}

	for _, id := range progress.CompletedMilestones {
		milestone := plan.Milestone(id)
		if milestone == nil {
			continue
		}
		for _, dep := range milestone.DependsOn {
			if !progress.HasMilestone(dep) {
				return fmt.Errorf("%w: milestone %s requires %s", ErrDependencyViolation, id, dep)
			}
		}
	}
	return nil
}

// flipMilestones 置位已完成的里程碑，只对本次更新新增完成的产出事件。
// 新增以更新前持久化的完成集合为准；计划快照每次请求重建，其完成标记不可作依据。
func (t *ProgressTracker) flipMilestones(plan *entity.ProductionPlan, progress *entity.ProductionProgress, prior map[string]bool, now time.Time) []entity.MilestoneCompletedEvent {
	var events []entity.MilestoneCompletedEvent
	for _, id := range progress.CompletedMilestones {
		milestone := plan.Milestone(id)
		if milestone == nil {
			continue
		}
		if !milestone.Completed {
			milestone.Completed = true
			completedAt := now
			milestone.CompletedAt = &completedAt
			milestone.Progress = 1
		}
		if prior[id] {
			continue
		}
		events = append(events, entity.MilestoneCompletedEvent{
			OrderID:       plan.OrderID,
			MilestoneID:   milestone.ID,
			MilestoneName: milestone.Name,
			CompletedAt:   now,
		})
	}
	return events
}

// detectIssues 问题检测。每次更新全量重算，不作为实体持久化。
func (t *ProgressTracker) detectIssues(plan *entity.ProductionPlan, progress *entity.ProductionProgress, now time.Time) []entity.ProductionIssue {
	issues := []entity.ProductionIssue{}

	expected := plan.Timeline.ExpectedProgress(now)
	actual := progress.OverallProgress
	if gap := expected - actual; gap > 0.1 {
		severity := entity.SeverityLow
		switch {
		case gap >= 0.3:
			severity = entity.SeverityCritical
		case gap >= 0.2:
			severity = entity.SeverityHigh
		case gap >= 0.1:
			severity = entity.SeverityMedium
		}
		issues = append(issues, entity.ProductionIssue{
			Type:        entity.IssueTimelineDelay,
			Severity:    severity,
			Description: fmt.Sprintf("实际进度%.0f%%落后期望%.0f%%", actual*100, expected*100),
			Impact:      "按当前节奏无法在计划结束日完成",
			Recommendations: []string{
				"检查当前阶段瓶颈工序",
				"评估加班或外协追赶",
			},
			DetectedAt: now,
		})
	}

	for _, milestone := range plan.Milestones {
		if milestone.Completed || progress.HasMilestone(milestone.ID) {
			continue
		}
		if milestone.DueDate.Before(now) {
			severity := entity.SeverityMedium
			if milestone.Critical {
				severity = entity.SeverityHigh
			}
			issues = append(issues, entity.ProductionIssue{
				Type:        entity.IssueMilestoneDelay,
				Severity:    severity,
				Description: fmt.Sprintf("里程碑%s已过期未完成", milestone.Name),
				Impact:      "后续依赖阶段无法启动",
				Recommendations: []string{
					"确认阻塞原因并更新计划",
				},
				DetectedAt: now,
			})
		}
	}

	for _, cp := range plan.QualityCheckpoints {
		if progress.CheckpointStatus[cp.ID] == entity.CheckpointFailed {
			issues = append(issues, entity.ProductionIssue{
				Type:        entity.IssueQuality,
				Severity:    entity.SeverityHigh,
				Description: fmt.Sprintf("质量检查点%s未通过", cp.Name),
				Impact:      "不合格品流入下道工序的风险",
				Recommendations: []string{
					"隔离不合格品并安排返工",
					"复检后再放行",
				},
				DetectedAt: now,
			})
		}
	}

	issues = append(issues, t.detectResourceIssues(plan, progress, now)...)
	return issues
}

// detectResourceIssues 资源约束检测扩展点。
// 基线无实时资源数据，返回空列表。
func (t *ProgressTracker) detectResourceIssues(_ *entity.ProductionPlan, _ *entity.ProductionProgress, _ time.Time) []entity.ProductionIssue {
	return nil
}

// WeightedProgress 按里程碑加权的整体进度，关键里程碑权重×2
func (t *ProgressTracker) WeightedProgress(plan *entity.ProductionPlan, progress *entity.ProductionProgress) float64 {
	var totalWeight, completedWeight float64
	for _, milestone := range plan.Milestones {
		weight := 1.0
		if milestone.Critical {
			weight = 2.0
		}
		totalWeight += weight
		if milestone.Completed || progress.HasMilestone(milestone.ID) {
			completedWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return completedWeight / totalWeight
}

// GenerateReport 生成进度报告，全部指标按当前状态重算
func (t *ProgressTracker) GenerateReport(ctx context.Context, plan *entity.ProductionPlan) (*entity.ProgressReport, error) {
	now := t.now()

	progress, err := t.orders.LoadProgress(ctx, plan.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if progress == nil {
		progress = t.initProgress(plan)
	}

	summary := entity.MilestoneSummary{}
	atRiskWindow := now.Add(72 * time.Hour)
	for _, milestone := range plan.Milestones {
		switch {
		case milestone.Completed || progress.HasMilestone(milestone.ID):
			summary.Completed++
		case milestone.DueDate.Before(now):
			summary.Overdue++
		case milestone.DueDate.Before(atRiskWindow):
			summary.AtRisk++
		default:
			summary.InProgress++
		}
	}

	expected := plan.Timeline.ExpectedProgress(now)
	actual := t.WeightedProgress(plan, progress)
	variance := actual - expected

	status := entity.TimelineOnTrack
	switch {
	case variance > 0.1:
		status = entity.TimelineAhead
	case variance >= -0.1:
		status = entity.TimelineOnTrack
	case variance >= -0.2:
		status = entity.TimelineSlightlyBehind
	default:
		status = entity.TimelineBehind
	}

	passed, pending, failed := 0, 0, 0
	for _, cp := range plan.QualityCheckpoints {
		switch progress.CheckpointStatus[cp.ID] {
		case entity.CheckpointPassed:
			passed++
		case entity.CheckpointFailed:
			failed++
		default:
			pending++
		}
	}
	passRate, qualityScore := 1.0, 1.0
	if total := len(plan.QualityCheckpoints); total > 0 {
		passRate = float64(passed) / float64(total)
		qualityScore = (float64(passed) + 0.5*float64(pending)) / float64(total)
	}

	var riskIndicators []string
	for _, risk := range plan.RiskFactors {
		if risk.RequiresImmediateAttention() {
			riskIndicators = append(riskIndicators, fmt.Sprintf("[%s] %s", risk.Severity, risk.Description))
		}
	}

	recommendations := t.recommendations(variance, failed, actual)

	return &entity.ProgressReport{
		OrderID:             plan.OrderID,
		GeneratedAt:         now,
		OverallProgress:     actual,
		CurrentPhase:        progress.CurrentPhase,
		Milestones:          summary,
		TimelineVariance:    variance,
		TimelineStatus:      status,
		ResourceUtilization: plan.Resources.UtilizationRate,
		QualityPassRate:     passRate,
		QualityScore:        qualityScore,
		RiskIndicators:      riskIndicators,
		Recommendations:     recommendations,
		ActiveIssues:        progress.ActiveIssues,
	}, nil
}

func (t *ProgressTracker) recommendations(variance float64, failedCheckpoints int, actual float64) []string {
	var recs []string
	switch {
	case variance < -0.2:
		recs = append(recs, "进度严重落后，立即重排产能并评估交付日期")
	case variance < -0.1:
		recs = append(recs, "进度落后，安排追赶班次")
	}
	if failedCheckpoints > 0 {
		recs = append(recs, "存在未通过的质量检查点，优先安排返工复检")
	}
	if actual >= 0.9 {
		recs = append(recs, "进入交付准备，提前确认包装与物流")
	}
	if len(recs) == 0 {
		recs = append(recs, "进度正常，保持当前节奏")
	}
	return recs
}

func (t *ProgressTracker) dispatch(ctx context.Context, event entity.Event) {
	if t.sink == nil {
		return
	}
	if err := t.sink.Dispatch(ctx, event); err != nil {
		t.logger.Warn("event dispatch failed",
			zap.String("event", event.EventName()),
			zap.Error(err),
		)
	}
}

// meanPhaseProgress 各阶段进度的简单均值，作为持久化的整体进度
func meanPhaseProgress(progress *entity.ProductionProgress) float64 {
	if len(progress.PhaseProgress) == 0 {
		return 0
	}
	var sum float64
	for _, v := range progress.PhaseProgress {
		sum += v
	}
	return sum / float64(len(progress.PhaseProgress))
}

// currentPhase 时间线顺序下第一个未完成的阶段；
// 全部完成取最后一个阶段；无阶段视为completed
func currentPhase(plan *entity.ProductionPlan, progress *entity.ProductionProgress) string {
	if len(plan.Timeline.Phases) == 0 {
		return entity.PhaseCompleted
	}
	for _, phase := range plan.Timeline.Phases {
		if progress.PhaseProgress[phase.Name] < 1.0 {
			return phase.Name
		}
	}
	return plan.Timeline.Phases[len(plan.Timeline.Phases)-1].Name
}
