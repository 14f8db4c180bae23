package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
)

// orderSourceStub 内存进度存储，模仿仓储的版本号CAS语义
type orderSourceStub struct {
	progress map[string]*entity.ProductionProgress
	saveErr  error
}

func newOrderSourceStub() *orderSourceStub {
	return &orderSourceStub{progress: map[string]*entity.ProductionProgress{}}
}

func (s *orderSourceStub) FindByID(_ context.Context, _ string) (*entity.Order, error) {
	return nil, repository.ErrNotFound
}

func (s *orderSourceStub) LoadProgress(_ context.Context, orderID string) (*entity.ProductionProgress, error) {
	stored, ok := s.progress[orderID]
	if !ok {
		return nil, nil
	}
	m, err := stored.ToMap()
	if err != nil {
		return nil, err
	}
	return entity.ProgressFromMap(m)
}

func (s *orderSourceStub) SaveProgress(_ context.Context, orderID string, progress *entity.ProductionProgress, expectedRevision int) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	current := 0
	if stored, ok := s.progress[orderID]; ok {
		current = stored.Revision
	}
	if current != expectedRevision {
		return repository.ErrConflict
	}
	progress.Revision = expectedRevision + 1
	m, err := progress.ToMap()
	if err != nil {
		return err
	}
	copied, err := entity.ProgressFromMap(m)
	if err != nil {
		return err
	}
	s.progress[orderID] = copied
	return nil
}

// sinkStub 记录事件名称顺序
type sinkStub struct {
	events []entity.Event
	err    error
}

func (s *sinkStub) Dispatch(_ context.Context, event entity.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func progressPlanFixture(now time.Time) *entity.ProductionPlan {
	return &entity.ProductionPlan{
		OrderID: "order-1",
		Timeline: entity.ProductionTimeline{
			StartDate: now,
			EndDate:   now.AddDate(0, 0, 10),
			Phases: []entity.ProductionPhase{
				{Name: entity.PhaseDesign, StartDate: now, EndDate: now.AddDate(0, 0, 4)},
				{Name: entity.PhaseProduction, StartDate: now.AddDate(0, 0, 4), EndDate: now.AddDate(0, 0, 10), Critical: true},
			},
		},
		Milestones: []entity.ProductionMilestone{
			{ID: "m1", Name: "设计完成", DueDate: now.AddDate(0, 0, 5), Critical: true},
			{ID: "m2", Name: "生产完成", DueDate: now.AddDate(0, 0, 8), DependsOn: []string{"m1"}},
			{ID: "m3", Name: "终检完成", DueDate: now.AddDate(0, 0, 9)},
		},
		QualityCheckpoints: []entity.QualityCheckpoint{
			{ID: "cp1", Name: "设计确认检查", Phase: entity.PhaseDesign},
		},
	}
}

func newTrackerFixture() (*ProgressTracker, *orderSourceStub, *sinkStub) {
	store := newOrderSourceStub()
	sink := &sinkStub{}
	tracker := NewProgressTracker(store, sink, nil)
	tracker.SetClock(fixedNow)
	return tracker, store, sink
}

func floatPtr(v float64) *float64 { return &v }

func TestUpdateProgressInitializesAndMerges(t *testing.T) {
	tracker, store, _ := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())

	progress, err := tracker.UpdateProgress(context.Background(), plan, &entity.ProgressUpdate{
		Phase:         entity.PhaseDesign,
		PhaseProgress: floatPtr(0.5),
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	if progress.OverallProgress != 0.25 {
		t.Errorf("expected overall 0.25 (mean of 0.5 and 0), got %f", progress.OverallProgress)
	}
	if progress.CurrentPhase != entity.PhaseDesign {
		t.Errorf("expected current phase design, got %s", progress.CurrentPhase)
	}
	if progress.CheckpointStatus["cp1"] != entity.CheckpointPending {
		t.Errorf("checkpoints should initialize pending, got %s", progress.CheckpointStatus["cp1"])
	}
	if progress.Revision != 1 {
		t.Errorf("first save should set revision 1, got %d", progress.Revision)
	}
	if store.progress["order-1"] == nil {
		t.Fatal("progress should be persisted")
	}
}

func TestUpdateProgressAdvancesCurrentPhase(t *testing.T) {
	tracker, _, _ := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())
	ctx := context.Background()

	if _, err := tracker.UpdateProgress(ctx, plan, &entity.ProgressUpdate{
		Phase: entity.PhaseDesign, PhaseProgress: floatPtr(1.0),
	}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	progress, err := tracker.UpdateProgress(ctx, plan, &entity.ProgressUpdate{
		Phase: entity.PhaseProduction, PhaseProgress: floatPtr(0.2),
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if progress.CurrentPhase != entity.PhaseProduction {
		t.Fatalf("expected current phase production, got %s", progress.CurrentPhase)
	}
	if progress.Revision != 2 {
		t.Fatalf("expected revision 2 after second update, got %d", progress.Revision)
	}
}

func TestUpdateProgressRejectsOutOfRange(t *testing.T) {
	tracker, store, sink := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())

	_, err := tracker.UpdateProgress(context.Background(), plan, &entity.ProgressUpdate{
		Phase: entity.PhaseDesign, PhaseProgress: floatPtr(1.5),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.progress) != 0 {
		t.Error("failed validation must not persist anything")
	}
	if len(sink.events) != 0 {
		t.Error("failed validation must not emit events")
	}
}

func TestUpdateProgressMilestoneDependencyOrder(t *testing.T) {
	tracker, _, _ := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())
	ctx := context.Background()

	// m2依赖m1，先完成m2必须拒绝
	_, err := tracker.UpdateProgress(ctx, plan, &entity.ProgressUpdate{CompletedMilestone: "m2"})
	if !errors.Is(err, ErrDependencyViolation) {
		t.Fatalf("expected ErrDependencyViolation, got %v", err)
	}

	if _, err := tracker.UpdateProgress(ctx, plan, &entity.ProgressUpdate{CompletedMilestone: "m1"}); err != nil {
		t.Fatalf("completing m1 should succeed: %v", err)
	}
	progress, err := tracker.UpdateProgress(ctx, plan, &entity.ProgressUpdate{CompletedMilestone: "m2"})
	if err != nil {
		t.Fatalf("completing m2 after m1 should succeed: %v", err)
	}
	if !progress.HasMilestone("m1") || !progress.HasMilestone("m2") {
		t.Fatalf("expected both milestones recorded, got %v", progress.CompletedMilestones)
	}
	if m := plan.Milestone("m1"); !m.Completed || m.Progress != 1 {
		t.Error("plan milestone m1 should be flipped completed")
	}
}

func TestUpdateProgressEventOrdering(t *testing.T) {
	tracker, _, sink := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())

	_, err := tracker.UpdateProgress(context.Background(), plan, &entity.ProgressUpdate{CompletedMilestone: "m1"})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	if len(sink.events) < 2 {
		t.Fatalf("expected progress + milestone events, got %d", len(sink.events))
	}
	if sink.events[0].EventName() != "production.progress_updated" {
		t.Errorf("first event must be progress_updated, got %s", sink.events[0].EventName())
	}
	if sink.events[1].EventName() != "production.milestone_completed" {
		t.Errorf("second event must be milestone_completed, got %s", sink.events[1].EventName())
	}
}

func TestMilestoneEventNotRepeatedAcrossPlanCopies(t *testing.T) {
	tracker, _, sink := newTrackerFixture()
	ctx := context.Background()

	snapshot, err := progressPlanFixture(fixedNow()).Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// 每个请求都从持久化快照重建计划，完成标记不跨请求保留
	plan1, err := entity.PlanFromSnapshot(snapshot)
	if err != nil {
		t.Fatalf("PlanFromSnapshot failed: %v", err)
	}
	if _, err := tracker.UpdateProgress(ctx, plan1, &entity.ProgressUpdate{CompletedMilestone: "m1"}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	plan2, err := entity.PlanFromSnapshot(snapshot)
	if err != nil {
		t.Fatalf("PlanFromSnapshot failed: %v", err)
	}
	if _, err := tracker.UpdateProgress(ctx, plan2, &entity.ProgressUpdate{
		Phase: entity.PhaseDesign, PhaseProgress: floatPtr(0.5),
	}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	completions := 0
	for _, ev := range sink.events {
		if m, ok := ev.(entity.MilestoneCompletedEvent); ok && m.MilestoneID == "m1" {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("m1 completed once, expected exactly one completion event, got %d", completions)
	}
}

func TestUpdateProgressRevisionConflict(t *testing.T) {
	tracker, store, sink := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())
	store.saveErr = repository.ErrConflict

	_, err := tracker.UpdateProgress(context.Background(), plan, &entity.ProgressUpdate{
		Phase: entity.PhaseDesign, PhaseProgress: floatPtr(0.3),
	})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Error("conflicting save must not emit events")
	}
}

func TestUpdateProgressDetectsTimelineDelay(t *testing.T) {
	tracker, _, sink := newTrackerFixture()
	now := fixedNow()
	// 时间线已全部流逝，期望进度1.0，实际0 → critical延误
	plan := progressPlanFixture(now.AddDate(0, 0, -10))
	plan.Milestones = nil

	progress, err := tracker.UpdateProgress(context.Background(), plan, &entity.ProgressUpdate{
		Phase: entity.PhaseDesign, PhaseProgress: floatPtr(0),
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	var delay *entity.ProductionIssue
	for i := range progress.ActiveIssues {
		if progress.ActiveIssues[i].Type == entity.IssueTimelineDelay {
			delay = &progress.ActiveIssues[i]
		}
	}
	if delay == nil {
		t.Fatal("expected timeline_delay issue")
	}
	if delay.Severity != entity.SeverityCritical {
		t.Fatalf("gap 1.0 should be critical, got %s", delay.Severity)
	}

	foundIssueEvent := false
	for _, ev := range sink.events {
		if ev.EventName() == "production.issue_detected" {
			foundIssueEvent = true
		}
	}
	if !foundIssueEvent {
		t.Error("expected issue_detected event")
	}
}

func TestUpdateProgressDetectsFailedCheckpoint(t *testing.T) {
	tracker, _, _ := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())

	progress, err := tracker.UpdateProgress(context.Background(), plan, &entity.ProgressUpdate{
		CheckpointID:     "cp1",
		CheckpointStatus: entity.CheckpointFailed,
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	found := false
	for _, issue := range progress.ActiveIssues {
		if issue.Type == entity.IssueQuality {
			found = true
		}
	}
	if !found {
		t.Fatal("failed checkpoint should raise quality issue")
	}
}

func TestWeightedProgressCriticalDoubleWeight(t *testing.T) {
	tracker, _, _ := newTrackerFixture()
	plan := progressPlanFixture(fixedNow())

	progress := &entity.ProductionProgress{CompletedMilestones: []string{"m1"}}
	// m1为关键(权重2)，m2/m3各1，总权重4
	if got := tracker.WeightedProgress(plan, progress); got != 0.5 {
		t.Fatalf("expected weighted progress 0.5, got %f", got)
	}

	if got := tracker.WeightedProgress(plan, &entity.ProductionProgress{}); got != 0 {
		t.Fatalf("expected 0 with no milestones done, got %f", got)
	}
}

func TestGenerateReportMilestoneTallyAndBands(t *testing.T) {
	tracker, store, _ := newTrackerFixture()
	now := fixedNow()

	plan := progressPlanFixture(now.AddDate(0, 0, -5))
	plan.Timeline.EndDate = now.AddDate(0, 0, 5) // 期望进度0.5
	plan.Milestones = []entity.ProductionMilestone{
		{ID: "m1", Name: "完成", DueDate: now.AddDate(0, 0, 4)},
		{ID: "m2", Name: "有风险", DueDate: now.Add(48 * time.Hour)},
		{ID: "m3", Name: "已逾期", DueDate: now.AddDate(0, 0, -1)},
		{ID: "m4", Name: "进行中", DueDate: now.AddDate(0, 0, 10)},
	}
	plan.QualityCheckpoints = []entity.QualityCheckpoint{
		{ID: "cp1"}, {ID: "cp2"},
	}
	plan.RiskFactors = []entity.RiskFactor{
		{Type: "vendor_assignment", Description: "未指派供应商", Severity: entity.SeverityCritical, Probability: 1.0},
	}

	store.progress["order-1"] = &entity.ProductionProgress{
		OrderID:             "order-1",
		CurrentPhase:        entity.PhaseProduction,
		CompletedMilestones: []string{"m1"},
		CheckpointStatus:    map[string]string{"cp1": entity.CheckpointPassed, "cp2": entity.CheckpointPending},
		Revision:            1,
	}

	report, err := tracker.GenerateReport(context.Background(), plan)
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	if report.Milestones.Completed != 1 || report.Milestones.Overdue != 1 ||
		report.Milestones.AtRisk != 1 || report.Milestones.InProgress != 1 {
		t.Fatalf("unexpected milestone tally: %+v", report.Milestones)
	}

	// 加权进度1/4，期望0.5 → 偏差-0.25 → behind
	if report.TimelineStatus != entity.TimelineBehind {
		t.Errorf("expected behind, got %s", report.TimelineStatus)
	}

	if report.QualityPassRate != 0.5 {
		t.Errorf("expected pass rate 0.5, got %f", report.QualityPassRate)
	}
	if report.QualityScore != 0.75 {
		t.Errorf("expected quality score 0.75, got %f", report.QualityScore)
	}

	if len(report.RiskIndicators) != 1 {
		t.Errorf("critical risk should surface as indicator, got %v", report.RiskIndicators)
	}
	if len(report.Recommendations) == 0 {
		t.Error("behind schedule should produce recommendations")
	}
}

func TestProgressSnapshotRoundTrip(t *testing.T) {
	original := &entity.ProductionProgress{
		OrderID:             "order-9",
		OverallProgress:     0.4,
		CurrentPhase:        entity.PhaseProduction,
		CompletedMilestones: []string{"m1"},
		PhaseProgress:       map[string]float64{"design": 1, "production": 0.2},
		CheckpointStatus:    map[string]string{"cp1": entity.CheckpointPassed},
		Revision:            3,
		UpdatedAt:           fixedNow(),
	}

	m, err := original.ToMap()
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	restored, err := entity.ProgressFromMap(m)
	if err != nil {
		t.Fatalf("ProgressFromMap failed: %v", err)
	}

	if restored.OrderID != original.OrderID || restored.Revision != 3 {
		t.Fatalf("identity fields lost in round trip: %+v", restored)
	}
	if restored.PhaseProgress["production"] != 0.2 {
		t.Fatalf("phase progress lost in round trip: %v", restored.PhaseProgress)
	}
	if !restored.HasMilestone("m1") {
		t.Fatal("milestones lost in round trip")
	}
}
