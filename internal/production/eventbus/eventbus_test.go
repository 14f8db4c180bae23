package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"go.uber.org/zap"
)

type recordingSink struct {
	events []entity.Event
	err    error
}

func (s *recordingSink) Dispatch(_ context.Context, event entity.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func TestLogSinkNeverFails(t *testing.T) {
	sink := NewLogSink(zap.NewNop())
	err := sink.Dispatch(context.Background(), entity.ProgressUpdatedEvent{
		OrderID:         "o1",
		OverallProgress: 0.5,
		UpdatedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("log sink must not fail: %v", err)
	}
}

func TestMultiSinkDispatchesToAllAndKeepsFirstError(t *testing.T) {
	failErr := errors.New("publish failed")
	first := &recordingSink{err: failErr}
	second := &recordingSink{}

	multi := NewMultiSink(first, second)
	event := entity.IssueDetectedEvent{OrderID: "o1", IssueType: "timeline_delay"}

	err := multi.Dispatch(context.Background(), event)
	if !errors.Is(err, failErr) {
		t.Fatalf("expected first error to surface, got %v", err)
	}
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatal("all sinks must receive the event even when one fails")
	}
}
