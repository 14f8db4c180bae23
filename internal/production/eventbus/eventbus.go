// Package eventbus 生产域事件的出口实现。
// 默认组合：结构化日志 + Redis发布，两者都是尽力而为。
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventChannel 事件发布的Redis频道
const EventChannel = "aps:events"

// LogSink 把事件写入结构化日志
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Dispatch(_ context.Context, event entity.Event) error {
	s.logger.Info("domain event",
		zap.String("event", event.EventName()),
		zap.Any("payload", event),
	)
	return nil
}

// RedisSink 把事件以JSON发布到固定频道，供下游订阅方消费
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb, channel: EventChannel}
}

// envelope 发布到频道的事件封装
type envelope struct {
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   entity.Event `json:"payload"`
}

func (s *RedisSink) Dispatch(ctx context.Context, event entity.Event) error {
	data, err := json.Marshal(envelope{
		Event:     event.EventName(),
		Timestamp: time.Now(),
		Payload:   event,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}
	if err := s.rdb.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventName(), err)
	}
	return nil
}

// MultiSink 依次分发到多个出口，收集第一个错误但不中断后续出口
type MultiSink struct {
	sinks []Sink
}

// Sink 与service层的EventSink保持同一签名
type Sink interface {
	Dispatch(ctx context.Context, event entity.Event) error
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Dispatch(ctx context.Context, event entity.Event) error {
	var first error
	for _, sink := range s.sinks {
		if err := sink.Dispatch(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
