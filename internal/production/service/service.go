package service

import (
	"context"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"go.uber.org/zap"
)

// OrderSource 订单读写接口，由宿主存储实现
type OrderSource interface {
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	LoadProgress(ctx context.Context, orderID string) (*entity.ProductionProgress, error)
	SaveProgress(ctx context.Context, orderID string, progress *entity.ProductionProgress, expectedRevision int) error
}

// VendorSource 供应商查询接口
type VendorSource interface {
	FindByID(ctx context.Context, id string) (*entity.Vendor, error)
}

// EventSink 域事件出口
type EventSink interface {
	Dispatch(ctx context.Context, event entity.Event) error
}

// AvailabilityOracle 资源可用性查询。
// 生产环境是模拟概率（后续接产能系统），测试用AlwaysAvailable保证确定性。
type AvailabilityOracle interface {
	Available(ctx context.Context, resource string, start, end time.Time, likelihood float64) bool
}

// PhasePlanner 阶段规划策略，按产品类型产出有序阶段与关键路径
type PhasePlanner interface {
	PlanPhases(productType string, start, end time.Time) []entity.ProductionPhase
	CriticalPath(phases []entity.ProductionPhase) []string
}

// PlanningConfig 规划参数（金额阈值与币种无关，按部署环境配置）
type PlanningConfig struct {
	HighValueThreshold   float64 // 高价值订单阈值，默认 10,000,000
	MediumValueThreshold float64 // 中价值订单阈值，默认 5,000,000
	LowValueThreshold    float64 // 低价值订单阈值，默认 1,000,000
	DefaultLeadTimeDays  int     // 无供应商时的默认交期
	SupplierDailyLimit   int     // 单供应商单日到料上限
	LaborRoleCapacity    int     // 同一角色可并行排程数
	WorkdayHours         float64 // 单日工时
}

// DefaultPlanningConfig 默认规划参数
func DefaultPlanningConfig() PlanningConfig {
	return PlanningConfig{
		HighValueThreshold:   10_000_000,
		MediumValueThreshold: 5_000_000,
		LowValueThreshold:    1_000_000,
		DefaultLeadTimeDays:  7,
		SupplierDailyLimit:   3,
		LaborRoleCapacity:    2,
		WorkdayHours:         8,
	}
}

// Services 生产域服务集合
type Services struct {
	Planning  *PlanningService
	Scheduler *SchedulerService
	Optimizer *CapacityOptimizer
	Risk      *RiskAnalyzer
	Progress  *ProgressTracker
	Report    *ReportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, sink EventSink, cfg PlanningConfig, logger *zap.Logger) *Services {
	risk := NewRiskAnalyzer(repos.Vendor, cfg)
	optimizer := NewCapacityOptimizer()
	planning := NewPlanningService(risk, optimizer, NewStandardPhasePlanner(), cfg)
	scheduler := NewSchedulerService(repos.Vendor, NewRandomOracle(time.Now().UnixNano()), cfg, logger)
	progress := NewProgressTracker(repos.Order, sink, logger)
	report := NewReportService(progress, logger)

	return &Services{
		Planning:  planning,
		Scheduler: scheduler,
		Optimizer: optimizer,
		Risk:      risk,
		Progress:  progress,
		Report:    report,
	}
}
