package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"go.uber.org/zap"
)

// 设备→阶段占用表
var equipmentBookingTable = map[string]struct {
	Phase     string
	Days      int
	UtilHours float64
}{
	"etching_bath":      {entity.PhaseProduction, 3, 24},
	"masking_station":   {entity.PhaseMaterialPreparation, 2, 12},
	"laser_engraver":    {entity.PhaseProduction, 3, 20},
	"cnc_engraver":      {entity.PhaseProduction, 2, 16},
	"hydraulic_press":   {entity.PhaseProduction, 2, 12},
	"polishing_station": {entity.PhaseFinishing, 2, 10},
	"mounting_station":  {entity.PhaseFinishing, 1, 6},
}

// 角色→阶段占用表
var laborBookingTable = map[string]struct {
	Phase      string
	Days       int
	DailyHours float64
}{
	"cad_design":          {entity.PhaseDesign, 2, 6},
	"machine_operation":   {entity.PhaseProduction, 3, 8},
	"precision_machining": {entity.PhaseProduction, 2, 8},
	"surface_finishing":   {entity.PhaseFinishing, 2, 6},
}

// 可用概率：关键设备/专职角色供给紧张
const (
	criticalEquipmentLikelihood = 0.7
	generalEquipmentLikelihood  = 0.9
	specializedLaborLikelihood  = 0.6
	generalLaborLikelihood      = 0.8
)

// SchedulerService 资源排程器。把资源分配+时间线转成到料/占用排程，
// 冲突只告警不报错，排程必须给出尽力而为的结果。
type SchedulerService struct {
	vendors VendorSource
	oracle  AvailabilityOracle
	cfg     PlanningConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewSchedulerService(vendors VendorSource, oracle AvailabilityOracle, cfg PlanningConfig, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		vendors: vendors,
		oracle:  oracle,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock 固定时钟，测试用
func (s *SchedulerService) SetClock(now func() time.Time) {
	s.now = now
}

// SetOracle 替换可用性查询实现
func (s *SchedulerService) SetOracle(oracle AvailabilityOracle) {
	s.oracle = oracle
}

// Schedule 生成资源排程。数据问题降级为告警，不抛错。
func (s *SchedulerService) Schedule(ctx context.Context, resources *entity.ResourceAllocation, timeline *entity.ProductionTimeline) *entity.ResourceSchedule {
	schedule := &entity.ResourceSchedule{
		MaterialDeliveries: s.scheduleMaterials(ctx, resources, timeline),
		EquipmentBookings:  s.scheduleEquipment(ctx, resources, timeline),
		LaborBookings:      s.scheduleLabor(ctx, resources, timeline),
		GeneratedAt:        s.now(),
	}

	schedule.Warnings = s.ValidateConflicts(schedule)
	for _, w := range schedule.Warnings {
		s.logger.Warn("scheduling conflict",
			zap.String("type", w.Type),
			zap.String("resource", w.Resource),
			zap.String("description", w.Description),
		)
	}
	return schedule
}

// scheduleMaterials 物料按交期倒推下单日。下单日早于当前时间则
// 贴到当前时间并顺延预计到料，延迟如实标记为Late。
func (s *SchedulerService) scheduleMaterials(ctx context.Context, resources *entity.ResourceAllocation, timeline *entity.ProductionTimeline) []entity.MaterialDelivery {
	now := s.now()
	deliveries := make([]entity.MaterialDelivery, 0, len(resources.Materials))

	for _, name := range materialNames(resources) {
		m := resources.Materials[name]

		leadDays := s.cfg.DefaultLeadTimeDays
		supplierName := ""
		if m.SupplierID != "" {
			if vendor, err := s.vendors.FindByID(ctx, m.SupplierID); err == nil && vendor != nil {
				leadDays = vendor.LeadTimeDays
				supplierName = vendor.Name
			} else {
				s.logger.Warn("supplier lookup failed, using default lead time",
					zap.String("material", name),
					zap.String("supplier_id", m.SupplierID),
					zap.Int("default_lead_days", leadDays),
				)
			}
		}

		requiredDate := timeline.StartDate
		if phase := timeline.Phase(m.RequiredPhase); phase != nil {
			requiredDate = phase.StartDate
		}

		orderDate := requiredDate.AddDate(0, 0, -leadDays)
		expected := requiredDate
		late := false
		if orderDate.Before(now) {
			orderDate = now
			expected = now.AddDate(0, 0, leadDays)
			late = expected.After(requiredDate)
		}

		deliveries = append(deliveries, entity.MaterialDelivery{
			MaterialName:     name,
			SupplierID:       m.SupplierID,
			SupplierName:     supplierName,
			LeadTimeDays:     leadDays,
			OrderDate:        orderDate,
			RequiredDate:     requiredDate,
			ExpectedDelivery: expected,
			Late:             late,
		})
	}

	sort.SliceStable(deliveries, func(i, j int) bool {
		return deliveries[i].OrderDate.Before(deliveries[j].OrderDate)
	})
	return deliveries
}

func (s *SchedulerService) scheduleEquipment(ctx context.Context, resources *entity.ResourceAllocation, timeline *entity.ProductionTimeline) []entity.EquipmentBooking {
	bookings := make([]entity.EquipmentBooking, 0, len(resources.Equipment))
	for _, name := range equipmentNames(resources) {
		e := resources.Equipment[name]

		entry, ok := equipmentBookingTable[name]
		if !ok {
			entry.Phase, entry.Days, entry.UtilHours = entity.PhaseProduction, 2, 8
		}

		start := timeline.StartDate
		if phase := timeline.Phase(entry.Phase); phase != nil {
			start = phase.StartDate
		}
		end := start.AddDate(0, 0, entry.Days)

		likelihood := generalEquipmentLikelihood
		if e.Critical {
			likelihood = criticalEquipmentLikelihood
		}

		bookings = append(bookings, entity.EquipmentBooking{
			EquipmentName:    name,
			Phase:            entry.Phase,
			StartDate:        start,
			EndDate:          end,
			UtilizationHours: entry.UtilHours,
			Available:        s.oracle.Available(ctx, name, start, end, likelihood),
		})
	}
	return bookings
}

func (s *SchedulerService) scheduleLabor(ctx context.Context, resources *entity.ResourceAllocation, timeline *entity.ProductionTimeline) []entity.LaborBooking {
	bookings := make([]entity.LaborBooking, 0, len(resources.Labor))
	for _, role := range laborRoles(resources) {
		l := resources.Labor[role]

		entry, ok := laborBookingTable[role]
		if !ok {
			entry.Phase, entry.Days, entry.DailyHours = entity.PhaseProduction, 2, 8
		}

		start := timeline.StartDate
		if phase := timeline.Phase(entry.Phase); phase != nil {
			start = phase.StartDate
		}
		end := start.AddDate(0, 0, entry.Days)

		likelihood := generalLaborLikelihood
		if l.Specialized {
			likelihood = specializedLaborLikelihood
		}

		bookings = append(bookings, entity.LaborBooking{
			Role:       role,
			Phase:      entry.Phase,
			StartDate:  start,
			EndDate:    end,
			DailyHours: entry.DailyHours,
			TotalHours: entry.DailyHours * float64(entry.Days),
			Workers:    l.Workers,
			Available:  s.oracle.Available(ctx, role, start, end, likelihood),
		})
	}
	return bookings
}

// ValidateConflicts 三类冲突检查。组内逐对比较为O(n²)，
// 排程规模在数十量级内可接受。
func (s *SchedulerService) ValidateConflicts(schedule *entity.ResourceSchedule) []entity.ScheduleWarning {
	var warnings []entity.ScheduleWarning

	// 1. 单供应商单日到料超限
	perSupplierDay := map[string]int{}
	for _, d := range schedule.MaterialDeliveries {
		if d.SupplierID == "" {
			continue
		}
		key := d.SupplierID + "|" + d.ExpectedDelivery.Format("2006-01-02")
		perSupplierDay[key]++
	}
	seen := map[string]bool{}
	for _, d := range schedule.MaterialDeliveries {
		if d.SupplierID == "" {
			continue
		}
		day := d.ExpectedDelivery.Format("2006-01-02")
		key := d.SupplierID + "|" + day
		if perSupplierDay[key] > s.cfg.SupplierDailyLimit && !seen[key] {
			seen[key] = true
			warnings = append(warnings, entity.ScheduleWarning{
				Type:     entity.WarningSupplierOverload,
				Resource: d.SupplierID,
				Description: fmt.Sprintf("供应商%s在%s有%d批到料，超过单日上限%d",
					d.SupplierID, day, perSupplierDay[key], s.cfg.SupplierDailyLimit),
			})
		}
	}

	// 2. 同一设备占用区间重叠
	byEquipment := map[string][]entity.EquipmentBooking{}
	for _, b := range schedule.EquipmentBookings {
		byEquipment[b.EquipmentName] = append(byEquipment[b.EquipmentName], b)
	}
	for name, bookings := range byEquipment {
		for i := 0; i < len(bookings); i++ {
			for j := i + 1; j < len(bookings); j++ {
				if overlaps(bookings[i].StartDate, bookings[i].EndDate, bookings[j].StartDate, bookings[j].EndDate) {
					warnings = append(warnings, entity.ScheduleWarning{
						Type:     entity.WarningEquipmentOverlap,
						Resource: name,
						Description: fmt.Sprintf("设备%s在%s与%s的占用区间重叠",
							name, bookings[i].Phase, bookings[j].Phase),
					})
				}
			}
		}
	}

	// 3. 同一角色并行排程数超产能
	byRole := map[string][]entity.LaborBooking{}
	for _, b := range schedule.LaborBookings {
		byRole[b.Role] = append(byRole[b.Role], b)
	}
	for role, bookings := range byRole {
		for i := 0; i < len(bookings); i++ {
			concurrent := 0
			for j := 0; j < len(bookings); j++ {
				if i == j {
					continue
				}
				if overlaps(bookings[i].StartDate, bookings[i].EndDate, bookings[j].StartDate, bookings[j].EndDate) {
					concurrent++
				}
			}
			if concurrent > s.cfg.LaborRoleCapacity {
				warnings = append(warnings, entity.ScheduleWarning{
					Type:     entity.WarningLaborOverbooked,
					Resource: role,
					Description: fmt.Sprintf("角色%s同期有%d个并行排程，超过产能%d",
						role, concurrent+1, s.cfg.LaborRoleCapacity),
				})
				break
			}
		}
	}

	return warnings
}

func overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

func materialNames(a *entity.ResourceAllocation) []string {
	names := make([]string, 0, len(a.Materials))
	for name := range a.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func equipmentNames(a *entity.ResourceAllocation) []string {
	names := make([]string, 0, len(a.Equipment))
	for name := range a.Equipment {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func laborRoles(a *entity.ResourceAllocation) []string {
	roles := make([]string, 0, len(a.Labor))
	for role := range a.Labor {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// RandomOracle 概率模拟的可用性查询，产能系统接入前的占位实现
type RandomOracle struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomOracle(seed int64) *RandomOracle {
	return &RandomOracle{rng: rand.New(rand.NewSource(seed))}
}

func (o *RandomOracle) Available(_ context.Context, _ string, _, _ time.Time, likelihood float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64() < likelihood
}

// AlwaysAvailableOracle 恒可用，测试与演示用
type AlwaysAvailableOracle struct{}

func (AlwaysAvailableOracle) Available(_ context.Context, _ string, _, _ time.Time, _ float64) bool {
	return true
}
