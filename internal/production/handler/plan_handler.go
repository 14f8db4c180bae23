package handler

import (
	"errors"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"github.com/canvastack/stencil-sub023/internal/production/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlanHandler 生产计划处理器
type PlanHandler struct {
	planning  *service.PlanningService
	scheduler *service.SchedulerService
	orders    *repository.OrderRepository
	plans     *repository.PlanRepository
}

func NewPlanHandler(planning *service.PlanningService, scheduler *service.SchedulerService, orders *repository.OrderRepository, plans *repository.PlanRepository) *PlanHandler {
	return &PlanHandler{
		planning:  planning,
		scheduler: scheduler,
		orders:    orders,
		plans:     plans,
	}
}

// CreatePlan 为订单生成生产计划并持久化快照，重复调用覆盖旧计划
// POST /api/v1/production/orders/:id/plan
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	orderID := c.Param("id")
	order, err := h.orders.FindByID(c.Request.Context(), orderID)
	if err != nil {
		ServiceError(c, err, "订单不存在")
		return
	}

	plan, err := h.planning.CreatePlan(c.Request.Context(), order)
	if err != nil {
		ServiceError(c, err, "生成生产计划失败")
		return
	}

	snapshot, err := plan.Snapshot()
	if err != nil {
		InternalError(c, "序列化计划失败: "+err.Error())
		return
	}

	record := &entity.ProductionPlanRecord{
		ID:        uuid.New().String()[:32],
		OrderID:   orderID,
		Snapshot:  snapshot,
		Status:    "active",
		CreatedBy: GetUserID(c),
		CreatedAt: time.Now(),
	}
	if err := h.plans.Save(c.Request.Context(), record); err != nil {
		InternalError(c, "保存生产计划失败: "+err.Error())
		return
	}

	Created(c, plan)
}

// GetPlan 订单的当前生产计划
// GET /api/v1/production/orders/:id/plan
func (h *PlanHandler) GetPlan(c *gin.Context) {
	orderID := c.Param("id")
	plan, err := h.plans.PlanByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单尚未生成生产计划")
			return
		}
		InternalError(c, "获取生产计划失败: "+err.Error())
		return
	}
	Success(c, plan)
}

// ScheduleResources 按当前计划排程资源并检查冲突
// POST /api/v1/production/orders/:id/schedule
func (h *PlanHandler) ScheduleResources(c *gin.Context) {
	orderID := c.Param("id")
	plan, err := h.plans.PlanByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单尚未生成生产计划")
			return
		}
		InternalError(c, "获取生产计划失败: "+err.Error())
		return
	}

	// Schedule内部已做冲突检查并填充Warnings
	schedule := h.scheduler.Schedule(c.Request.Context(), &plan.Resources, &plan.Timeline)

	Success(c, gin.H{
		"schedule": schedule,
		"warnings": schedule.Warnings,
	})
}
