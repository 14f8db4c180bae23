package handler

import (
	"errors"
	"fmt"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"github.com/canvastack/stencil-sub023/internal/production/service"
	"github.com/gin-gonic/gin"
)

// ProgressHandler 生产进度处理器
type ProgressHandler struct {
	tracker *service.ProgressTracker
	report  *service.ReportService
	orders  *repository.OrderRepository
	plans   *repository.PlanRepository
}

func NewProgressHandler(tracker *service.ProgressTracker, report *service.ReportService, orders *repository.OrderRepository, plans *repository.PlanRepository) *ProgressHandler {
	return &ProgressHandler{
		tracker: tracker,
		report:  report,
		orders:  orders,
		plans:   plans,
	}
}

// GetProgress 订单进度
// GET /api/v1/production/orders/:id/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	orderID := c.Param("id")
	progress, err := h.orders.LoadProgress(c.Request.Context(), orderID)
	if err != nil {
		ServiceError(c, err, "获取进度失败")
		return
	}
	if progress == nil {
		NotFound(c, "订单暂无进度记录")
		return
	}
	Success(c, progress)
}

// UpdateProgress 提交进度变更
// PUT /api/v1/production/orders/:id/progress
func (h *ProgressHandler) UpdateProgress(c *gin.Context) {
	orderID := c.Param("id")

	var update entity.ProgressUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	plan, err := h.loadPlan(c, orderID)
	if err != nil {
		return
	}

	progress, err := h.tracker.UpdateProgress(c.Request.Context(), plan, &update)
	if err != nil {
		ServiceError(c, err, "更新进度失败")
		return
	}

	Success(c, progress)
}

// GetReport 进度报告
// GET /api/v1/production/orders/:id/progress/report
func (h *ProgressHandler) GetReport(c *gin.Context) {
	orderID := c.Param("id")

	plan, err := h.loadPlan(c, orderID)
	if err != nil {
		return
	}

	report, err := h.report.Generate(c.Request.Context(), plan)
	if err != nil {
		ServiceError(c, err, "生成进度报告失败")
		return
	}

	Success(c, report)
}

// ExportReport 导出进度报告Excel。
// upload=true时上传对象存储并返回对象名，否则直接下载。
// GET /api/v1/production/orders/:id/progress/report/export?upload=true
func (h *ProgressHandler) ExportReport(c *gin.Context) {
	orderID := c.Param("id")

	plan, err := h.loadPlan(c, orderID)
	if err != nil {
		return
	}

	if c.Query("upload") == "true" {
		objectName, err := h.report.ExportToStorage(c.Request.Context(), plan)
		if err != nil {
			InternalError(c, "上传进度报告失败: "+err.Error())
			return
		}
		Success(c, gin.H{"object": objectName})
		return
	}

	data, filename, err := h.report.ExportXLSX(c.Request.Context(), plan)
	if err != nil {
		ServiceError(c, err, "导出进度报告失败")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// loadPlan 加载订单计划，失败时直接写响应
func (h *ProgressHandler) loadPlan(c *gin.Context, orderID string) (*entity.ProductionPlan, error) {
	plan, err := h.plans.PlanByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单尚未生成生产计划")
		} else {
			InternalError(c, "获取生产计划失败: "+err.Error())
		}
		return nil, err
	}
	return plan, nil
}
