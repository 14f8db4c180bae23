package handler

import (
	"errors"
	"strconv"

	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"github.com/canvastack/stencil-sub023/internal/production/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Order    *OrderHandler
	Vendor   *VendorHandler
	Plan     *PlanHandler
	Progress *ProgressHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Order:    NewOrderHandler(repos.Order),
		Vendor:   NewVendorHandler(repos.Vendor),
		Plan:     NewPlanHandler(svc.Planning, svc.Scheduler, repos.Order, repos.Plan),
		Progress: NewProgressHandler(svc.Progress, svc.Report, repos.Order, repos.Plan),
	}
}

// RegisterRoutes 注册生产域路由，auth为认证中间件
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers, auth gin.HandlerFunc) {
	api := rg.Group("", auth)

	orders := api.Group("/orders")
	{
		orders.GET("", h.Order.ListOrders)
		orders.POST("", h.Order.CreateOrder)
		orders.GET("/:id", h.Order.GetOrder)

		orders.POST("/:id/plan", h.Plan.CreatePlan)
		orders.GET("/:id/plan", h.Plan.GetPlan)
		orders.POST("/:id/schedule", h.Plan.ScheduleResources)

		orders.GET("/:id/progress", h.Progress.GetProgress)
		orders.PUT("/:id/progress", h.Progress.UpdateProgress)
		orders.GET("/:id/progress/report", h.Progress.GetReport)
		orders.GET("/:id/progress/report/export", h.Progress.ExportReport)
	}

	vendors := api.Group("/vendors")
	{
		vendors.GET("", h.Vendor.ListVendors)
		vendors.POST("", h.Vendor.CreateVendor)
		vendors.GET("/:id", h.Vendor.GetVendor)
		vendors.PUT("/:id", h.Vendor.UpdateVendor)
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 版本冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError 按错误类型映射响应
func ServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, fallback)
	case errors.Is(err, repository.ErrConflict):
		Conflict(c, "进度版本冲突，请刷新后重试")
	case errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrDependencyViolation):
		BadRequest(c, err.Error())
	default:
		InternalError(c, fallback+": "+err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
