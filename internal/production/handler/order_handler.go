package handler

import (
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	repo *repository.OrderRepository
}

func NewOrderHandler(repo *repository.OrderRepository) *OrderHandler {
	return &OrderHandler{repo: repo}
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Code         string                   `json:"code" binding:"required"`
	CustomerName string                   `json:"customer_name"`
	VendorID     *string                  `json:"vendor_id"`
	TotalAmount  float64                  `json:"total_amount" binding:"required,gt=0"`
	Currency     string                   `json:"currency"`
	DeliveryDate *time.Time               `json:"delivery_date"`
	Notes        string                   `json:"notes"`
	Items        []CreateOrderItemRequest `json:"items"`
}

// CreateOrderItemRequest 订单行项
type CreateOrderItemRequest struct {
	ItemType       string                 `json:"item_type" binding:"required"`
	Name           string                 `json:"name" binding:"required"`
	Quantity       int                    `json:"quantity" binding:"required,gt=0"`
	UnitPrice      float64                `json:"unit_price"`
	Specifications map[string]interface{} `json:"specifications"`
}

// ListOrders 订单列表
// GET /api/v1/production/orders?search=xxx&status=xxx&payment_status=xxx&page=1&page_size=20
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search":         c.Query("search"),
		"status":         c.Query("status"),
		"payment_status": c.Query("payment_status"),
		"vendor_id":      c.Query("vendor_id"),
	}

	items, total, err := h.repo.FindAll(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GetOrder 订单详情
// GET /api/v1/production/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err, "订单不存在")
		return
	}
	Success(c, order)
}

// CreateOrder 创建订单
// POST /api/v1/production/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order := &entity.Order{
		ID:           uuid.New().String()[:32],
		Code:         req.Code,
		CustomerName: req.CustomerName,
		VendorID:     req.VendorID,
		Status:       entity.OrderStatusPending,
		TotalAmount:  req.TotalAmount,
		Currency:     req.Currency,
		DeliveryDate: req.DeliveryDate,
		Notes:        req.Notes,
	}
	if order.Currency == "" {
		order.Currency = "IDR"
	}

	for _, item := range req.Items {
		order.Items = append(order.Items, entity.OrderItem{
			ID:             uuid.New().String()[:32],
			OrderID:        order.ID,
			ItemType:       item.ItemType,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Specifications: entity.JSONB(item.Specifications),
		})
	}

	if err := h.repo.Create(c.Request.Context(), order); err != nil {
		InternalError(c, "创建订单失败: "+err.Error())
		return
	}

	Created(c, order)
}
