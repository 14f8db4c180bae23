package handler

import (
	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VendorHandler 供应商处理器
type VendorHandler struct {
	repo *repository.VendorRepository
}

func NewVendorHandler(repo *repository.VendorRepository) *VendorHandler {
	return &VendorHandler{repo: repo}
}

// CreateVendorRequest 创建供应商请求
type CreateVendorRequest struct {
	Name         string   `json:"name" binding:"required"`
	Rating       *float64 `json:"rating" binding:"omitempty,gte=0,lte=5"`
	LeadTimeDays int      `json:"lead_time_days"`
	Specialties  []string `json:"specialties"`
	ContactName  string   `json:"contact_name"`
	ContactPhone string   `json:"contact_phone"`
}

// UpdateVendorRequest 更新供应商请求，零值字段不更新
type UpdateVendorRequest struct {
	Name         *string  `json:"name"`
	Rating       *float64 `json:"rating" binding:"omitempty,gte=0,lte=5"`
	LeadTimeDays *int     `json:"lead_time_days"`
	Status       *string  `json:"status"`
	Specialties  []string `json:"specialties"`
	ContactName  *string  `json:"contact_name"`
	ContactPhone *string  `json:"contact_phone"`
}

// ListVendors 供应商列表
// GET /api/v1/production/vendors?search=xxx&status=xxx&page=1&page_size=20
func (h *VendorHandler) ListVendors(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search": c.Query("search"),
		"status": c.Query("status"),
	}

	items, total, err := h.repo.FindAll(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取供应商列表失败: "+err.Error())
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

// GetVendor 供应商详情
// GET /api/v1/production/vendors/:id
func (h *VendorHandler) GetVendor(c *gin.Context) {
	id := c.Param("id")
	vendor, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err, "供应商不存在")
		return
	}
	Success(c, vendor)
}

// CreateVendor 创建供应商
// POST /api/v1/production/vendors
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	code, err := h.repo.GenerateCode(c.Request.Context())
	if err != nil {
		InternalError(c, "生成供应商编码失败: "+err.Error())
		return
	}

	vendor := &entity.Vendor{
		ID:           uuid.New().String()[:32],
		Code:         code,
		Name:         req.Name,
		Rating:       req.Rating,
		LeadTimeDays: req.LeadTimeDays,
		Status:       entity.VendorStatusActive,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
	}
	if vendor.LeadTimeDays <= 0 {
		vendor.LeadTimeDays = 7
	}
	for _, s := range req.Specialties {
		vendor.Specialties = append(vendor.Specialties, s)
	}

	if err := h.repo.Create(c.Request.Context(), vendor); err != nil {
		InternalError(c, "创建供应商失败: "+err.Error())
		return
	}

	Created(c, vendor)
}

// UpdateVendor 更新供应商
// PUT /api/v1/production/vendors/:id
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	id := c.Param("id")
	var req UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err, "供应商不存在")
		return
	}

	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.Rating != nil {
		vendor.Rating = req.Rating
	}
	if req.LeadTimeDays != nil {
		vendor.LeadTimeDays = *req.LeadTimeDays
	}
	if req.Status != nil {
		vendor.Status = *req.Status
	}
	if req.ContactName != nil {
		vendor.ContactName = *req.ContactName
	}
	if req.ContactPhone != nil {
		vendor.ContactPhone = *req.ContactPhone
	}
	if req.Specialties != nil {
		vendor.Specialties = nil
		for _, s := range req.Specialties {
			vendor.Specialties = append(vendor.Specialties, s)
		}
	}

	if err := h.repo.Update(c.Request.Context(), vendor); err != nil {
		InternalError(c, "更新供应商失败: "+err.Error())
		return
	}

	Success(c, vendor)
}
