package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"gorm.io/gorm"
)

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindAll 查询订单列表
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	var items []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})

	if search := filters["search"]; search != "" {
		query = query.Where("code ILIKE ? OR customer_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if vendorID := filters["vendor_id"]; vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if payment := filters["payment_status"]; payment != "" {
		query = query.Where("payment_status = ?", payment)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找订单（含行项）
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建订单
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Save 保存订单
func (r *OrderRepository) Save(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// LoadProgress 读取订单元数据中的进度快照，不存在返回nil
func (r *OrderRepository) LoadProgress(ctx context.Context, orderID string) (*entity.ProductionProgress, error) {
	order, err := r.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	raw, ok := order.Metadata[entity.ProgressMetadataKey]
	if !ok {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed progress metadata for order %s", orderID)
	}
	return entity.ProgressFromMap(entity.JSONB(m))
}

// SaveProgress 以版本号CAS方式写入进度快照。
// expectedRevision 为读取时的版本号，不匹配返回ErrConflict，不落任何变更。
func (r *OrderRepository) SaveProgress(ctx context.Context, orderID string, progress *entity.ProductionProgress, expectedRevision int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order entity.Order
		if err := tx.Clauses(forUpdate()).Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		current := 0
		if raw, ok := order.Metadata[entity.ProgressMetadataKey]; ok {
			if m, ok := raw.(map[string]interface{}); ok {
				if rev, ok := m["revision"].(float64); ok {
					current = int(rev)
				}
			}
		}
		if current != expectedRevision {
			return ErrConflict
		}

		progress.Revision = expectedRevision + 1
		snapshot, err := progress.ToMap()
		if err != nil {
			return err
		}
		if order.Metadata == nil {
			order.Metadata = entity.JSONB{}
		}
		order.Metadata[entity.ProgressMetadataKey] = map[string]interface{}(snapshot)

		return tx.Model(&entity.Order{}).
			Where("id = ?", orderID).
			Update("metadata", order.Metadata).Error
	})
}
