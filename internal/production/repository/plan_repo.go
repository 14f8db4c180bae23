package repository

import (
	"context"
	"errors"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"gorm.io/gorm"
)

// PlanRepository 生产计划仓库，计划整体以JSONB快照落库
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindByOrderID 查找订单的计划记录
func (r *PlanRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.ProductionPlanRecord, error) {
	var record entity.ProductionPlanRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Save 新建或覆盖订单的计划快照
func (r *PlanRepository) Save(ctx context.Context, record *entity.ProductionPlanRecord) error {
	existing, err := r.FindByOrderID(ctx, record.OrderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(record).Error
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// PlanByOrderID 读取并还原订单的生产计划
func (r *PlanRepository) PlanByOrderID(ctx context.Context, orderID string) (*entity.ProductionPlan, error) {
	record, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return entity.PlanFromSnapshot(record.Snapshot)
}
