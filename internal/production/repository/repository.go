package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ErrConflict 乐观锁版本冲突
var ErrConflict = errors.New("revision conflict")

// Repositories 生产域仓库集合
type Repositories struct {
	Order  *OrderRepository
	Vendor *VendorRepository
	Plan   *PlanRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:  NewOrderRepository(db),
		Vendor: NewVendorRepository(db),
		Plan:   NewPlanRepository(db),
	}
}

// forUpdate 行级锁，进度CAS写入时使用
func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
