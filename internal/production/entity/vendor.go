package entity

import (
	"time"
)

// Vendor 生产供应商
type Vendor struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Code         string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name         string     `json:"name" gorm:"size:200;not null"`
	Rating       *float64   `json:"rating" gorm:"type:decimal(3,2)"` // 0-5
	LeadTimeDays int        `json:"lead_time_days" gorm:"default:7"`
	Status       string     `json:"status" gorm:"size:20;default:active"`
	Specialties  JSONBArray `json:"specialties,omitempty" gorm:"type:jsonb"`
	ContactName  string     `json:"contact_name" gorm:"size:100"`
	ContactPhone string     `json:"contact_phone" gorm:"size:50"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Vendor) TableName() string {
	return "production_vendors"
}

// 供应商状态
const (
	VendorStatusActive    = "active"
	VendorStatusSuspended = "suspended"
)
