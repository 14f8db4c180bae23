package entity

import (
	"time"
)

// MaterialDelivery 物料到料排程
type MaterialDelivery struct {
	MaterialName     string    `json:"material_name"`
	SupplierID       string    `json:"supplier_id,omitempty"`
	SupplierName     string    `json:"supplier_name,omitempty"`
	LeadTimeDays     int       `json:"lead_time_days"`
	OrderDate        time.Time `json:"order_date"`
	RequiredDate     time.Time `json:"required_date"`
	ExpectedDelivery time.Time `json:"expected_delivery"`
	Late             bool      `json:"late"` // 预计到料晚于原需求日期
}

// EquipmentBooking 设备占用排程
type EquipmentBooking struct {
	EquipmentName    string    `json:"equipment_name"`
	Phase            string    `json:"phase"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	UtilizationHours float64   `json:"utilization_hours"`
	Available        bool      `json:"available"`
}

// LaborBooking 人力占用排程
type LaborBooking struct {
	Role       string    `json:"role"`
	Phase      string    `json:"phase"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	DailyHours float64   `json:"daily_hours"`
	TotalHours float64   `json:"total_hours"`
	Workers    int       `json:"workers"`
	Available  bool      `json:"available"`
}

// ScheduleWarning 排程冲突告警（不阻断排程）
type ScheduleWarning struct {
	Type        string `json:"type"` // supplier_overload/equipment_overlap/labor_overbooked
	Resource    string `json:"resource"`
	Description string `json:"description"`
}

// ResourceSchedule 资源排程结果
type ResourceSchedule struct {
	MaterialDeliveries []MaterialDelivery `json:"material_deliveries"`
	EquipmentBookings  []EquipmentBooking `json:"equipment_bookings"`
	LaborBookings      []LaborBooking     `json:"labor_bookings"`
	Warnings           []ScheduleWarning  `json:"warnings"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

// 排程告警类型
const (
	WarningSupplierOverload = "supplier_overload"
	WarningEquipmentOverlap = "equipment_overlap"
	WarningLaborOverbooked  = "labor_overbooked"
)
