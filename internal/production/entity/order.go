package entity

import (
	"time"
)

// Order 定制订单（蚀刻/雕刻类商品）
type Order struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Code         string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	CustomerName string     `json:"customer_name" gorm:"size:200"`
	VendorID     *string    `json:"vendor_id" gorm:"size:32;index"`
	Status       string     `json:"status" gorm:"size:20;default:pending"`
	TotalAmount  float64    `json:"total_amount" gorm:"type:decimal(15,2);not null"`
	Currency     string     `json:"currency" gorm:"size:10;default:IDR"`
	DeliveryDate *time.Time `json:"delivery_date"`

	// 付款信息
	PaymentStatus string `json:"payment_status" gorm:"size:20;default:pending"`

	// 扩展元数据，生产进度快照存放在 production_progress 键下
	Metadata JSONB `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "production_orders"
}

// ProgressMetadataKey 订单元数据中生产进度快照的键
const ProgressMetadataKey = "production_progress"

// 订单状态
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// 付款状态
const (
	PaymentStatusPending = "pending"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// OrderItem 订单行项
type OrderItem struct {
	ID        string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string  `json:"order_id" gorm:"size:32;not null;index"`
	ItemType  string  `json:"item_type" gorm:"size:50;not null"` // etching/engraving/stamping/signage
	Name      string  `json:"name" gorm:"size:200;not null"`
	Quantity  int     `json:"quantity" gorm:"not null;default:1"`
	UnitPrice float64 `json:"unit_price" gorm:"type:decimal(15,2)"`

	// 定制规格（material/precision/finish等自由键值）
	Specifications JSONB `json:"specifications,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "production_order_items"
}

// HasCustomSpecifications 是否带有非空定制规格
func (i *OrderItem) HasCustomSpecifications() bool {
	return len(i.Specifications) > 0
}
