package model

import "time"

type OrderStatus string

const (
	// 作成直後のステータス。ここから先の遷移は扱わない。
	OrderStatusPending OrderStatus = "Pending"
)

// 確定済み注文。作成後は不変。
// total_amount / shipping_fee は手数料導入前の行が NULL のことがあるため pointer。
type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	TotalAmount *float64    `gorm:"column:total_amount" json:"total_amount"`
	ShippingFee *float64    `gorm:"column:shipping_fee" json:"shipping_fee"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
