package model

import "time"

// 注文明細。確定時点の商品名・単価のスナップショットで、
// 後からカタログが変わっても独立した履歴として残す。
type OrderItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64     `gorm:"not null;index" json:"order_id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"type:varchar(255);not null;column:product_name" json:"product_name"`
	Quantity    int64     `gorm:"not null" json:"quantity"`
	Price       float64   `gorm:"not null" json:"price"`
	Subtotal    float64   `gorm:"not null" json:"subtotal"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
