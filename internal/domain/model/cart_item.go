package model

import "time"

// カートの明細
// captured_name / captured_price は追加時点の値を一度だけ保存し、
// 商品が後から変更・削除されても書き換えない（表示・価格のフォールバック）。
type CartItem struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID     int64     `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity      int64     `gorm:"not null" json:"quantity"`
	CapturedName  string    `gorm:"type:varchar(255);column:captured_name" json:"captured_name"`
	CapturedPrice float64   `gorm:"column:captured_price" json:"captured_price"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
