package repository

import (
	"context"

	"app/internal/domain/model"
)

// カート明細と現在のカタログ状態を1回のJOINで引いた行。
// ProductExists=false は商品が削除済みということ。
type CartLine struct {
	ItemID        int64
	ProductID     int64
	Quantity      int64
	CapturedName  string
	CapturedPrice float64
	ProductExists bool
	ProductName   string
	ProductPrice  float64
	ProductImage  string
	Stock         int64
}

type CartRepository interface {
	// JOIN済みの明細一覧（カートに入れた順）
	ListLinesByUserID(ctx context.Context, userID int64) ([]CartLine, error)

	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID int64, productID int64) (model.CartItem, bool, error)
	Insert(ctx context.Context, item model.CartItem) error

	// 数量だけ更新。captured_* は未設定の行に限りバックフィルする（上書きはしない）。
	UpdateQuantityBackfillingCapture(ctx context.Context, cartItemID int64, qty int64, name string, price float64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error

	DeleteByID(ctx context.Context, cartItemID int64) error
	ClearByUserID(ctx context.Context, userID int64) error
}
