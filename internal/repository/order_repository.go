package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

// 管理者向け注文一覧の絞り込み（作成日、両端は呼び出し側で正規化済み）
type OrderListFilter struct {
	From *time.Time
	To   *time.Time // exclusive
}

// ユーザー情報つきの注文行
type OrderWithUser struct {
	model.Order
	UserEmail string
	UserName  string
}

type SalesStats struct {
	TotalRevenue float64
	TotalOrders  int64
}

type BestSeller struct {
	ProductID     int64
	ProductName   string
	TotalQuantity int64
	TotalRevenue  float64
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	// 管理者用。users をJOINして新しい順
	ListWithUsers(ctx context.Context, f OrderListFilter) ([]OrderWithUser, error)

	Stats(ctx context.Context, from time.Time, to time.Time) (SalesStats, error)
	// 数量降順、同数は売上降順
	BestSellers(ctx context.Context, from time.Time, to time.Time, limit int) ([]BestSeller, error)
}
