package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderItemRepository interface {
	// 1明細ずつ挿入する（確定処理は明細ごとに逐次進むため一括はしない）
	Create(ctx context.Context, item model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
