package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 新しい順
func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

// 管理者用。注文とユーザーをJOINして新しい順
func (r *OrderGormRepository) ListWithUsers(ctx context.Context, f repo.OrderListFilter) ([]repo.OrderWithUser, error) {
	type row struct {
		ID          int64
		UserID      int64
		TotalAmount *float64
		ShippingFee *float64
		Status      string
		CreatedAt   time.Time
		UserEmail   string
		UserName    string
	}

	q := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.id, orders.user_id, orders.total_amount, orders.shipping_fee,
			orders.status, orders.created_at,
			users.email AS user_email, users.name AS user_name`).
		Joins("JOIN users ON users.id = orders.user_id")

	//期間絞り込み
	if f.From != nil {
		q = q.Where("orders.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("orders.created_at < ?", *f.To)
	}

	var rows []row
	if err := q.Order("orders.created_at desc, orders.id desc").Scan(&rows).Error; err != nil {
		return []repo.OrderWithUser{}, err
	}

	items := make([]repo.OrderWithUser, 0, len(rows))
	for _, rw := range rows {
		items = append(items, repo.OrderWithUser{
			Order: model.Order{
				ID:          rw.ID,
				UserID:      rw.UserID,
				TotalAmount: rw.TotalAmount,
				ShippingFee: rw.ShippingFee,
				Status:      model.OrderStatus(rw.Status),
				CreatedAt:   rw.CreatedAt,
			},
			UserEmail: rw.UserEmail,
			UserName:  rw.UserName,
		})
	}
	return items, nil
}

// 期間内の売上合計と注文数
func (r *OrderGormRepository) Stats(ctx context.Context, from time.Time, to time.Time) (repo.SalesStats, error) {
	var row struct {
		TotalRevenue float64
		TotalOrders  int64
	}

	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS total_revenue, COUNT(*) AS total_orders").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return repo.SalesStats{}, err
	}

	return repo.SalesStats{
		TotalRevenue: row.TotalRevenue,
		TotalOrders:  row.TotalOrders,
	}, nil
}

// 期間内の売れ筋。数量降順、同数は売上降順
func (r *OrderGormRepository) BestSellers(ctx context.Context, from time.Time, to time.Time, limit int) ([]repo.BestSeller, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var rows []repo.BestSeller
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select(`order_items.product_id,
			MAX(order_items.product_name) AS product_name,
			SUM(order_items.quantity) AS total_quantity,
			SUM(order_items.subtotal) AS total_revenue`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", from, to).
		Group("order_items.product_id").
		Order("total_quantity desc, total_revenue desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return []repo.BestSeller{}, err
	}

	return rows, nil
}
