package repository

import (
	"app/internal/domain/model"
	repo "app/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// JOIN結果の受け皿。商品側は削除済みだとNULLになる。
type cartLineRow struct {
	ItemID        int64
	ProductID     int64
	Quantity      int64
	CapturedName  string
	CapturedPrice float64
	LiveID        *int64
	LiveName      *string
	LivePrice     *float64
	LiveImage     *string
	LiveStock     *int64
}

// カート明細と現在の商品を1回のLEFT JOINで取得（カートに入れた順）。
// 削除済み商品の明細も落とさずに返す。
func (r *CartGormRepository) ListLinesByUserID(ctx context.Context, userID int64) ([]repo.CartLine, error) {
	var rows []cartLineRow

	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select(`cart_items.id AS item_id,
			cart_items.product_id,
			cart_items.quantity,
			cart_items.captured_name,
			cart_items.captured_price,
			products.id AS live_id,
			products.name AS live_name,
			products.price AS live_price,
			products.image_url AS live_image,
			products.stock AS live_stock`).
		Joins("LEFT JOIN products ON products.id = cart_items.product_id AND products.deleted_at IS NULL").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id asc").
		Scan(&rows).Error
	if err != nil {
		return []repo.CartLine{}, err
	}

	lines := make([]repo.CartLine, 0, len(rows))
	for _, row := range rows {
		line := repo.CartLine{
			ItemID:        row.ItemID,
			ProductID:     row.ProductID,
			Quantity:      row.Quantity,
			CapturedName:  row.CapturedName,
			CapturedPrice: row.CapturedPrice,
			ProductExists: row.LiveID != nil,
		}
		if row.LiveName != nil {
			line.ProductName = *row.LiveName
		}
		if row.LivePrice != nil {
			line.ProductPrice = *row.LivePrice
		}
		if row.LiveImage != nil {
			line.ProductImage = *row.LiveImage
		}
		if row.LiveStock != nil {
			line.Stock = *row.LiveStock
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// 明細を取得
func (r *CartGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 同一ユーザー・同一商品の既存明細を探す
func (r *CartGormRepository) FindByUserAndProduct(ctx context.Context, userID int64, productID int64) (model.CartItem, bool, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, false, nil
	}
	if err != nil {
		return model.CartItem{}, false, err
	}
	return item, true, nil
}

func (r *CartGormRepository) Insert(ctx context.Context, item model.CartItem) error {
	return r.db.WithContext(ctx).Create(&item).Error
}

// 数量を更新しつつ、captured_* が未設定の行だけ埋める。
// 設定済みの値は上書きしない（最初の書き込みが勝つ）。
func (r *CartGormRepository) UpdateQuantityBackfillingCapture(ctx context.Context, cartItemID int64, qty int64, name string, price float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Updates(map[string]interface{}{
			"quantity":       qty,
			"captured_name":  gorm.Expr("COALESCE(NULLIF(captured_name, ''), ?)", name),
			"captured_price": gorm.Expr("CASE WHEN captured_price > 0 THEN captured_price ELSE ? END", price),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ユーザーの明細を全削除
func (r *CartGormRepository) ClearByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error
}
