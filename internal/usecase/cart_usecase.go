package usecase

import (
	"context"
	"math"
	"net/http"

	"app/internal/domain/model"
	"app/internal/metrics"
	"app/internal/pricing"
	repo "app/internal/repository"

	"github.com/rs/zerolog/log"
)

// 価格が変わったとみなす差の下限
const priceEpsilon = 0.0001

// CartUsecase は /cart の業務ロジックです。
// 明細は追加時点の名前・価格を保持したまま、表示のたびに現在のカタログと突き合わせる。
type CartUsecase struct {
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
	pricingCfg  pricing.Config
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	productRepo repo.ProductRepository,
	pricingCfg pricing.Config,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		pricingCfg:  pricingCfg,
	}
}

// 表示用に現在のカタログ状態と突き合わせた明細。
type CartItemView struct {
	ID             int64    `json:"id"`
	ProductID      int64    `json:"product_id"`
	DisplayName    string   `json:"display_name"`
	DisplayImage   string   `json:"display_image,omitempty"`
	Quantity       int64    `json:"quantity"`
	Available      int64    `json:"available"`
	CapturedPrice  float64  `json:"captured_price"`
	CurrentPrice   *float64 `json:"current_price"`
	EffectivePrice float64  `json:"effective_price"`
	IsOutOfStock   bool     `json:"is_out_of_stock"`
	ExceedsStock   bool     `json:"exceeds_stock"`
	IsRemoved      bool     `json:"is_removed"`
	PriceChanged   bool     `json:"price_changed"`
}

// 数量を自動調整したお知らせ。文言は通知側が組み立てる。
type QuantityNotice struct {
	Name         string `json:"name"`
	FromQuantity int64  `json:"from_quantity"`
	ToQuantity   int64  `json:"to_quantity"`
}

type CartViewOutput struct {
	Items             []CartItemView   `json:"items"`
	HasOutOfStock     bool             `json:"has_out_of_stock"`
	HasStockIssues    bool             `json:"has_stock_issues"`
	RemovedItems      []CartItemView   `json:"removed_items"`
	PriceChangedItems []CartItemView   `json:"price_changed_items"`
	BlockCheckout     bool             `json:"block_checkout"`
	Notices           []QuantityNotice `json:"notices"`
	Summary           pricing.Summary  `json:"summary"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

// ViewCart はカートと現在のカタログの1回のJOIN結果から表示用ビューを作る。
// 在庫が1以上あって要求数が超えている明細は、ビューを作る前に在庫数まで黙って下げる。
// 在庫0・削除済みの明細は触らない（ユーザーが解消するまでチェックアウトを塞ぐ）。
func (u *CartUsecase) ViewCart(ctx context.Context, userID int64) (CartViewOutput, error) {
	if userID <= 0 {
		return CartViewOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lines, err := u.cartRepo.ListLinesByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("cart: failed to load cart lines")
		return CartViewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	notices := make([]QuantityNotice, 0)
	for i := range lines {
		available := availableOf(lines[i])
		if available > 0 && lines[i].Quantity > available {
			if err := u.cartRepo.UpdateQuantity(ctx, lines[i].ItemID, available); err != nil {
				log.Error().Err(err).Int64("cart_item_id", lines[i].ItemID).Msg("cart: failed to auto-adjust quantity")
				return CartViewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			notices = append(notices, QuantityNotice{
				Name:         displayNameOf(lines[i]),
				FromQuantity: lines[i].Quantity,
				ToQuantity:   available,
			})
			lines[i].Quantity = available
			metrics.CartAdjustmentsTotal.Inc()
		}
	}

	return buildCartView(u.pricingCfg, lines, notices), nil
}

// AddToCart はカートに追加（同一商品は数量加算）。
// captured_name / captured_price は最初の追加時にだけ確定する。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	// 1未満は1に切り上げ
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	existing, found, err := u.cartRepo.FindByUserAndProduct(ctx, userID, in.ProductID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var currentQty int64
	if found {
		currentQty = existing.Quantity
	}

	// 既存分と合わせて現在庫と比較する
	newQty := currentQty + qty
	if newQty > p.Stock {
		return NewInsufficientStockError(p.Name, p.Stock)
	}

	if found {
		if err := u.cartRepo.UpdateQuantityBackfillingCapture(ctx, existing.ID, newQty, p.Name, p.Price); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	}

	if err := u.cartRepo.Insert(ctx, model.CartItem{
		UserID:        userID,
		ProductID:     in.ProductID,
		Quantity:      qty,
		CapturedName:  p.Name,
		CapturedPrice: p.Price,
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 数量変更（所有チェック＋在庫チェック）。
func (u *CartUsecase) UpdateItem(ctx context.Context, userID int64, cartItemID int64, desiredQty int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	// 1未満は1に切り上げ
	if desiredQty < 1 {
		desiredQty = 1
	}

	item, err := u.cartRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//他人の明細は「存在しない扱い」にする
	if item.UserID != userID {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	p, err := u.productRepo.FindByID(ctx, item.ProductID)
	if err == repo.ErrNotFound {
		// 商品が消えていたら追加時点の名前で返す
		name := item.CapturedName
		if name == "" {
			name = "product"
		}
		return NewProductRemovedError(name)
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if desiredQty > p.Stock {
		return NewInsufficientStockError(p.Name, p.Stock)
	}

	if err := u.cartRepo.UpdateQuantity(ctx, cartItemID, desiredQty); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 明細削除
func (u *CartUsecase) DeleteItem(ctx context.Context, userID int64, cartItemID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := u.cartRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if item.UserID != userID {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	if err := u.cartRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// カートを空にする
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := u.cartRepo.ClearByUserID(ctx, userID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// JOIN済みの明細一覧からビューを組み立てる。
func buildCartView(cfg pricing.Config, lines []repo.CartLine, notices []QuantityNotice) CartViewOutput {
	items := make([]CartItemView, 0, len(lines))
	removed := make([]CartItemView, 0)
	priceChanged := make([]CartItemView, 0)

	hasOutOfStock := false
	hasStockIssues := false

	for _, l := range lines {
		v := toCartItemView(l)
		items = append(items, v)

		if v.IsOutOfStock {
			hasOutOfStock = true
		}
		if v.IsOutOfStock || v.ExceedsStock || v.IsRemoved {
			hasStockIssues = true
		}
		if v.IsRemoved {
			removed = append(removed, v)
		}
		if v.PriceChanged && !v.IsRemoved {
			priceChanged = append(priceChanged, v)
		}
	}

	return CartViewOutput{
		Items:             items,
		HasOutOfStock:     hasOutOfStock,
		HasStockIssues:    hasStockIssues,
		RemovedItems:      removed,
		PriceChangedItems: priceChanged,
		BlockCheckout:     hasOutOfStock || len(removed) > 0,
		Notices:           notices,
		Summary:           pricing.Summarize(cfg, toPricingLines(lines)),
	}
}

func toCartItemView(l repo.CartLine) CartItemView {
	available := availableOf(l)

	v := CartItemView{
		ID:             l.ItemID,
		ProductID:      l.ProductID,
		DisplayName:    displayNameOf(l),
		Quantity:       l.Quantity,
		Available:      available,
		CapturedPrice:  l.CapturedPrice,
		EffectivePrice: effectivePriceOf(l),
		IsOutOfStock:   !l.ProductExists || available == 0,
		ExceedsStock:   l.ProductExists && l.Quantity > available,
		IsRemoved:      !l.ProductExists,
	}

	if l.ProductExists {
		price := l.ProductPrice
		v.CurrentPrice = &price
		v.DisplayImage = l.ProductImage
		v.PriceChanged = math.Abs(l.ProductPrice-l.CapturedPrice) > priceEpsilon
	}

	return v
}

// 在庫は負なら0として扱い、削除済みは0。
func availableOf(l repo.CartLine) int64 {
	if !l.ProductExists {
		return 0
	}
	if l.Stock < 0 {
		return 0
	}
	return l.Stock
}

// 現在の商品名→追加時点の名前→固定文言の順で決める
func displayNameOf(l repo.CartLine) string {
	if l.ProductExists && l.ProductName != "" {
		return l.ProductName
	}
	if l.CapturedName != "" {
		return l.CapturedName
	}
	return "Unavailable product"
}

// 削除済みは0、それ以外は現在価格。
func effectivePriceOf(l repo.CartLine) float64 {
	if !l.ProductExists {
		return 0
	}
	return l.ProductPrice
}

// カート明細を課金行へ変換
func toPricingLines(lines []repo.CartLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		available := availableOf(l)
		out = append(out, pricing.Line{
			Quantity:       l.Quantity,
			Available:      available,
			EffectivePrice: effectivePriceOf(l),
			OutOfStock:     !l.ProductExists || available == 0,
			Removed:        !l.ProductExists,
		})
	}
	return out
}
