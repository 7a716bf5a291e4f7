package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	"app/internal/pricing"
	repo "app/internal/repository"

	"github.com/rs/zerolog/log"
)

// OrderUsecase はチェックアウトと注文参照を担当します。
type OrderUsecase struct {
	tx         repo.TransactionManager
	pricingCfg pricing.Config
}

func NewOrderUsecase(tx repo.TransactionManager, pricingCfg pricing.Config) *OrderUsecase {
	return &OrderUsecase{tx: tx, pricingCfg: pricingCfg}
}

// 認可判定に使う呼び出し元の情報
type Requester struct {
	UserID int64
	Role   string
}

type CheckoutOutput struct {
	OrderID     int64           `json:"order_id"`
	Status      string          `json:"status"`
	Summary     pricing.Summary `json:"summary"`
	ItemCount   int             `json:"item_count"`
	CompletedAt time.Time       `json:"completed_at"`
}

type OrderItemView struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
}

type OrderView struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []OrderItemView `json:"items"`
	Summary   pricing.Summary `json:"summary"`
}

// Checkout はカート全件を1トランザクションで注文に変換する。
// 検証→注文作成→明細ごとに挿入と在庫引き落とし→カート全消し、のどこで失敗しても全体を巻き戻す。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CheckoutOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lines, err := r.Carts().ListLinesByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return NewCheckoutError(CodeEmptyCart, nil)
		}

		// 削除済み商品が残っているうちは確定できない
		removed := make([]string, 0)
		for _, l := range lines {
			if !l.ProductExists {
				removed = append(removed, displayNameOf(l))
			}
		}
		if len(removed) > 0 {
			return NewCheckoutError(CodeRemovedItems, removed)
		}

		// 在庫0または要求超過の明細も却下
		issues := make([]string, 0)
		for _, l := range lines {
			available := availableOf(l)
			if available == 0 || l.Quantity > available {
				issues = append(issues, displayNameOf(l))
			}
		}
		if len(issues) > 0 {
			return NewCheckoutError(CodeStockIssues, issues)
		}

		summary := pricing.Summarize(u.pricingCfg, toPricingLines(lines))

		total := summary.Total
		fee := summary.ShippingFee
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:      userID,
			TotalAmount: &total,
			ShippingFee: &fee,
			Status:      model.OrderStatusPending,
		})
		if err != nil {
			return err
		}

		// 明細ごとに挿入→条件付き引き落とし、を逐次。
		// 引き落とせなかったら（同時購入に負けたら）却下してロールバック。
		for _, l := range lines {
			if err := r.OrderItems().Create(ctx, model.OrderItem{
				OrderID:     orderID,
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				Price:       l.ProductPrice,
				Subtotal:    l.ProductPrice * float64(l.Quantity),
			}); err != nil {
				return err
			}

			ok, err := r.Inventory().DecrementStockIfEnough(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return NewCheckoutError(CodeStockIssues, []string{displayNameOf(l)})
			}
		}

		if err := r.Carts().ClearByUserID(ctx, userID); err != nil {
			return err
		}

		out = CheckoutOutput{
			OrderID:     orderID,
			Status:      string(model.OrderStatusPending),
			Summary:     summary,
			ItemCount:   len(lines),
			CompletedAt: time.Now(),
		}
		return nil
	})

	if err != nil {
		if ce, ok := err.(*CheckoutError); ok {
			metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
			log.Info().Int64("user_id", userID).Str("code", string(ce.Code)).Msg("checkout rejected")
			return CheckoutOutput{}, err
		}
		metrics.CheckoutsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Int64("user_id", userID).Msg("checkout failed")
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CheckoutsTotal.WithLabelValues("done").Inc()
	return out, nil
}

// GetInvoice は注文の明細書を返す。本人か管理者だけが見られる。
func (u *OrderUsecase) GetInvoice(ctx context.Context, req Requester, orderID int64) (OrderView, error) {
	if req.UserID <= 0 {
		return OrderView{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var view OrderView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		// 所有チェックは先に存在確認してから
		if o.UserID != req.UserID && req.Role != string(model.RoleAdmin) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}

		view = toOrderView(o, items)
		return nil
	})

	if err == repo.ErrNotFound {
		return OrderView{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderView{}, err
		}
		log.Error().Err(err).Int64("order_id", orderID).Msg("failed to load invoice")
		return OrderView{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return view, nil
}

// ListMyOrders は本人の注文履歴（新しい順、明細つき）。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderView, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var views []OrderView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByUserID(ctx, userID)
		if err != nil {
			return err
		}

		views = make([]OrderView, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			views = append(views, toOrderView(o, items))
		}
		return nil
	})

	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to load order history")
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return views, nil
}

func toOrderView(o model.Order, items []model.OrderItem) OrderView {
	itemViews := make([]OrderItemView, 0, len(items))
	for _, it := range items {
		itemViews = append(itemViews, OrderItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal,
		})
	}

	return OrderView{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		Items:     itemViews,
		Summary:   BuildOrderSummary(o, items),
	}
}

// BuildOrderSummary は注文行と明細から内訳を組み立て直す。
// 古い行は total_amount / shipping_fee が NULL のことがあるので明細から復元する。
func BuildOrderSummary(o model.Order, items []model.OrderItem) pricing.Summary {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Subtotal
	}

	var fee float64
	switch {
	case o.ShippingFee != nil:
		fee = *o.ShippingFee
	case o.TotalAmount != nil:
		fee = *o.TotalAmount - subtotal
		if fee < 0 {
			fee = 0
		}
	}

	var total float64
	if o.TotalAmount != nil {
		total = *o.TotalAmount
	} else {
		total = subtotal + fee
	}

	return pricing.Summary{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       total,
	}
}
