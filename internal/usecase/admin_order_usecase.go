package usecase

import (
	"context"
	"net/http"
	"time"

	repo "app/internal/repository"

	"github.com/rs/zerolog/log"
)

// 管理者向けの注文集計。
type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

// 日付の範囲は両端を含む。
type DashboardFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

type AdminOrderView struct {
	OrderView
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

type MonthlyStatsOutput struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalOrders  int64   `json:"total_orders"`
}

type BestSellerView struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// Dashboard は全ユーザーの注文を新しい順に返す（ユーザー情報・明細つき）。
func (u *AdminOrderUsecase) Dashboard(ctx context.Context, f DashboardFilter) ([]AdminOrderView, error) {
	filter := repo.OrderListFilter{From: f.StartDate}
	if f.EndDate != nil {
		// 終端を含めるため翌日0時の手前までにする
		to := f.EndDate.AddDate(0, 0, 1)
		filter.To = &to
	}

	var views []AdminOrderView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListWithUsers(ctx, filter)
		if err != nil {
			return err
		}

		views = make([]AdminOrderView, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			views = append(views, AdminOrderView{
				OrderView: toOrderView(o.Order, items),
				UserEmail: o.UserEmail,
				UserName:  o.UserName,
			})
		}
		return nil
	})

	if err != nil {
		log.Error().Err(err).Msg("failed to load admin dashboard")
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return views, nil
}

// MonthlyStats は指定月の売上合計と注文数。
func (u *AdminOrderUsecase) MonthlyStats(ctx context.Context, year int, month int) (MonthlyStatsOutput, error) {
	from, to, err := monthRange(year, month)
	if err != nil {
		return MonthlyStatsOutput{}, err
	}

	var stats repo.SalesStats
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		stats, err = r.Orders().Stats(ctx, from, to)
		return err
	})
	if err != nil {
		log.Error().Err(err).Int("year", year).Int("month", month).Msg("failed to load monthly stats")
		return MonthlyStatsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return MonthlyStatsOutput{
		Year:         year,
		Month:        month,
		TotalRevenue: stats.TotalRevenue,
		TotalOrders:  stats.TotalOrders,
	}, nil
}

// MonthlyBestSellers は指定月の売れ筋（数量降順）。
func (u *AdminOrderUsecase) MonthlyBestSellers(ctx context.Context, year int, month int, limit int) ([]BestSellerView, error) {
	from, to, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	var rows []repo.BestSeller
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		rows, err = r.Orders().BestSellers(ctx, from, to, limit)
		return err
	})
	if err != nil {
		log.Error().Err(err).Int("year", year).Int("month", month).Msg("failed to load best sellers")
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	views := make([]BestSellerView, 0, len(rows))
	for _, b := range rows {
		views = append(views, BestSellerView{
			ProductID:     b.ProductID,
			ProductName:   b.ProductName,
			TotalQuantity: b.TotalQuantity,
			TotalRevenue:  b.TotalRevenue,
		})
	}
	return views, nil
}

// 月初0時から翌月初の手前まで（UTC）
func monthRange(year int, month int) (time.Time, time.Time, error) {
	if year < 2000 || year > 2100 {
		return time.Time{}, time.Time{}, NewHTTPError(http.StatusBadRequest, "invalid year")
	}
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, NewHTTPError(http.StatusBadRequest, "invalid month")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}
