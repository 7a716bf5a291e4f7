package usecase

import (
	"context"
	"encoding/json"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/rs/zerolog/log"
)

// 商品カタログの参照と管理者操作。
// 管理者の変更は必ず監査ログを残す。
type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
}

func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
	}
}

type ProductListOutput struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int64   `json:"stock"`
	ImageURL    string  `json:"image_url"`
}

// List は公開中の商品一覧（削除済みは出ない）。
func (u *ProductUsecase) List(ctx context.Context, q repo.ProductListQuery) (ProductListOutput, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	products, total, err := u.productRepo.List(ctx, q)
	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductListOutput{
		Products: products,
		Total:    total,
		Page:     q.Page,
		Limit:    q.Limit,
	}, nil
}

func (u *ProductUsecase) Detail(ctx context.Context, id int64) (model.Product, error) {
	if id <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// AdminCreate は商品を新規作成して監査ログを残す。
func (u *ProductUsecase) AdminCreate(ctx context.Context, actorUserID int64, in ProductInput) (model.Product, error) {
	if in.Name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.Price < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.Stock < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create product")
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.audit(ctx, actorUserID, model.AuditActionCreateProduct, created.ID, nil, created)
	return created, nil
}

// AdminUpdate は商品情報（名前・説明・価格・画像）を更新する。在庫はここでは触らない。
func (u *ProductUsecase) AdminUpdate(ctx context.Context, actorUserID int64, id int64, in ProductInput) (model.Product, error) {
	if id <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.Price < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	before, err := u.productRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	updated := before
	updated.Name = in.Name
	updated.Description = in.Description
	updated.Price = in.Price
	updated.ImageURL = in.ImageURL

	if err := u.productRepo.Update(ctx, updated); err != nil {
		if err == repo.ErrNotFound {
			return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int64("product_id", id).Msg("failed to update product")
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.audit(ctx, actorUserID, model.AuditActionUpdateProduct, id, before, updated)
	return updated, nil
}

// AdminDelete は商品をソフトデリートする。
// 既存カートの明細は残り、表示時に「削除済み」として扱われる。
func (u *ProductUsecase) AdminDelete(ctx context.Context, actorUserID int64, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	before, err := u.productRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.productRepo.SoftDelete(ctx, id); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.audit(ctx, actorUserID, model.AuditActionDeleteProduct, id, before, nil)
	return nil
}

// AdminSetStock は在庫数を直接設定する。
func (u *ProductUsecase) AdminSetStock(ctx context.Context, actorUserID int64, id int64, newStock int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}

	before, err := u.productRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.inventoryRepo.SetStock(ctx, id, newStock); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		log.Error().Err(err).Int64("product_id", id).Msg("failed to set stock")
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	after := before
	after.Stock = newStock
	u.audit(ctx, actorUserID, model.AuditActionUpdateStock, id, before, after)
	return nil
}

// 監査ログの失敗は操作自体を巻き戻さない（ログだけ残す）。
func (u *ProductUsecase) audit(ctx context.Context, actorUserID int64, action model.AuditAction, resourceID int64, before interface{}, after interface{}) {
	entry := model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   resourceID,
	}
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			entry.BeforeJSON = string(b)
		}
	}
	if after != nil {
		if b, err := json.Marshal(after); err == nil {
			entry.AfterJSON = string(b)
		}
	}

	if err := u.auditRepo.Create(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", string(action)).Int64("resource_id", resourceID).Msg("failed to write audit log")
	}
}
