package usecase

import (
	"context"
	"testing"

	"app/internal/domain/model"
	"app/internal/pricing"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCartUsecaseForTest() (*CartUsecase, *CartRepoMock, *ProductRepoMock) {
	cartRepo := new(CartRepoMock)
	productRepo := new(ProductRepoMock)
	uc := NewCartUsecase(cartRepo, productRepo, pricing.DefaultConfig())
	return uc, cartRepo, productRepo
}

// =====================
// AddToCart
// =====================

func TestCartUsecase_AddToCart_NewItemCapturesNameAndPrice(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, productRepo := newCartUsecaseForTest()

	productRepo.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee", Price: 12.50, Stock: 5}, nil)
	cartRepo.On("FindByUserAndProduct", mock.Anything, int64(1), int64(10)).
		Return(model.CartItem{}, false, nil)
	cartRepo.On("Insert", mock.Anything, model.CartItem{
		UserID:        1,
		ProductID:     10,
		Quantity:      2,
		CapturedName:  "Coffee",
		CapturedPrice: 12.50,
	}).Return(nil)

	err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 10, Quantity: 2})
	assert.NoError(t, err)
	cartRepo.AssertExpectations(t)
}

func TestCartUsecase_AddToCart_SameProductMergesQuantity(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, productRepo := newCartUsecaseForTest()

	productRepo.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee", Price: 12.50, Stock: 5}, nil)
	cartRepo.On("FindByUserAndProduct", mock.Anything, int64(1), int64(10)).
		Return(model.CartItem{ID: 7, UserID: 1, ProductID: 10, Quantity: 2}, true, nil)
	cartRepo.On("UpdateQuantityBackfillingCapture", mock.Anything, int64(7), int64(5), "Coffee", 12.50).
		Return(nil)

	err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 10, Quantity: 3})
	assert.NoError(t, err)
	cartRepo.AssertExpectations(t)
}

func TestCartUsecase_AddToCart_MergedQuantityOverStock(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, productRepo := newCartUsecaseForTest()

	productRepo.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee", Price: 12.50, Stock: 4}, nil)
	cartRepo.On("FindByUserAndProduct", mock.Anything, int64(1), int64(10)).
		Return(model.CartItem{ID: 7, UserID: 1, ProductID: 10, Quantity: 2}, true, nil)

	err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 10, Quantity: 3})

	se, ok := err.(*StockError)
	if assert.True(t, ok) {
		assert.Equal(t, CodeInsufficientStock, se.Code)
		assert.Equal(t, "Coffee", se.ProductName)
		assert.Equal(t, int64(4), se.Available)
	}
	cartRepo.AssertNotCalled(t, "UpdateQuantityBackfillingCapture", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_AddToCart_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	uc, _, productRepo := newCartUsecaseForTest()

	productRepo.On("FindByID", mock.Anything, int64(99)).
		Return(model.Product{}, repo.ErrNotFound)

	err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 99, Quantity: 1})
	assertErrContains(t, err, "product not found")
}

func TestCartUsecase_AddToCart_ZeroQuantityCoercedToOne(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, productRepo := newCartUsecaseForTest()

	productRepo.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee", Price: 12.50, Stock: 5}, nil)
	cartRepo.On("FindByUserAndProduct", mock.Anything, int64(1), int64(10)).
		Return(model.CartItem{}, false, nil)
	cartRepo.On("Insert", mock.Anything, mock.MatchedBy(func(item model.CartItem) bool {
		return item.Quantity == 1
	})).Return(nil)

	err := uc.AddToCart(ctx, 1, AddCartInput{ProductID: 10, Quantity: 0})
	assert.NoError(t, err)
	cartRepo.AssertExpectations(t)
}

// =====================
// UpdateItem / DeleteItem
// =====================

func TestCartUsecase_UpdateItem_OtherUsersItemLooksMissing(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	cartRepo.On("FindByID", mock.Anything, int64(7)).
		Return(model.CartItem{ID: 7, UserID: 2, ProductID: 10, Quantity: 1}, nil)

	err := uc.UpdateItem(ctx, 1, 7, 3)
	assertErrContains(t, err, "not found")
	cartRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_UpdateItem_RemovedProduct(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, productRepo := newCartUsecaseForTest()

	cartRepo.On("FindByID", mock.Anything, int64(7)).
		Return(model.CartItem{ID: 7, UserID: 1, ProductID: 10, Quantity: 1, CapturedName: "Old Coffee"}, nil)
	productRepo.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{}, repo.ErrNotFound)

	err := uc.UpdateItem(ctx, 1, 7, 3)

	se, ok := err.(*StockError)
	if assert.True(t, ok) {
		assert.Equal(t, CodeProductRemoved, se.Code)
		assert.Equal(t, "Old Coffee", se.ProductName)
	}
}

func TestCartUsecase_UpdateItem_OverStock(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, productRepo := newCartUsecaseForTest()

	cartRepo.On("FindByID", mock.Anything, int64(7)).
		Return(model.CartItem{ID: 7, UserID: 1, ProductID: 10, Quantity: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee", Price: 12.50, Stock: 2}, nil)

	err := uc.UpdateItem(ctx, 1, 7, 5)

	se, ok := err.(*StockError)
	if assert.True(t, ok) {
		assert.Equal(t, CodeInsufficientStock, se.Code)
		assert.Equal(t, int64(2), se.Available)
	}
	cartRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_DeleteItem_Success(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	cartRepo.On("FindByID", mock.Anything, int64(7)).
		Return(model.CartItem{ID: 7, UserID: 1, ProductID: 10, Quantity: 1}, nil)
	cartRepo.On("DeleteByID", mock.Anything, int64(7)).Return(nil)

	err := uc.DeleteItem(ctx, 1, 7)
	assert.NoError(t, err)
	cartRepo.AssertExpectations(t)
}

// =====================
// ViewCart
// =====================

func TestCartUsecase_ViewCart_AutoReducesOverstockedLine(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	lines := []repo.CartLine{
		{ItemID: 7, ProductID: 10, Quantity: 5, CapturedName: "Coffee", CapturedPrice: 12.50,
			ProductExists: true, ProductName: "Coffee", ProductPrice: 12.50, Stock: 2},
	}
	cartRepo.On("ListLinesByUserID", mock.Anything, int64(1)).Return(lines, nil)
	cartRepo.On("UpdateQuantity", mock.Anything, int64(7), int64(2)).Return(nil)

	out, err := uc.ViewCart(ctx, 1)
	assert.NoError(t, err)

	if assert.Len(t, out.Notices, 1) {
		assert.Equal(t, "Coffee", out.Notices[0].Name)
		assert.Equal(t, int64(5), out.Notices[0].FromQuantity)
		assert.Equal(t, int64(2), out.Notices[0].ToQuantity)
	}
	if assert.Len(t, out.Items, 1) {
		assert.Equal(t, int64(2), out.Items[0].Quantity)
		assert.False(t, out.Items[0].ExceedsStock)
	}
	assert.False(t, out.BlockCheckout)
	assert.InDelta(t, 25.00, out.Summary.Subtotal, 0.001)
	cartRepo.AssertExpectations(t)
}

func TestCartUsecase_ViewCart_OutOfStockLineLeftUntouched(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	lines := []repo.CartLine{
		{ItemID: 7, ProductID: 10, Quantity: 3, CapturedName: "Coffee", CapturedPrice: 12.50,
			ProductExists: true, ProductName: "Coffee", ProductPrice: 12.50, Stock: 0},
	}
	cartRepo.On("ListLinesByUserID", mock.Anything, int64(1)).Return(lines, nil)

	out, err := uc.ViewCart(ctx, 1)
	assert.NoError(t, err)

	// 数量はそのまま、フラグとブロックだけ立つ
	cartRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, out.Notices, 0)
	if assert.Len(t, out.Items, 1) {
		assert.Equal(t, int64(3), out.Items[0].Quantity)
		assert.True(t, out.Items[0].IsOutOfStock)
	}
	assert.True(t, out.HasOutOfStock)
	assert.True(t, out.BlockCheckout)
	// 在庫切れは課金対象から外れる
	assert.InDelta(t, 0.0, out.Summary.Subtotal, 0.001)
}

func TestCartUsecase_ViewCart_RemovedProductBlocksCheckout(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	lines := []repo.CartLine{
		{ItemID: 7, ProductID: 10, Quantity: 1, CapturedName: "Old Coffee", CapturedPrice: 12.50,
			ProductExists: false},
	}
	cartRepo.On("ListLinesByUserID", mock.Anything, int64(1)).Return(lines, nil)

	out, err := uc.ViewCart(ctx, 1)
	assert.NoError(t, err)

	if assert.Len(t, out.Items, 1) {
		assert.True(t, out.Items[0].IsRemoved)
		assert.Equal(t, "Old Coffee", out.Items[0].DisplayName)
		assert.Nil(t, out.Items[0].CurrentPrice)
		assert.InDelta(t, 0.0, out.Items[0].EffectivePrice, 0.001)
	}
	assert.Len(t, out.RemovedItems, 1)
	assert.True(t, out.BlockCheckout)
}

func TestCartUsecase_ViewCart_PriceChangeFlag(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	lines := []repo.CartLine{
		{ItemID: 7, ProductID: 10, Quantity: 1, CapturedName: "Coffee", CapturedPrice: 12.50,
			ProductExists: true, ProductName: "Coffee", ProductPrice: 13.00, Stock: 5},
		{ItemID: 8, ProductID: 11, Quantity: 1, CapturedName: "Tea", CapturedPrice: 8.00,
			ProductExists: true, ProductName: "Tea", ProductPrice: 8.00, Stock: 5},
	}
	cartRepo.On("ListLinesByUserID", mock.Anything, int64(1)).Return(lines, nil)

	out, err := uc.ViewCart(ctx, 1)
	assert.NoError(t, err)

	assert.True(t, out.Items[0].PriceChanged)
	assert.False(t, out.Items[1].PriceChanged)
	assert.Len(t, out.PriceChangedItems, 1)
	// 現在価格で計算される
	assert.InDelta(t, 21.00, out.Summary.Subtotal, 0.001)
	assert.False(t, out.BlockCheckout)
}

func TestCartUsecase_ViewCart_SecondViewIsQuiet(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	// 1回目の自動調整が済んだ後の状態
	lines := []repo.CartLine{
		{ItemID: 7, ProductID: 10, Quantity: 2, CapturedName: "Coffee", CapturedPrice: 12.50,
			ProductExists: true, ProductName: "Coffee", ProductPrice: 12.50, Stock: 2},
	}
	cartRepo.On("ListLinesByUserID", mock.Anything, int64(1)).Return(lines, nil)

	out, err := uc.ViewCart(ctx, 1)
	assert.NoError(t, err)

	cartRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, out.Notices, 0)
}

func TestCartUsecase_ViewCart_ShippingFeeUnderThreshold(t *testing.T) {
	ctx := context.Background()
	uc, cartRepo, _ := newCartUsecaseForTest()

	lines := []repo.CartLine{
		{ItemID: 7, ProductID: 10, Quantity: 1, CapturedName: "Coffee", CapturedPrice: 59.99,
			ProductExists: true, ProductName: "Coffee", ProductPrice: 59.99, Stock: 5},
	}
	cartRepo.On("ListLinesByUserID", mock.Anything, int64(1)).Return(lines, nil)

	out, err := uc.ViewCart(ctx, 1)
	assert.NoError(t, err)

	assert.InDelta(t, 5.90, out.Summary.ShippingFee, 0.001)
	assert.InDelta(t, 65.89, out.Summary.Total, 0.001)
}
