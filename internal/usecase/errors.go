package usecase

import (
	"errors"
	"fmt"
	"strings"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 呼び出し側が文言を組み立てるためのエラーコード。
// 本コアは表示用の文字列を作らない。
type ErrorCode string

const (
	CodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
	CodeProductRemoved    ErrorCode = "PRODUCT_REMOVED"
	CodeEmptyCart         ErrorCode = "EMPTY_CART"
	CodeRemovedItems      ErrorCode = "REMOVED_ITEMS"
	CodeStockIssues       ErrorCode = "STOCK_ISSUES"
)

// 在庫系の失敗。商品名と残数を必ず持たせる。
type StockError struct {
	Code        ErrorCode
	ProductName string
	Available   int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: %s (available=%d)", e.Code, e.ProductName, e.Available)
}

func NewInsufficientStockError(productName string, available int64) error {
	return &StockError{Code: CodeInsufficientStock, ProductName: productName, Available: available}
}

func NewProductRemovedError(productName string) error {
	return &StockError{Code: CodeProductRemoved, ProductName: productName}
}

// チェックアウトの却下。対象の商品名を持つ。
type CheckoutError struct {
	Code  ErrorCode
	Names []string
}

func (e *CheckoutError) Error() string {
	if len(e.Names) == 0 {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, strings.Join(e.Names, ", "))
}

func NewCheckoutError(code ErrorCode, names []string) error {
	return &CheckoutError{Code: code, Names: names}
}
