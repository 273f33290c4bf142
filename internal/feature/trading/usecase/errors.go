// Package usecase implements the business logic for the trading feature.
package usecase

import "errors"

// 注文の検証エラー。台帳の境界を越えて投げられることはなく、
// 構造化された結果として呼び出し元に返されます。
var (
	// ErrInvalidQuantity is returned when an order quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInsufficientFunds is returned when a buy order exceeds the available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientQuantity is returned when a sell order exceeds the held quantity.
	ErrInsufficientQuantity = errors.New("insufficient holding quantity")

	// ErrStockNotOwned is returned when selling a stock the user does not hold.
	ErrStockNotOwned = errors.New("stock not owned")

	// ErrPortfolioNotFound is returned when no portfolio exists for the user.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrHoldingNotFound is returned by repositories when a holding row is absent.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrPriceNotFound is returned when no current price can be resolved for the stock.
	ErrPriceNotFound = errors.New("no price available for stock")

	// ErrPortfolioExists is returned when creating a portfolio for a user that already has one.
	ErrPortfolioExists = errors.New("portfolio already exists")
)
