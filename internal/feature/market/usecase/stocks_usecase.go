package usecase

import (
	"context"

	"trading_backend/internal/feature/market/domain/entity"
)

// stocksUsecase は追跡銘柄一覧の読み取りユースケースです。
type stocksUsecase struct {
	stocks StockRepository
}

// NewStocksUsecase はstocksUsecaseの新しいインスタンスを生成します。
func NewStocksUsecase(stocks StockRepository) *stocksUsecase {
	return &stocksUsecase{stocks: stocks}
}

// ListActive は有効な追跡銘柄を表示順で返します。
func (u *stocksUsecase) ListActive(ctx context.Context) ([]entity.Stock, error) {
	return u.stocks.ListActive(ctx)
}
