package usecase

import (
	"context"
	"errors"

	"trading_backend/internal/feature/market/domain/entity"
)

const (
	// DefaultOutputSize はチャート用ローソク足のデフォルト返却件数です。
	DefaultOutputSize = 120
	// MaxOutputSize はローソク足の最大返却件数です。
	MaxOutputSize = 1000
)

// ErrPriceNotFound は現在価格を解決できない場合に返されます
// （当日のtickも過去のローソクも存在しない）。
var ErrPriceNotFound = errors.New("no price available for stock")

// candlesUsecase はチャート用のローソク足読み取りユースケースです。
type candlesUsecase struct {
	candles CandleRepository
}

// NewCandlesUsecase はcandlesUsecaseの新しいインスタンスを生成します。
func NewCandlesUsecase(candles CandleRepository) *candlesUsecase {
	return &candlesUsecase{candles: candles}
}

// GetCandles は指定銘柄のローソク足を新しい順に取得します。
func (cu *candlesUsecase) GetCandles(ctx context.Context, code string, outputsize int) ([]entity.Candle, error) {
	if outputsize <= 0 || outputsize > MaxOutputSize {
		outputsize = DefaultOutputSize
	}
	return cu.candles.Find(ctx, code, outputsize)
}

// PriceResolver は取引やポートフォリオ評価のための現在価格を解決します。
// ライブスナップショットを優先し、当日のtickがまだ無い場合は
// 直近のローソク終値にフォールバックします。
type PriceResolver struct {
	quotes  QuoteRepository
	candles CandleRepository
}

// NewPriceResolver はPriceResolverの新しいインスタンスを生成します。
func NewPriceResolver(quotes QuoteRepository, candles CandleRepository) *PriceResolver {
	return &PriceResolver{quotes: quotes, candles: candles}
}

// CurrentPrice は1銘柄の現在価格を返します。解決できない場合はErrPriceNotFoundを返します。
func (r *PriceResolver) CurrentPrice(ctx context.Context, code string) (float64, error) {
	if q, err := r.quotes.FindByCode(ctx, code); err == nil && q != nil {
		return q.Price, nil
	}
	close, err := r.candles.LatestClose(ctx, code)
	if err != nil {
		return 0, ErrPriceNotFound
	}
	return close, nil
}
