package adapters

import (
	"context"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/feature/market/usecase"
	"trading_backend/internal/platform/externalapi/kis"
)

// kisProvider はkis.ClientをQuoteProviderインターフェースに適合させます。
type kisProvider struct {
	client *kis.Client
}

var _ usecase.QuoteProvider = (*kisProvider)(nil)

// NewKISProvider は指定されたクライアントでkisProviderの新しいインスタンスを生成します。
func NewKISProvider(client *kis.Client) *kisProvider {
	return &kisProvider{client: client}
}

func (p *kisProvider) GetQuote(ctx context.Context, code string) (usecase.ProviderQuote, error) {
	q, err := p.client.GetQuote(ctx, code)
	if err != nil {
		return usecase.ProviderQuote{}, err
	}
	return usecase.ProviderQuote{
		Price:  q.Price,
		Open:   q.Open,
		High:   q.High,
		Low:    q.Low,
		Volume: q.Volume,
	}, nil
}

func (p *kisProvider) GetDailySeries(ctx context.Context, code string) ([]entity.Candle, error) {
	bars, err := p.client.GetDailySeries(ctx, code)
	if err != nil {
		return nil, err
	}

	out := make([]entity.Candle, 0, len(bars))
	for _, b := range bars {
		out = append(out, entity.Candle{
			StockCode:   code,
			TradingDate: b.Date,
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
			IsClosed:    true,
		})
	}
	return out, nil
}
