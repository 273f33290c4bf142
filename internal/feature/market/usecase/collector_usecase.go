// Package usecase は株価収集とローソク足操作のビジネスロジックを実装します。
package usecase

import (
	"context"
	"log/slog"
	"time"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/shared/marketday"
)

// CandleRepository はローソク足の永続化を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CandleRepository interface {
	// UpsertTick は (code, date) のローソクにtickを畳み込みます。
	// ローソクが無ければ open=high=low=close=price で生成します。
	// 同一tickの再適用は状態を変えません（冪等）。累積出来高が小さい
	// 順序乱れのtickはcloseを巻き戻さず、確定済みの日には作用しません。
	UpsertTick(ctx context.Context, code string, date marketday.Date, price float64, cumVolume int64) error

	// Backfill は確定済みバーを挿入します。既存のキーにはforce指定時のみ上書きし、
	// 挿入または上書きが行われた場合にtrueを返します。
	Backfill(ctx context.Context, bar entity.Candle, force bool) (bool, error)

	// Exists は (code, date) のローソクが存在するかを返します。
	Exists(ctx context.Context, code string, date marketday.Date) (bool, error)

	// Find は指定銘柄のローソクを新しい順に最大limit件返します。
	Find(ctx context.Context, code string, limit int) ([]entity.Candle, error)

	// LatestClose は最新の終値を返します。データが無い場合はエラーを返します。
	LatestClose(ctx context.Context, code string) (float64, error)
}

// QuoteRepository はライブスナップショットの永続化を抽象化します。
type QuoteRepository interface {
	Upsert(ctx context.Context, quote entity.LiveQuote) error
	FindByCode(ctx context.Context, code string) (*entity.LiveQuote, error)
	// ListUpdatedOn は指定取引日内に更新されたスナップショットを返します。
	ListUpdatedOn(ctx context.Context, date marketday.Date) ([]entity.LiveQuote, error)
}

// StockRepository は追跡銘柄リストの読み取りを抽象化します。
type StockRepository interface {
	ListActive(ctx context.Context) ([]entity.Stock, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
}

// ProviderQuote は外部プロバイダーから取得した現在値スナップショットです。
type ProviderQuote struct {
	Price  float64
	Open   float64
	High   float64
	Low    float64
	Volume int64
}

// QuoteProvider は外部の相場データプロバイダーを抽象化します。
// スロットルとトークン管理は実装側の責務です。
type QuoteProvider interface {
	GetQuote(ctx context.Context, code string) (ProviderQuote, error)
	// GetDailySeries は確定済み日足を新しい順に返します。StockCodeは設定済みです。
	GetDailySeries(ctx context.Context, code string) ([]entity.Candle, error)
}

// IntradayResult は場中更新1回分の集計結果です。
type IntradayResult struct {
	MarketClosed bool `json:"market_closed"`
	Updated      int  `json:"updated"`
	Failed       int  `json:"failed"`
}

// CollectorUsecase は外部プロバイダーをポーリングし、ライブスナップショットの更新と
// 当日ローソクへの畳み込みを行うユースケースです。
type CollectorUsecase struct {
	stocks   StockRepository
	quotes   QuoteRepository
	candles  CandleRepository
	provider QuoteProvider
	now      func() time.Time
}

// NewCollectorUsecase は新しいCollectorUsecaseを作成します。
func NewCollectorUsecase(stocks StockRepository, quotes QuoteRepository, candles CandleRepository, provider QuoteProvider) *CollectorUsecase {
	return &CollectorUsecase{
		stocks:   stocks,
		quotes:   quotes,
		candles:  candles,
		provider: provider,
		now:      time.Now,
	}
}

// RunIntradayUpdate は全追跡銘柄の現在値を取得し、スナップショット更新と
// 当日ローソクへの畳み込みを行います。
//
// 1銘柄の失敗でバッチは止めず、失敗数として集計して続行します。
// 取引時間外の呼び出しはエラーではなく「市場クローズ」を報告するno-opです。
func (u *CollectorUsecase) RunIntradayUpdate(ctx context.Context) (IntradayResult, error) {
	if !marketday.IsMarketOpen(u.now()) {
		return IntradayResult{MarketClosed: true}, nil
	}

	codes, err := u.stocks.ListActiveCodes(ctx)
	if err != nil {
		return IntradayResult{}, err
	}

	today := marketday.FromTime(u.now())
	var res IntradayResult
	for _, code := range codes {
		if err := u.updateOne(ctx, code, today); err != nil {
			slog.Error("intraday update failed", "code", code, "error", err)
			res.Failed++
			continue
		}
		res.Updated++
	}
	return res, nil
}

// updateOne は1銘柄分のtickを取り込みます。
func (u *CollectorUsecase) updateOne(ctx context.Context, code string, today marketday.Date) error {
	q, err := u.provider.GetQuote(ctx, code)
	if err != nil {
		return err
	}

	quote := entity.LiveQuote{
		StockCode: code,
		Price:     q.Price,
		Open:      q.Open,
		High:      q.High,
		Low:       q.Low,
		Volume:    q.Volume,
		UpdatedAt: u.now(),
	}
	if err := u.quotes.Upsert(ctx, quote); err != nil {
		return err
	}
	return u.candles.UpsertTick(ctx, code, today, q.Price, q.Volume)
}

// RunDailyCandleCreation は当日のライブスナップショットの日中レンジを
// 確定済みローソクとして書き込み、クローズ済みにマークします。
// 大引け後に1回呼ばれることを想定しています。
func (u *CollectorUsecase) RunDailyCandleCreation(ctx context.Context) (int, error) {
	today := marketday.FromTime(u.now())
	quotes, err := u.quotes.ListUpdatedOn(ctx, today)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, lq := range quotes {
		bar := entity.Candle{
			StockCode:   lq.StockCode,
			TradingDate: today,
			Open:        lq.Open,
			High:        lq.High,
			Low:         lq.Low,
			Close:       lq.Price,
			Volume:      lq.Volume,
			IsClosed:    true,
		}
		if _, err := u.candles.Backfill(ctx, bar, true); err != nil {
			slog.Error("daily candle creation failed", "code", lq.StockCode, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// BackfillDate は指定した過去の取引日についてローソクの欠損を修復します。
// 既にローソクがある銘柄には一切触れません（forceなしのバックフィル）。
// 更新した銘柄数を返します。
func (u *CollectorUsecase) BackfillDate(ctx context.Context, date marketday.Date) (int, error) {
	codes, err := u.stocks.ListActiveCodes(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, code := range codes {
		exists, err := u.candles.Exists(ctx, code, date)
		if err != nil {
			return count, err
		}
		if exists {
			continue
		}

		bars, err := u.provider.GetDailySeries(ctx, code)
		if err != nil {
			slog.Error("backfill series fetch failed", "code", code, "error", err)
			continue
		}

		for _, bar := range bars {
			if bar.TradingDate != date {
				continue
			}
			bar.IsClosed = true
			inserted, err := u.candles.Backfill(ctx, bar, false)
			if err != nil {
				slog.Error("backfill insert failed", "code", code, "date", date.String(), "error", err)
				break
			}
			if inserted {
				count++
			}
			break
		}
	}
	return count, nil
}
