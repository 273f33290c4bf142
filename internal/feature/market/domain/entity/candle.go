// Package entity defines the domain models for the market feature.
package entity

import (
	"time"

	"trading_backend/internal/shared/marketday"
)

// Candle represents one day-bucketed OHLCV record for a stock.
//
// 当日分（IsClosed=false）はtickの到着ごとに畳み込まれる可変の累積状態で、
// 取引日が確定した後（IsClosed=true）は不変の履歴になります。
// 不変条件: Low ≤ Open ≤ High, Low ≤ Close ≤ High。
type Candle struct {
	StockCode   string
	TradingDate marketday.Date
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64 // プロバイダーの当日累積出来高（加算ではなく上書き）
	IsClosed    bool
}

// LiveQuote は1銘柄の現在値スナップショットです。tickごとに上書きされ、履歴は持ちません。
type LiveQuote struct {
	StockCode string
	Price     float64
	Open      float64 // 当日始値
	High      float64 // 当日高値
	Low       float64 // 当日安値
	Volume    int64   // 当日累積出来高
	UpdatedAt time.Time
}
