package cache

import (
	"time"

	"trading_backend/internal/shared/marketday"
)

// TimeUntilNextMarketOpen は次の寄り付き（09:00、取引所ローカル時刻）までの期間を返します。
// 確定済みローソクのキャッシュTTLに使います。翌営業日の寄り付きまでは値が変わらないためです。
func TimeUntilNextMarketOpen() time.Duration {
	now := time.Now().In(marketday.Location)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, marketday.Location)
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}

	return next.Sub(now)
}
