package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	marketadapters "trading_backend/internal/feature/market/adapters"
	marketusecase "trading_backend/internal/feature/market/usecase"
	"trading_backend/internal/platform/cache"
)

// NewCandleRepository はローソク足リポジトリを組み立てます。
// Redisが利用可能な場合は読み取りをキャッシュし、
// 利用できない場合はMySQLのみで動作します。
func NewCandleRepository(rdb *redis.Client, db *gorm.DB) marketusecase.CandleRepository {
	repo := marketadapters.NewCandleRepository(db)
	if rdb == nil {
		return repo
	}

	// 翌営業日の寄り付きまでキャッシュを保持する
	ttl := cache.TimeUntilNextMarketOpen()
	return cache.NewCachingCandleRepository(rdb, ttl, repo, "candles")
}
