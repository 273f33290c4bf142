package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"trading_backend/internal/app/di"
	"trading_backend/internal/app/router"
	marketadapters "trading_backend/internal/feature/market/adapters"
	markethandler "trading_backend/internal/feature/market/transport/handler"
	marketusecase "trading_backend/internal/feature/market/usecase"
	rankingadapters "trading_backend/internal/feature/ranking/adapters"
	rankinghandler "trading_backend/internal/feature/ranking/transport/handler"
	rankingusecase "trading_backend/internal/feature/ranking/usecase"
	schedulehandler "trading_backend/internal/feature/schedule/transport/handler"
	tradingadapters "trading_backend/internal/feature/trading/adapters"
	tradinghandler "trading_backend/internal/feature/trading/transport/handler"
	tradingusecase "trading_backend/internal/feature/trading/usecase"
	infradb "trading_backend/internal/platform/db"
	infraredis "trading_backend/internal/platform/redis"
)

func main() {
	// .env はローカル開発用。無くてもエラーにしない
	_ = godotenv.Load()

	// db
	db := infradb.OpenDB()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
		rdb = nil
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// 外部証券API クライアント
	quoteClient := di.NewQuoteClient()

	// Repository
	stockRepo := marketadapters.NewStockRepository(db)
	quoteRepo := marketadapters.NewQuoteRepository(db)
	candleRepo := di.NewCandleRepository(rdb, db)
	portfolioRepo := tradingadapters.NewPortfolioRepository(db)
	txRepo := tradingadapters.NewTransactionRepository(db)
	rankingRepo := rankingadapters.NewRankingRepository(db)
	provider := marketadapters.NewKISProvider(quoteClient)

	// Usecase
	candlesUC := marketusecase.NewCandlesUsecase(candleRepo)
	stocksUC := marketusecase.NewStocksUsecase(stockRepo)
	collectorUC := marketusecase.NewCollectorUsecase(stockRepo, quoteRepo, candleRepo, provider)
	prices := marketusecase.NewPriceResolver(quoteRepo, candleRepo)
	tradingUC := tradingusecase.NewTradingUsecase(portfolioRepo, txRepo, txRepo, prices)
	rankingUC := rankingusecase.NewRankingUsecase(rankingRepo, rankingRepo, rankingRepo, rankingRepo)

	// Handler
	marketH := markethandler.NewMarketHandler(candlesUC, stocksUC)
	tradingH := tradinghandler.NewTradingHandler(tradingUC)
	rankingH := rankinghandler.NewRankingHandler(rankingUC)
	cronH := schedulehandler.NewCronHandler(collectorUC, rankingUC)

	// ルータ生成
	router := router.NewRouter(marketH, tradingH, rankingH, cronH)

	// 秘密情報の未設定は起動時に警告しておく
	if os.Getenv("JWT_SECRET") == "" {
		log.Println("[WARN] JWT_SECRET is not set. Set a strong secret in production.")
	}
	if os.Getenv("CRON_SECRET") == "" {
		log.Println("[WARN] CRON_SECRET is not set. Job trigger endpoints will refuse requests.")
	}

	if err := router.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
