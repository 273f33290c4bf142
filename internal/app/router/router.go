package router

import (
	markethandler "trading_backend/internal/feature/market/transport/handler"
	rankinghandler "trading_backend/internal/feature/ranking/transport/handler"
	schedulehandler "trading_backend/internal/feature/schedule/transport/handler"
	tradinghandler "trading_backend/internal/feature/trading/transport/handler"
	"trading_backend/internal/platform/cronauth"
	"trading_backend/internal/platform/http/handler"
	jwtmw "trading_backend/internal/platform/jwt"

	"github.com/gin-gonic/gin"
)

func NewRouter(market *markethandler.MarketHandler, trading *tradinghandler.TradingHandler,
	ranking *rankinghandler.RankingHandler, cron *schedulehandler.CronHandler) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)

	// 認証必須のルート
	// jwtmw.AuthRequired() ミドルウェアを適用
	// → リクエストヘッダーに JWT が必要になる
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired())
	{
		auth.GET("/candles/:code", market.GetCandlesHandler)
		auth.GET("/stocks", market.GetStocksHandler)
		auth.GET("/rankings/:period", ranking.GetRankingHandler)
		auth.POST("/trades/buy", trading.Buy)
		auth.POST("/trades/sell", trading.Sell)
		auth.GET("/portfolio", trading.GetPortfolio)
		auth.POST("/portfolio", trading.CreatePortfolio)
		auth.GET("/transactions", trading.ListTransactions)
	}

	// ジョブトリガー（スケジューラからのみ叩かれる）
	// Authorization: Bearer <CRON_SECRET> を要求する
	jobs := r.Group("/cron")
	jobs.Use(cronauth.SecretRequired())
	{
		jobs.POST("/intraday", cron.Intraday)
		jobs.POST("/daily-candle", cron.DailyCandle)
		jobs.POST("/snapshot", cron.Snapshot)
		jobs.POST("/ranking", cron.Ranking)
		jobs.POST("/midnight", cron.Midnight)
	}

	return r
}
