// Package handler は外部スケジューラが叩くトリガーエンドポイントを提供します。
//
// 各エンドポイントは1回分のバッチを実行して件数を返すだけの冪等な操作で、
// 実際の時刻管理（5分間隔・場の終了後・深夜0時など）は外部の呼び出し側が担います。
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"trading_backend/internal/api"
	marketuc "trading_backend/internal/feature/market/usecase"
	rankinguc "trading_backend/internal/feature/ranking/usecase"
)

// Collector は価格収集バッチのユースケースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type Collector interface {
	RunIntradayUpdate(ctx context.Context) (marketuc.IntradayResult, error)
	RunDailyCandleCreation(ctx context.Context) (int, error)
}

// Ranker はスナップショット・ランキング・深夜バッチのユースケースを定義します。
type Ranker interface {
	RunDailySnapshot(ctx context.Context) (*rankinguc.SnapshotResult, error)
	RunRankingUpdate(ctx context.Context) (int, error)
	RunMidnightTasks(ctx context.Context) (*rankinguc.MidnightResult, error)
}

// CronHandler はトリガーエンドポイントのHTTPリクエストを処理します。
type CronHandler struct {
	collector Collector
	ranker    Ranker
}

// NewCronHandler は指定されたusecaseでCronHandlerの新しいインスタンスを生成します。
func NewCronHandler(collector Collector, ranker Ranker) *CronHandler {
	return &CronHandler{collector: collector, ranker: ranker}
}

// Intraday は全追跡銘柄のライブ価格を更新し、当日ローソクにtickを畳み込みます。
// 取引時間外の呼び出しは何もせずmarket_closedを返します。
//
// POST /cron/intraday
func (h *CronHandler) Intraday(c *gin.Context) {
	result, err := h.collector.RunIntradayUpdate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.CronError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, api.CronOK(result))
}

// DailyCandle は当日のライブ値幅を確定ローソクとして永続化します。
//
// POST /cron/daily-candle
func (h *CronHandler) DailyCandle(c *gin.Context) {
	n, err := h.collector.RunDailyCandleCreation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.CronError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, api.CronOK(gin.H{"finalized": n}))
}

// Snapshot は全ポートフォリオの当日資産スナップショットを記録します。
//
// POST /cron/snapshot
func (h *CronHandler) Snapshot(c *gin.Context) {
	result, err := h.ranker.RunDailySnapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.CronError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, api.CronOK(result))
}

// Ranking は全期間のランキングを再計算します。
//
// POST /cron/ranking
func (h *CronHandler) Ranking(c *gin.Context) {
	n, err := h.ranker.RunRankingUpdate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.CronError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, api.CronOK(gin.H{"ranked": n}))
}

// Midnight は深夜バッチ（ベースライン再設定・リーグ再分類・ランキング再計算）を実行します。
// 同じ営業日の2回目以降の呼び出しはalready_ran=trueを返すだけで何もしません。
//
// POST /cron/midnight
func (h *CronHandler) Midnight(c *gin.Context) {
	result, err := h.ranker.RunMidnightTasks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.CronError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, api.CronOK(result))
}
