// Package handler はrankingフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trading_backend/internal/api"
	"trading_backend/internal/feature/ranking/domain/entity"
	"trading_backend/internal/feature/ranking/usecase"
)

// RankingUsecase はランキング読み取りのユースケースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type RankingUsecase interface {
	GetRanking(ctx context.Context, period entity.Period, limit int) ([]entity.RankingEntry, error)
}

// RankingHandler はランキングのHTTPリクエストを処理します。
type RankingHandler struct {
	ranking RankingUsecase
}

// NewRankingHandler は指定されたusecaseでRankingHandlerの新しいインスタンスを生成します。
func NewRankingHandler(ranking RankingUsecase) *RankingHandler {
	return &RankingHandler{ranking: ranking}
}

// RankingEntryResponse はランキング1行分のレスポンスです。
type RankingEntryResponse struct {
	Rank         int     `json:"rank"`
	Nickname     string  `json:"nickname"`
	League       string  `json:"league"`
	PeriodReturn float64 `json:"period_return"`
	TotalAssets  float64 `json:"total_assets"`
}

// GetRankingHandler は指定期間のランキングを順位昇順のJSONで返します。
//
// エンドポイント例:
// GET /rankings/weekly?limit=100
func (h *RankingHandler) GetRankingHandler(c *gin.Context) {
	period := entity.Period(c.Param("period"))
	limitStr := c.DefaultQuery("limit", "100")
	limit, _ := strconv.Atoi(limitStr)

	entries, err := h.ranking.GetRanking(c.Request.Context(), period, limit)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unknown ranking period"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load ranking"})
		return
	}

	out := make([]RankingEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RankingEntryResponse{
			Rank:         e.Rank,
			Nickname:     e.Nickname,
			League:       e.League,
			PeriodReturn: e.PeriodReturn,
			TotalAssets:  e.TotalAssets,
		})
	}
	c.JSON(http.StatusOK, out)
}
