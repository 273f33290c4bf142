// Package handler はmarketフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trading_backend/internal/api"
	"trading_backend/internal/feature/market/domain/entity"
)

// CandlesUsecase はローソク足読み取りのユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetCandles(ctx context.Context, code string, outputsize int) ([]entity.Candle, error)
}

// StocksUsecase は追跡銘柄一覧のユースケースインターフェースを定義します。
type StocksUsecase interface {
	ListActive(ctx context.Context) ([]entity.Stock, error)
}

// MarketHandler は銘柄・ローソク足のHTTPリクエストを処理します。
type MarketHandler struct {
	candles CandlesUsecase
	stocks  StocksUsecase
}

// NewMarketHandler は指定されたusecaseでMarketHandlerの新しいインスタンスを生成します。
func NewMarketHandler(candles CandlesUsecase, stocks StocksUsecase) *MarketHandler {
	return &MarketHandler{candles: candles, stocks: stocks}
}

// GetCandlesHandler は銘柄コードを受け取り、ローソク足データを新しい順のJSONで返します。
//
// エンドポイント例:
// GET /candles/005930?outputsize=120
func (h *MarketHandler) GetCandlesHandler(c *gin.Context) {
	code := c.Param("code")
	outputsizeStr := c.DefaultQuery("outputsize", "120")
	outputsize, _ := strconv.Atoi(outputsizeStr)

	candles, err := h.candles.GetCandles(c.Request.Context(), code, outputsize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load candles"})
		return
	}

	out := make([]api.CandleResponse, 0, len(candles))
	for _, x := range candles {
		out = append(out, api.CandleResponse{
			Date:   x.TradingDate.String(),
			Open:   x.Open,
			High:   x.High,
			Low:    x.Low,
			Close:  x.Close,
			Volume: x.Volume,
		})
	}
	c.JSON(http.StatusOK, out)
}

// StockResponse は追跡銘柄1件分のレスポンスです。
type StockResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
}

// GetStocksHandler は追跡対象の銘柄一覧を返します。
//
// GET /stocks
func (h *MarketHandler) GetStocksHandler(c *gin.Context) {
	stocks, err := h.stocks.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load stocks"})
		return
	}

	out := make([]StockResponse, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, StockResponse{Code: s.Code, Name: s.Name, Market: s.Market})
	}
	c.JSON(http.StatusOK, out)
}
