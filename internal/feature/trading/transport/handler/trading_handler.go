// Package handler はtradingフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trading_backend/internal/api"
	"trading_backend/internal/feature/trading/domain/entity"
	"trading_backend/internal/feature/trading/transport/http/dto"
	"trading_backend/internal/feature/trading/usecase"
	jwtmw "trading_backend/internal/platform/jwt"
)

// TradingUsecase は売買注文とポートフォリオ操作のユースケースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type TradingUsecase interface {
	ExecuteBuy(ctx context.Context, userID uint, stockCode string, quantity int64, note string) (*entity.Transaction, error)
	ExecuteSell(ctx context.Context, userID uint, stockCode string, quantity int64, note string) (*entity.Transaction, error)
	GetPortfolio(ctx context.Context, userID uint) (*entity.Portfolio, []entity.Holding, error)
	ListTransactions(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error)
	CreatePortfolio(ctx context.Context, userID uint, nickname string, initialCapital float64) (*entity.Portfolio, error)
}

// TradingHandler は売買注文のHTTPリクエストを処理します。
type TradingHandler struct {
	trading TradingUsecase
}

// NewTradingHandler は指定されたusecaseでTradingHandlerの新しいインスタンスを生成します。
func NewTradingHandler(trading TradingUsecase) *TradingHandler {
	return &TradingHandler{trading: trading}
}

// userID はJWTミドルウェアがコンテキストに設定した認証済みユーザーIDを取り出します。
func userID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(jwtmw.ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// statusForTradeError は注文拒否の種別をHTTPステータスに対応付けます。
func statusForTradeError(err error) (int, bool) {
	switch {
	case errors.Is(err, usecase.ErrInvalidQuantity):
		return http.StatusBadRequest, true
	case errors.Is(err, usecase.ErrInsufficientFunds),
		errors.Is(err, usecase.ErrInsufficientQuantity),
		errors.Is(err, usecase.ErrStockNotOwned):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, usecase.ErrPortfolioNotFound),
		errors.Is(err, usecase.ErrPriceNotFound):
		return http.StatusNotFound, true
	}
	return 0, false
}

// Buy は買い注文APIエンドポイントを処理します。
//
// POST /trades/buy
func (h *TradingHandler) Buy(c *gin.Context) {
	h.trade(c, h.trading.ExecuteBuy)
}

// Sell は売り注文APIエンドポイントを処理します。
//
// POST /trades/sell
func (h *TradingHandler) Sell(c *gin.Context) {
	h.trade(c, h.trading.ExecuteSell)
}

func (h *TradingHandler) trade(c *gin.Context, exec func(ctx context.Context, userID uint, stockCode string, quantity int64, note string) (*entity.Transaction, error)) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "authentication required"})
		return
	}

	var req dto.TradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	tx, err := exec(c.Request.Context(), uid, req.StockCode, req.Quantity, req.Note)
	if err != nil {
		if status, ok := statusForTradeError(err); ok {
			c.JSON(status, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "order failed"})
		return
	}
	c.JSON(http.StatusCreated, toTransactionResponse(*tx))
}

// TransactionResponse は約定1件分のレスポンスです。
type TransactionResponse struct {
	ID        uint    `json:"id"`
	Type      string  `json:"type"`
	StockCode string  `json:"stock_code"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toTransactionResponse(tx entity.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Type:      string(tx.Type),
		StockCode: tx.StockCode,
		Quantity:  tx.Quantity,
		Price:     tx.Price,
		Amount:    tx.Amount,
		Note:      tx.Note,
		CreatedAt: tx.CreatedAt.Format(time.RFC3339),
	}
}

// HoldingResponse は保有1銘柄分のレスポンスです。
type HoldingResponse struct {
	StockCode string  `json:"stock_code"`
	Quantity  int64   `json:"quantity"`
	AvgCost   float64 `json:"avg_cost"`
}

// PortfolioResponse はポートフォリオと保有一覧のレスポンスです。
type PortfolioResponse struct {
	Nickname    string            `json:"nickname"`
	Cash        float64           `json:"cash"`
	TotalAssets float64           `json:"total_assets"`
	TotalReturn float64           `json:"total_return"`
	League      string            `json:"league"`
	Holdings    []HoldingResponse `json:"holdings"`
}

func toPortfolioResponse(p *entity.Portfolio, holdings []entity.Holding) PortfolioResponse {
	out := PortfolioResponse{
		Nickname:    p.Nickname,
		Cash:        p.Cash,
		TotalAssets: p.TotalAssets,
		TotalReturn: p.TotalReturn,
		League:      p.League,
		Holdings:    make([]HoldingResponse, 0, len(holdings)),
	}
	for _, h := range holdings {
		out.Holdings = append(out.Holdings, HoldingResponse{
			StockCode: h.StockCode,
			Quantity:  h.Quantity,
			AvgCost:   h.AvgCost,
		})
	}
	return out
}

// GetPortfolio は認証済みユーザーのポートフォリオを返します。
//
// GET /portfolio
func (h *TradingHandler) GetPortfolio(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "authentication required"})
		return
	}

	p, holdings, err := h.trading.GetPortfolio(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, usecase.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load portfolio"})
		return
	}
	c.JSON(http.StatusOK, toPortfolioResponse(p, holdings))
}

// CreatePortfolio は初期資本付きでポートフォリオを作成します。
//
// POST /portfolio
func (h *TradingHandler) CreatePortfolio(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "authentication required"})
		return
	}

	var req dto.CreatePortfolioReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	p, err := h.trading.CreatePortfolio(c.Request.Context(), uid, req.Nickname, req.InitialCapital)
	if err != nil {
		if errors.Is(err, usecase.ErrPortfolioExists) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "portfolio already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create portfolio"})
		return
	}
	c.JSON(http.StatusCreated, toPortfolioResponse(p, nil))
}

// ListTransactions は認証済みユーザーの約定履歴を新しい順に返します。
//
// GET /transactions?limit=50
func (h *TradingHandler) ListTransactions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "authentication required"})
		return
	}

	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	txs, err := h.trading.ListTransactions(c.Request.Context(), uid, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	c.JSON(http.StatusOK, out)
}
