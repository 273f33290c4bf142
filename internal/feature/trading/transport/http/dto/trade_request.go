// Package dto はtradingフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// TradeReq は/trades/buyと/trades/sellのリクエストボディを表します。
// 数量の下限バリデーションはユースケース側でも行われます。
type TradeReq struct {
	StockCode string `json:"stock_code" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Note      string `json:"note"`
}

// CreatePortfolioReq は/portfolioのリクエストボディを表します。
type CreatePortfolioReq struct {
	Nickname       string  `json:"nickname" binding:"required,max=64"`
	InitialCapital float64 `json:"initial_capital" binding:"required,gt=0"`
}
