// Package entity defines the domain models for the trading feature.
package entity

import "time"

// Portfolio は1ユーザーの仮想資産状態です。
//
// 不変条件: Cash ≥ 0。保有数量が0になったHoldingは保持せず削除されます。
// TotalAssets = Cash + Σ(数量×現在価格)。TotalReturn/期間リターンはパーセント値です。
type Portfolio struct {
	ID                 uint
	UserID             uint
	Nickname           string
	Cash               float64
	InitialCapital     float64
	TotalAssets        float64
	TotalReturn        float64
	WeeklyStartAssets  float64 // 週次ランキングのベースライン（月曜00:00に再設定）
	MonthlyStartAssets float64 // 月次ランキングのベースライン（毎月1日00:00に再設定）
	League             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Holding は1銘柄の保有ポジションです。
type Holding struct {
	ID          uint
	PortfolioID uint
	StockCode   string
	Quantity    int64
	AvgCost     float64 // 平均取得単価
}

// TransactionType は取引種別です。
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction は約定1件の不変レコードです。コアが変更・削除することはありません。
type Transaction struct {
	ID        uint
	UserID    uint
	Type      TransactionType
	StockCode string
	Quantity  int64
	Price     float64
	Amount    float64 // Price × Quantity
	Note      string
	CreatedAt time.Time
}

// CapitalHistory は資本に影響するイベント（初期入金・調整）の不変台帳です。
type CapitalHistory struct {
	ID        uint
	UserID    uint
	Amount    float64
	NewTotal  float64
	Reason    string
	CreatedAt time.Time
}
