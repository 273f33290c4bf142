// Package entity defines the domain models for the ranking feature.
package entity

import (
	"time"

	"trading_backend/internal/shared/marketday"
)

// Period はランキングの集計期間です。
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// Valid はpが定義済みの期間かどうかを返します。
func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodAll:
		return true
	}
	return false
}

// リーグ区分。全期間リターンの閾値で毎晩再分類されます。
const (
	LeagueBronze   = "BRONZE"
	LeagueSilver   = "SILVER"
	LeagueGold     = "GOLD"
	LeaguePlatinum = "PLATINUM"
	LeagueDiamond  = "DIAMOND"
)

// ClassifyLeague は全期間リターン（パーセント値）からリーグを決定します。
func ClassifyLeague(totalReturn float64) string {
	switch {
	case totalReturn >= 50:
		return LeagueDiamond
	case totalReturn >= 30:
		return LeaguePlatinum
	case totalReturn >= 15:
		return LeagueGold
	case totalReturn >= 5:
		return LeagueSilver
	default:
		return LeagueBronze
	}
}

// RankingEntry は1期間のランキング1行です。期間ごとに全件入れ替えで永続化されます。
type RankingEntry struct {
	ID           uint
	Period       Period
	Rank         int
	UserID       uint
	Nickname     string
	League       string
	PeriodReturn float64 // パーセント値
	TotalAssets  float64
	ComputedAt   time.Time
}

// PortfolioState はランキング計算が読むポートフォリオの射影です。
type PortfolioState struct {
	UserID             uint
	Nickname           string
	League             string
	Cash               float64
	TotalAssets        float64
	TotalReturn        float64
	WeeklyStartAssets  float64
	MonthlyStartAssets float64
}

// PortfolioSnapshot はユーザー×営業日ごとの資産スナップショットです。
// 同日の再実行は上書きします。
type PortfolioSnapshot struct {
	ID           uint
	UserID       uint
	SnapshotDate marketday.Date
	TotalAssets  float64
	Cash         float64
	TotalReturn  float64
}
