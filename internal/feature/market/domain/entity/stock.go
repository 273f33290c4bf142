package entity

import "time"

// Stock は追跡対象の銘柄です。Codeは不変の識別子、表示系フィールドは可変です。
type Stock struct {
	ID        uint
	Code      string // 銘柄コード（例: "005930"）
	Name      string
	Market    string // KOSPI | KOSDAQ
	IsActive  bool
	SortKey   int
	UpdatedAt time.Time
}
