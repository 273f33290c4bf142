// Package marketday は取引所ローカル（Asia/Seoul）のカレンダー日付と
// 取引時間の判定を提供します。
//
// ローソク足のバケット分けや期間リセットの判定はすべてこのカレンダー日付で
// 行い、プロセスのウォールクロックタイムゾーンには依存しません。
package marketday

import (
	"fmt"
	"time"
)

// Location is the exchange's local time zone (KST).
var Location = mustLoadLocation()

func mustLoadLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		// tzdataの無いコンテナ環境向けフォールバック（KSTはDSTなしの固定オフセット）
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Date は取引所ローカルカレンダーの1日を表します。
// タイムスタンプ（瞬間）とは別の型として扱い、タイムゾーン起因の
// バケット分けバグを防ぎます。比較可能（==）です。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime は任意の瞬間を取引所ローカルのカレンダー日付に変換します。
func FromTime(t time.Time) Date {
	y, m, d := t.In(Location).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today は現在の取引所ローカル日付を返します。
func Today() Date {
	return FromTime(time.Now())
}

// Parse は "2006-01-02" 形式の文字列をDateに変換します。
func Parse(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, Location)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// String は "2006-01-02" 形式の文字列を返します。DBにはこの形式で保存されます。
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time はこの日付の00:00（取引所ローカル）を表す瞬間を返します。
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, Location)
}

// AddDays はn日後（負数ならn日前）の日付を返します。
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Before はdがotherより前の日付かを返します。
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// IsZero はゼロ値かを返します。
func (d Date) IsZero() bool {
	return d == Date{}
}

// Weekday はこの日付の曜日を返します。
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsMonday は週次リセットの判定に使います。
func (d Date) IsMonday() bool {
	return d.Weekday() == time.Monday
}

// IsFirstOfMonth は月次リセットの判定に使います。
func (d Date) IsFirstOfMonth() bool {
	return d.Day == 1
}

// IsWeekend は土日かを返します。
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// 取引時間（KST）。場中の判定にのみ使用します。
const (
	openHour    = 9
	closeHour   = 15
	closeMinute = 30
)

// IsMarketOpen は指定の瞬間がKRXの取引時間内（平日09:00〜15:30 KST）かを返します。
func IsMarketOpen(t time.Time) bool {
	lt := t.In(Location)
	if d := FromTime(lt); d.IsWeekend() {
		return false
	}
	mins := lt.Hour()*60 + lt.Minute()
	return mins >= openHour*60 && mins <= closeHour*60+closeMinute
}
