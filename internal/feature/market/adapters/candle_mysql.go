// Package adapters はmarketフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/feature/market/usecase"
	"trading_backend/internal/shared/marketday"
)

type candleMySQL struct {
	db *gorm.DB
}

var _ usecase.CandleRepository = (*candleMySQL)(nil)

// NewCandleRepository は指定されたDB接続でcandleMySQLの新しいインスタンスを生成します。
func NewCandleRepository(db *gorm.DB) *candleMySQL {
	return &candleMySQL{db: db}
}

// CandleModel は (stock_code, trading_date) をユニークキーとする日足レコードです。
// trading_date は取引所ローカルのカレンダー日付を "2006-01-02" 形式で保持します。
type CandleModel struct {
	ID          uint   `gorm:"primaryKey"`
	StockCode   string `gorm:"size:32;not null;uniqueIndex:candle_code_date,priority:1"`
	TradingDate string `gorm:"size:10;not null;uniqueIndex:candle_code_date,priority:2"`

	Open     float64 `gorm:"not null"`
	High     float64 `gorm:"not null"`
	Low      float64 `gorm:"not null"`
	Close    float64 `gorm:"not null"`
	Volume   int64   `gorm:"not null;default:0"`
	IsClosed bool    `gorm:"not null;default:false"`

	UpdatedAt time.Time
}

func (CandleModel) TableName() string {
	return "candles"
}

func toCandleModel(e entity.Candle) CandleModel {
	return CandleModel{
		StockCode:   e.StockCode,
		TradingDate: e.TradingDate.String(),
		Open:        e.Open,
		High:        e.High,
		Low:         e.Low,
		Close:       e.Close,
		Volume:      e.Volume,
		IsClosed:    e.IsClosed,
	}
}

func toCandleEntity(m CandleModel) (entity.Candle, error) {
	d, err := marketday.Parse(m.TradingDate)
	if err != nil {
		return entity.Candle{}, err
	}
	return entity.Candle{
		StockCode:   m.StockCode,
		TradingDate: d,
		Open:        m.Open,
		High:        m.High,
		Low:         m.Low,
		Close:       m.Close,
		Volume:      m.Volume,
		IsClosed:    m.IsClosed,
	}, nil
}

// UpsertTick はtickを当日ローソクに畳み込みます。
// 既存ローソクが無ければ open=high=low=close=price で生成します。
// あれば high/low を更新し、累積出来高が既存値以上のtickのみ close と volume を
// 進めます。累積出来高が小さいtickは順序乱れの遅延到着であり、closeを過去の
// 価格へ巻き戻してはいけません。確定済み（is_closed）のローソクは変更しません。
// 読み取り・畳み込み・書き込みを1つのトランザクションで行います。
func (r *candleMySQL) UpsertTick(ctx context.Context, code string, date marketday.Date, price float64, cumVolume int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m CandleModel
		err := tx.Where("stock_code = ? AND trading_date = ?", code, date.String()).
			First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m = CandleModel{
				StockCode:   code,
				TradingDate: date.String(),
				Open:        price,
				High:        price,
				Low:         price,
				Close:       price,
				Volume:      cumVolume,
			}
			return tx.Create(&m).Error
		}
		if err != nil {
			return err
		}

		// 確定済みの日は不変の履歴
		if m.IsClosed {
			return nil
		}

		if price > m.High {
			m.High = price
		}
		if price < m.Low {
			m.Low = price
		}
		if cumVolume >= m.Volume {
			m.Close = price
			m.Volume = cumVolume
		}
		return tx.Save(&m).Error
	})
}

// Backfill は確定済みバーを挿入します。既存のキーはforce指定時のみ上書きします。
// 挿入または上書きが行われた場合にtrueを返します。
func (r *candleMySQL) Backfill(ctx context.Context, bar entity.Candle, force bool) (bool, error) {
	m := toCandleModel(bar)

	var q *gorm.DB
	if force {
		q = r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stock_code"}, {Name: "trading_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "is_closed"}),
		}).Create(&m)
	} else {
		q = r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stock_code"}, {Name: "trading_date"}},
			DoNothing: true,
		}).Create(&m)
	}
	if q.Error != nil {
		return false, q.Error
	}
	return q.RowsAffected > 0, nil
}

// Exists は (code, date) のローソクの有無を返します。
func (r *candleMySQL) Exists(ctx context.Context, code string, date marketday.Date) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&CandleModel{}).
		Where("stock_code = ? AND trading_date = ?", code, date.String()).
		Count(&count).Error
	return count > 0, err
}

// Find は指定銘柄のローソクを新しい順に最大limit件返します。
func (r *candleMySQL) Find(ctx context.Context, code string, limit int) ([]entity.Candle, error) {
	var rows []CandleModel
	q := r.db.WithContext(ctx).
		Where("stock_code = ?", code).
		Order("trading_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.Candle, 0, len(rows))
	for _, m := range rows {
		e, err := toCandleEntity(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// LatestClose は最新の取引日の終値を返します。
func (r *candleMySQL) LatestClose(ctx context.Context, code string) (float64, error) {
	var m CandleModel
	err := r.db.WithContext(ctx).
		Where("stock_code = ?", code).
		Order("trading_date DESC").
		First(&m).Error
	if err != nil {
		return 0, err
	}
	return m.Close, nil
}
