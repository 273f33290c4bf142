package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/feature/market/usecase"
	"trading_backend/internal/shared/marketday"
)

type quoteMySQL struct {
	db *gorm.DB
}

var _ usecase.QuoteRepository = (*quoteMySQL)(nil)

// NewQuoteRepository は指定されたDB接続でquoteMySQLの新しいインスタンスを生成します。
func NewQuoteRepository(db *gorm.DB) *quoteMySQL {
	return &quoteMySQL{db: db}
}

// LiveQuoteModel は銘柄ごとに1行のライブスナップショットです。tickごとに上書きされます。
type LiveQuoteModel struct {
	ID        uint    `gorm:"primaryKey"`
	StockCode string  `gorm:"size:32;not null;uniqueIndex"`
	Price     float64 `gorm:"not null"`
	Open      float64 `gorm:"not null"`
	High      float64 `gorm:"not null"`
	Low       float64 `gorm:"not null"`
	Volume    int64   `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (LiveQuoteModel) TableName() string {
	return "live_quotes"
}

// Upsert はスナップショットを銘柄コードをキーに上書き保存します。
func (r *quoteMySQL) Upsert(ctx context.Context, quote entity.LiveQuote) error {
	m := LiveQuoteModel{
		StockCode: quote.StockCode,
		Price:     quote.Price,
		Open:      quote.Open,
		High:      quote.High,
		Low:       quote.Low,
		Volume:    quote.Volume,
		UpdatedAt: quote.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "open", "high", "low", "volume", "updated_at"}),
	}).Create(&m).Error
}

// FindByCode は1銘柄のスナップショットを返します。存在しない場合はnilを返します。
func (r *quoteMySQL) FindByCode(ctx context.Context, code string) (*entity.LiveQuote, error) {
	var m LiveQuoteModel
	if err := r.db.WithContext(ctx).Where("stock_code = ?", code).First(&m).Error; err != nil {
		return nil, err
	}
	e := toQuoteEntity(m)
	return &e, nil
}

// ListUpdatedOn は指定取引日（取引所ローカル）内に更新されたスナップショットを返します。
func (r *quoteMySQL) ListUpdatedOn(ctx context.Context, date marketday.Date) ([]entity.LiveQuote, error) {
	from := date.Time()
	to := date.AddDays(1).Time()

	var rows []LiveQuoteModel
	if err := r.db.WithContext(ctx).
		Where("updated_at >= ? AND updated_at < ?", from, to).
		Order("stock_code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.LiveQuote, 0, len(rows))
	for _, m := range rows {
		out = append(out, toQuoteEntity(m))
	}
	return out, nil
}

func toQuoteEntity(m LiveQuoteModel) entity.LiveQuote {
	return entity.LiveQuote{
		StockCode: m.StockCode,
		Price:     m.Price,
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Volume:    m.Volume,
		UpdatedAt: m.UpdatedAt,
	}
}
