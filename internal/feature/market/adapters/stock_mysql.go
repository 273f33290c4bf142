package adapters

import (
	"context"

	"gorm.io/gorm"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/feature/market/usecase"
)

// stockMySQL はStockRepositoryインターフェースのMySQL実装です。
type stockMySQL struct {
	db *gorm.DB
}

var _ usecase.StockRepository = (*stockMySQL)(nil)

// NewStockRepository は指定されたDB接続でstockMySQLの新しいインスタンスを生成します。
func NewStockRepository(db *gorm.DB) *stockMySQL {
	return &stockMySQL{db: db}
}

// StockModel は追跡対象銘柄のレコードです。
type StockModel struct {
	ID       uint   `gorm:"primaryKey"`
	Code     string `gorm:"size:32;not null;uniqueIndex"`
	Name     string `gorm:"size:255;not null"`
	Market   string `gorm:"size:16;not null"`
	IsActive bool   `gorm:"not null;default:true"`
	SortKey  int    `gorm:"not null;default:0"`
}

func (StockModel) TableName() string {
	return "stocks"
}

// ListActive はsort_key順にすべてのアクティブな銘柄を返します。
func (r *stockMySQL) ListActive(ctx context.Context) ([]entity.Stock, error) {
	var rows []StockModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.Stock, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Stock{
			ID:       m.ID,
			Code:     m.Code,
			Name:     m.Name,
			Market:   m.Market,
			IsActive: m.IsActive,
			SortKey:  m.SortKey,
		})
	}
	return out, nil
}

// ListActiveCodes はsort_key順にアクティブな銘柄のコードのみを返します。
func (r *stockMySQL) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&StockModel{}).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
