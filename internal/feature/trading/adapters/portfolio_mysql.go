// Package adapters はtradingフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"trading_backend/internal/feature/trading/domain/entity"
	"trading_backend/internal/feature/trading/usecase"
)

// portfolioMySQL はPortfolioRepositoryインターフェースのMySQL実装です。
type portfolioMySQL struct {
	db *gorm.DB
}

var _ usecase.PortfolioRepository = (*portfolioMySQL)(nil)

// NewPortfolioRepository は指定されたDB接続でportfolioMySQLの新しいインスタンスを生成します。
func NewPortfolioRepository(db *gorm.DB) *portfolioMySQL {
	return &portfolioMySQL{db: db}
}

// PortfolioModel はユーザーごとに1行のポートフォリオレコードです。
type PortfolioModel struct {
	ID                 uint    `gorm:"primaryKey"`
	UserID             uint    `gorm:"not null;uniqueIndex"`
	Nickname           string  `gorm:"size:64;not null"`
	Cash               float64 `gorm:"not null"`
	InitialCapital     float64 `gorm:"not null"`
	TotalAssets        float64 `gorm:"not null"`
	TotalReturn        float64 `gorm:"not null;default:0"`
	WeeklyStartAssets  float64 `gorm:"not null;default:0"`
	MonthlyStartAssets float64 `gorm:"not null;default:0"`
	League             string  `gorm:"size:16;not null;default:BRONZE"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PortfolioModel) TableName() string {
	return "portfolios"
}

// HoldingModel は (portfolio_id, stock_code) をユニークキーとする保有レコードです。
type HoldingModel struct {
	ID          uint    `gorm:"primaryKey"`
	PortfolioID uint    `gorm:"not null;uniqueIndex:holding_pf_code,priority:1"`
	StockCode   string  `gorm:"size:32;not null;uniqueIndex:holding_pf_code,priority:2"`
	Quantity    int64   `gorm:"not null"`
	AvgCost     float64 `gorm:"not null"`
	UpdatedAt   time.Time
}

func (HoldingModel) TableName() string {
	return "holdings"
}

func toPortfolioEntity(m PortfolioModel) entity.Portfolio {
	return entity.Portfolio{
		ID:                 m.ID,
		UserID:             m.UserID,
		Nickname:           m.Nickname,
		Cash:               m.Cash,
		InitialCapital:     m.InitialCapital,
		TotalAssets:        m.TotalAssets,
		TotalReturn:        m.TotalReturn,
		WeeklyStartAssets:  m.WeeklyStartAssets,
		MonthlyStartAssets: m.MonthlyStartAssets,
		League:             m.League,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FindByUserID はユーザーのポートフォリオを取得します。
func (r *portfolioMySQL) FindByUserID(ctx context.Context, userID uint) (*entity.Portfolio, error) {
	var m PortfolioModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrPortfolioNotFound
		}
		return nil, err
	}
	e := toPortfolioEntity(m)
	return &e, nil
}

// ListHoldings はポートフォリオの全保有を返します。
func (r *portfolioMySQL) ListHoldings(ctx context.Context, portfolioID uint) ([]entity.Holding, error) {
	var rows []HoldingModel
	if err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("stock_code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.Holding, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Holding{
			ID:          m.ID,
			PortfolioID: m.PortfolioID,
			StockCode:   m.StockCode,
			Quantity:    m.Quantity,
			AvgCost:     m.AvgCost,
		})
	}
	return out, nil
}

// FindHolding は1銘柄の保有を取得します。
func (r *portfolioMySQL) FindHolding(ctx context.Context, portfolioID uint, stockCode string) (*entity.Holding, error) {
	var m HoldingModel
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND stock_code = ?", portfolioID, stockCode).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrHoldingNotFound
		}
		return nil, err
	}
	return &entity.Holding{
		ID:          m.ID,
		PortfolioID: m.PortfolioID,
		StockCode:   m.StockCode,
		Quantity:    m.Quantity,
		AvgCost:     m.AvgCost,
	}, nil
}

// Create はポートフォリオを新規作成します。
// 同じユーザーのポートフォリオが既にある場合、usecase.ErrPortfolioExistsを返します。
func (r *portfolioMySQL) Create(ctx context.Context, p *entity.Portfolio) error {
	m := PortfolioModel{
		UserID:             p.UserID,
		Nickname:           p.Nickname,
		Cash:               p.Cash,
		InitialCapital:     p.InitialCapital,
		TotalAssets:        p.TotalAssets,
		TotalReturn:        p.TotalReturn,
		WeeklyStartAssets:  p.WeeklyStartAssets,
		MonthlyStartAssets: p.MonthlyStartAssets,
		League:             p.League,
	}
	if m.League == "" {
		m.League = "BRONZE"
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		// MySQLエラー1062: ユニークキーの重複エントリ
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return usecase.ErrPortfolioExists
		}
		return err
	}
	p.ID = m.ID
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return nil
}

// ApplyTrade は注文1件の結果を1つのDBトランザクションで適用します。
// 現金・保有・約定レコードのいずれかが失敗した場合は全体を巻き戻します。
func (r *portfolioMySQL) ApplyTrade(ctx context.Context, app usecase.TradeApplication) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := app.Portfolio
		if err := tx.Model(&PortfolioModel{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{
				"cash":         p.Cash,
				"total_assets": p.TotalAssets,
				"total_return": p.TotalReturn,
			}).Error; err != nil {
			return err
		}

		h := app.Holding
		switch {
		case h.Quantity <= 0:
			// 数量0の保有は行ごと削除
			if h.ID != 0 {
				if err := tx.Delete(&HoldingModel{}, h.ID).Error; err != nil {
					return err
				}
			}
		case h.ID == 0:
			hm := HoldingModel{
				PortfolioID: h.PortfolioID,
				StockCode:   h.StockCode,
				Quantity:    h.Quantity,
				AvgCost:     h.AvgCost,
			}
			if err := tx.Create(&hm).Error; err != nil {
				return err
			}
		default:
			if err := tx.Model(&HoldingModel{}).
				Where("id = ?", h.ID).
				Updates(map[string]any{
					"quantity": h.Quantity,
					"avg_cost": h.AvgCost,
				}).Error; err != nil {
				return err
			}
		}

		txm := toTransactionModel(*app.Transaction)
		if err := tx.Create(&txm).Error; err != nil {
			return err
		}
		app.Transaction.ID = txm.ID
		return nil
	})
}
