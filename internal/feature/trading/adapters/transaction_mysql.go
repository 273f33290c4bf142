package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"trading_backend/internal/feature/trading/domain/entity"
	"trading_backend/internal/feature/trading/usecase"
)

// transactionMySQL は約定履歴と資本台帳のMySQL実装です。
// どちらも追記専用で、コアが更新・削除することはありません。
type transactionMySQL struct {
	db *gorm.DB
}

var (
	_ usecase.TransactionRepository    = (*transactionMySQL)(nil)
	_ usecase.CapitalHistoryRepository = (*transactionMySQL)(nil)
)

// NewTransactionRepository は指定されたDB接続でtransactionMySQLの新しいインスタンスを生成します。
func NewTransactionRepository(db *gorm.DB) *transactionMySQL {
	return &transactionMySQL{db: db}
}

// TransactionModel は約定1件の追記専用レコードです。
type TransactionModel struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"not null;index"`
	Type      string  `gorm:"size:8;not null"`
	StockCode string  `gorm:"size:32;not null"`
	Quantity  int64   `gorm:"not null"`
	Price     float64 `gorm:"not null"`
	Amount    float64 `gorm:"not null"`
	Note      string  `gorm:"size:255"`
	CreatedAt time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}

// CapitalHistoryModel は資本イベントの追記専用レコードです。
type CapitalHistoryModel struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"not null;index"`
	Amount    float64 `gorm:"not null"`
	NewTotal  float64 `gorm:"not null"`
	Reason    string  `gorm:"size:255;not null"`
	CreatedAt time.Time
}

func (CapitalHistoryModel) TableName() string {
	return "capital_histories"
}

func toTransactionModel(e entity.Transaction) TransactionModel {
	return TransactionModel{
		UserID:    e.UserID,
		Type:      string(e.Type),
		StockCode: e.StockCode,
		Quantity:  e.Quantity,
		Price:     e.Price,
		Amount:    e.Amount,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}

// ListByUserID はユーザーの約定履歴を新しい順に最大limit件返します。
func (r *transactionMySQL) ListByUserID(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error) {
	var rows []TransactionModel
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.Transaction, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Transaction{
			ID:        m.ID,
			UserID:    m.UserID,
			Type:      entity.TransactionType(m.Type),
			StockCode: m.StockCode,
			Quantity:  m.Quantity,
			Price:     m.Price,
			Amount:    m.Amount,
			Note:      m.Note,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// Append は資本イベントを台帳に追記します。
func (r *transactionMySQL) Append(ctx context.Context, h *entity.CapitalHistory) error {
	m := CapitalHistoryModel{
		UserID:    h.UserID,
		Amount:    h.Amount,
		NewTotal:  h.NewTotal,
		Reason:    h.Reason,
		CreatedAt: h.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	h.ID = m.ID
	return nil
}
