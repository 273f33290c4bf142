package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trading_backend/internal/feature/trading/domain/entity"
	"trading_backend/internal/feature/trading/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&PortfolioModel{}, &HoldingModel{}, &TransactionModel{}, &CapitalHistoryModel{})
	require.NoError(t, err, "failed to migrate tables")

	return db
}

// fixedPrices はテスト用の固定価格テーブルです。
type fixedPrices map[string]float64

func (p fixedPrices) CurrentPrice(ctx context.Context, code string) (float64, error) {
	price, ok := p[code]
	if !ok {
		return 0, usecase.ErrPriceNotFound
	}
	return price, nil
}

func seedPortfolio(t *testing.T, db *gorm.DB, userID uint) *entity.Portfolio {
	t.Helper()
	repo := NewPortfolioRepository(db)
	p := &entity.Portfolio{
		UserID:             userID,
		Nickname:           "trader1",
		Cash:               1_000_000,
		InitialCapital:     1_000_000,
		TotalAssets:        1_000_000,
		WeeklyStartAssets:  1_000_000,
		MonthlyStartAssets: 1_000_000,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPortfolioMySQL_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPortfolioRepository(db)
	ctx := context.Background()

	p := seedPortfolio(t, db, 10)
	assert.NotZero(t, p.ID)

	var m PortfolioModel
	require.NoError(t, db.First(&m, p.ID).Error)
	assert.Equal(t, "BRONZE", m.League)

	got, err := repo.FindByUserID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000.0, got.Cash)
	assert.Equal(t, "trader1", got.Nickname)
}

func TestPortfolioMySQL_FindByUserID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPortfolioRepository(db)

	_, err := repo.FindByUserID(context.Background(), 999)
	assert.ErrorIs(t, err, usecase.ErrPortfolioNotFound)
}

func TestPortfolioMySQL_FindHolding_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPortfolioRepository(db)

	_, err := repo.FindHolding(context.Background(), 1, "005930")
	assert.ErrorIs(t, err, usecase.ErrHoldingNotFound)
}

func TestPortfolioMySQL_ApplyTrade_CreatesHoldingAndTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPortfolioRepository(db)
	ctx := context.Background()

	p := seedPortfolio(t, db, 10)
	p.Cash = 300_000
	p.TotalAssets = 1_000_000

	tx := &entity.Transaction{
		UserID: 10, Type: entity.TransactionBuy,
		StockCode: "005930", Quantity: 10, Price: 70000, Amount: 700_000,
	}
	err := repo.ApplyTrade(ctx, usecase.TradeApplication{
		Portfolio:   p,
		Holding:     &entity.Holding{PortfolioID: p.ID, StockCode: "005930", Quantity: 10, AvgCost: 70000},
		Transaction: tx,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID, "transaction ID should be backfilled")

	got, err := repo.FindByUserID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 300_000.0, got.Cash)

	h, err := repo.FindHolding(ctx, p.ID, "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.Quantity)
	assert.Equal(t, 70000.0, h.AvgCost)

	var count int64
	require.NoError(t, db.Model(&TransactionModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPortfolioMySQL_ApplyTrade_DeletesEmptyHolding(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPortfolioRepository(db)
	ctx := context.Background()

	p := seedPortfolio(t, db, 10)
	hm := HoldingModel{PortfolioID: p.ID, StockCode: "005930", Quantity: 10, AvgCost: 70000}
	require.NoError(t, db.Create(&hm).Error)

	err := repo.ApplyTrade(ctx, usecase.TradeApplication{
		Portfolio:   p,
		Holding:     &entity.Holding{ID: hm.ID, PortfolioID: p.ID, StockCode: "005930", Quantity: 0},
		Transaction: &entity.Transaction{UserID: 10, Type: entity.TransactionSell, StockCode: "005930", Quantity: 10, Price: 70000, Amount: 700_000},
	})
	require.NoError(t, err)

	_, err = repo.FindHolding(ctx, p.ID, "005930")
	assert.ErrorIs(t, err, usecase.ErrHoldingNotFound)
}

func TestTransactionMySQL_ListByUserID_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	for _, code := range []string{"005930", "000660", "035420"} {
		require.NoError(t, db.Create(&TransactionModel{
			UserID: 10, Type: "BUY", StockCode: code, Quantity: 1, Price: 100, Amount: 100,
		}).Error)
	}
	require.NoError(t, db.Create(&TransactionModel{
		UserID: 99, Type: "BUY", StockCode: "005930", Quantity: 1, Price: 100, Amount: 100,
	}).Error)

	txs, err := repo.ListByUserID(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "035420", txs[0].StockCode)
	assert.Equal(t, "000660", txs[1].StockCode)
}

func TestTransactionMySQL_Append(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)

	h := &entity.CapitalHistory{UserID: 10, Amount: 1_000_000, NewTotal: 1_000_000, Reason: "initial funding"}
	require.NoError(t, repo.Append(context.Background(), h))
	assert.NotZero(t, h.ID)
}

// 買い→売りの一連の流れをユースケースとリポジトリを通して検証します。
func TestTradingFlow_BuyThenSell(t *testing.T) {
	db := setupTestDB(t)
	portfolios := NewPortfolioRepository(db)
	txs := NewTransactionRepository(db)
	ctx := context.Background()

	seedPortfolio(t, db, 10)

	prices := fixedPrices{"005930": 70000}
	u := usecase.NewTradingUsecase(portfolios, txs, txs, prices)

	_, err := u.ExecuteBuy(ctx, 10, "005930", 10, "")
	require.NoError(t, err)

	p, err := portfolios.FindByUserID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 300_000.0, p.Cash)
	assert.Equal(t, 1_000_000.0, p.TotalAssets)

	// 値上がり後に半分を売却
	prices["005930"] = 71500
	_, err = u.ExecuteSell(ctx, 10, "005930", 5, "")
	require.NoError(t, err)

	p, err = portfolios.FindByUserID(ctx, 10)
	require.NoError(t, err)
	// 300,000 + 5株×71,500 = 657,500
	assert.Equal(t, 657_500.0, p.Cash)
	// 657,500 + 5株×71,500 = 1,015,000
	assert.Equal(t, 1_015_000.0, p.TotalAssets)
	assert.InDelta(t, 1.5, p.TotalReturn, 1e-9)

	h, err := portfolios.FindHolding(ctx, p.ID, "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(5), h.Quantity)
	assert.Equal(t, 70000.0, h.AvgCost)

	list, err := u.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entity.TransactionSell, list[0].Type)
	assert.Equal(t, entity.TransactionBuy, list[1].Type)
}
