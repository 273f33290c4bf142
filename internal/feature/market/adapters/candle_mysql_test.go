package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/shared/marketday"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&CandleModel{}, &LiveQuoteModel{}, &StockModel{})
	require.NoError(t, err, "failed to migrate tables")

	return db
}

var testDate = marketday.Date{Year: 2025, Month: time.June, Day: 30}

func TestCandleMySQL_UpsertTick_CreatesOnFirstTick(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	err := repo.UpsertTick(ctx, "005930", testDate, 70000, 1000)
	require.NoError(t, err)

	cs, err := repo.Find(ctx, "005930", 10)
	require.NoError(t, err)
	require.Len(t, cs, 1)

	c := cs[0]
	assert.Equal(t, 70000.0, c.Open, "first tick sets open")
	assert.Equal(t, 70000.0, c.High)
	assert.Equal(t, 70000.0, c.Low)
	assert.Equal(t, 70000.0, c.Close)
	assert.Equal(t, int64(1000), c.Volume)
	assert.False(t, c.IsClosed)
}

func TestCandleMySQL_UpsertTick_FoldsRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 1000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 71500, 2000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 69800, 3000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70500, 4000))

	cs, err := repo.Find(ctx, "005930", 10)
	require.NoError(t, err)
	require.Len(t, cs, 1)

	c := cs[0]
	assert.Equal(t, 70000.0, c.Open, "open keeps the first tick")
	assert.Equal(t, 71500.0, c.High)
	assert.Equal(t, 69800.0, c.Low)
	assert.Equal(t, 70500.0, c.Close, "close follows the latest tick")
	assert.Equal(t, int64(4000), c.Volume, "volume is the provider's running total")

	// OHLC不変条件
	assert.LessOrEqual(t, c.Low, c.Open)
	assert.LessOrEqual(t, c.Low, c.Close)
	assert.LessOrEqual(t, c.Open, c.High)
	assert.LessOrEqual(t, c.Close, c.High)
	assert.LessOrEqual(t, c.Low, c.High)
}

// TestCandleMySQL_UpsertTick_Idempotent は同一tickの再適用が状態を変えないことを検証します。
func TestCandleMySQL_UpsertTick_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 1000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 71500, 2000))

	before, err := repo.Find(ctx, "005930", 1)
	require.NoError(t, err)

	// 同じtickをもう一度
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 71500, 2000))

	after, err := repo.Find(ctx, "005930", 1)
	require.NoError(t, err)
	assert.Equal(t, before, after, "replaying the same tick must not change the candle")
}

// TestCandleMySQL_UpsertTick_LateTickDoesNotRegressClose は順序乱れの遅延tick
// （累積出来高が既存より小さい）がcloseとvolumeを巻き戻さないことを検証します。
// high/lowの畳み込みには参加します。
func TestCandleMySQL_UpsertTick_LateTickDoesNotRegressClose(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 71500, 5000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 3000))

	cs, err := repo.Find(ctx, "005930", 1)
	require.NoError(t, err)
	require.Len(t, cs, 1)

	assert.Equal(t, 71500.0, cs[0].Close, "close must not regress on a smaller-cum-volume tick")
	assert.Equal(t, int64(5000), cs[0].Volume, "volume must not shrink")
	assert.Equal(t, 70000.0, cs[0].Low, "a late tick still folds into low")
}

// TestCandleMySQL_UpsertTick_EqualVolumeMostRecentWins は累積出来高が同値の場合、
// 後から到着したtickの価格がcloseになることを検証します。
func TestCandleMySQL_UpsertTick_EqualVolumeMostRecentWins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 3000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70200, 3000))

	cs, err := repo.Find(ctx, "005930", 1)
	require.NoError(t, err)
	require.Len(t, cs, 1)

	assert.Equal(t, 70200.0, cs[0].Close, "equal cumulative volume: most recent tick wins")
}

// TestCandleMySQL_UpsertTick_ClosedDayUntouched は確定済みローソクに対するtickが
// 何も変更しないことを検証します。
func TestCandleMySQL_UpsertTick_ClosedDayUntouched(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	closed := entity.Candle{
		StockCode:   "005930",
		TradingDate: testDate,
		Open:        70000, High: 71500, Low: 69800, Close: 71000,
		Volume:   5000,
		IsClosed: true,
	}
	inserted, err := repo.Backfill(ctx, closed, false)
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 99000, 9000))

	cs, err := repo.Find(ctx, "005930", 1)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, closed, cs[0], "a closed candle is immutable history")
}

func TestCandleMySQL_UpsertTick_SeparateDaysSeparateCandles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 1000))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate.AddDays(1), 71000, 500))

	cs, err := repo.Find(ctx, "005930", 10)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	// 新しい順
	assert.Equal(t, testDate.AddDays(1), cs[0].TradingDate)
	assert.Equal(t, testDate, cs[1].TradingDate)
}

func TestCandleMySQL_Backfill(t *testing.T) {
	ctx := context.Background()
	existing := entity.Candle{
		StockCode:   "005930",
		TradingDate: testDate,
		Open:        70000, High: 71500, Low: 69800, Close: 71000,
		Volume:   1000,
		IsClosed: true,
	}
	replacement := entity.Candle{
		StockCode:   "005930",
		TradingDate: testDate,
		Open:        1, High: 2, Low: 1, Close: 2,
		Volume:   9,
		IsClosed: true,
	}

	t.Run("inserts when absent", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCandleRepository(db)

		inserted, err := repo.Backfill(ctx, existing, false)
		require.NoError(t, err)
		assert.True(t, inserted)

		cs, err := repo.Find(ctx, "005930", 1)
		require.NoError(t, err)
		require.Len(t, cs, 1)
		assert.Equal(t, existing, cs[0])
	})

	t.Run("without force leaves existing candle untouched", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCandleRepository(db)

		_, err := repo.Backfill(ctx, existing, false)
		require.NoError(t, err)

		inserted, err := repo.Backfill(ctx, replacement, false)
		require.NoError(t, err)
		assert.False(t, inserted, "existing day must not be disturbed")

		cs, err := repo.Find(ctx, "005930", 1)
		require.NoError(t, err)
		assert.Equal(t, existing, cs[0], "candle must be byte-for-byte unchanged")
	})

	t.Run("with force overwrites", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCandleRepository(db)

		_, err := repo.Backfill(ctx, existing, false)
		require.NoError(t, err)

		overwritten, err := repo.Backfill(ctx, replacement, true)
		require.NoError(t, err)
		assert.True(t, overwritten)

		cs, err := repo.Find(ctx, "005930", 1)
		require.NoError(t, err)
		assert.Equal(t, replacement, cs[0])
	})
}

func TestCandleMySQL_Exists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "005930", testDate)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 1))

	ok, err = repo.Exists(ctx, "005930", testDate)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCandleMySQL_LatestClose(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	_, err := repo.LatestClose(ctx, "005930")
	assert.Error(t, err, "no data yet")

	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate.AddDays(-1), 69000, 1))
	require.NoError(t, repo.UpsertTick(ctx, "005930", testDate, 70000, 1))

	close, err := repo.LatestClose(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, 70000.0, close, "latest trading date wins")
}
