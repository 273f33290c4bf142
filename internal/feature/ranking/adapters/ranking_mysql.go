// Package adapters はrankingフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading_backend/internal/feature/ranking/domain/entity"
	"trading_backend/internal/feature/ranking/usecase"
	"trading_backend/internal/shared/marketday"
)

// rankingMySQL はランキング・スナップショット・ジョブマーカーと
// ポートフォリオ状態の読み取りをまとめたMySQL実装です。
type rankingMySQL struct {
	db *gorm.DB
}

var (
	_ usecase.PortfolioStateRepository = (*rankingMySQL)(nil)
	_ usecase.RankingRepository        = (*rankingMySQL)(nil)
	_ usecase.SnapshotRepository       = (*rankingMySQL)(nil)
	_ usecase.JobRunRepository         = (*rankingMySQL)(nil)
)

// NewRankingRepository は指定されたDB接続でrankingMySQLの新しいインスタンスを生成します。
func NewRankingRepository(db *gorm.DB) *rankingMySQL {
	return &rankingMySQL{db: db}
}

// rankingPortfolioModel はtradingフィーチャーが所有するportfoliosテーブルの
// 読み取り・ベースライン更新用の射影です。
type rankingPortfolioModel struct {
	ID                 uint
	UserID             uint
	Nickname           string
	League             string
	Cash               float64
	TotalAssets        float64
	TotalReturn        float64
	WeeklyStartAssets  float64
	MonthlyStartAssets float64
}

func (rankingPortfolioModel) TableName() string {
	return "portfolios"
}

// RankingEntryModel は期間ごとに全件入れ替えられるランキング行です。
type RankingEntryModel struct {
	ID           uint    `gorm:"primaryKey"`
	Period       string  `gorm:"size:16;not null;index"`
	Rank         int     `gorm:"column:position;not null"` // rankはMySQL 8の予約語のため回避
	UserID       uint    `gorm:"not null"`
	Nickname     string  `gorm:"size:64;not null"`
	League       string  `gorm:"size:16;not null"`
	PeriodReturn float64 `gorm:"not null"`
	TotalAssets  float64 `gorm:"not null"`
	ComputedAt   time.Time
}

func (RankingEntryModel) TableName() string {
	return "ranking_entries"
}

// PortfolioSnapshotModel は (user_id, snapshot_date) をユニークキーとする
// 日次資産スナップショットです。
type PortfolioSnapshotModel struct {
	ID           uint    `gorm:"primaryKey"`
	UserID       uint    `gorm:"not null;uniqueIndex:snapshot_user_date,priority:1"`
	SnapshotDate string  `gorm:"size:10;not null;uniqueIndex:snapshot_user_date,priority:2"`
	TotalAssets  float64 `gorm:"not null"`
	Cash         float64 `gorm:"not null"`
	TotalReturn  float64 `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PortfolioSnapshotModel) TableName() string {
	return "portfolio_snapshots"
}

// JobRunModel は (name, run_date) をユニークキーとする日次ジョブの実行済みマーカーです。
type JobRunModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:32;not null;uniqueIndex:job_name_date,priority:1"`
	RunDate   string `gorm:"size:10;not null;uniqueIndex:job_name_date,priority:2"`
	CreatedAt time.Time
}

func (JobRunModel) TableName() string {
	return "job_runs"
}

// ListAll は全ポートフォリオの状態を返します。
func (r *rankingMySQL) ListAll(ctx context.Context) ([]entity.PortfolioState, error) {
	var rows []rankingPortfolioModel
	if err := r.db.WithContext(ctx).Order("user_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.PortfolioState, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.PortfolioState{
			UserID:             m.UserID,
			Nickname:           m.Nickname,
			League:             m.League,
			Cash:               m.Cash,
			TotalAssets:        m.TotalAssets,
			TotalReturn:        m.TotalReturn,
			WeeklyStartAssets:  m.WeeklyStartAssets,
			MonthlyStartAssets: m.MonthlyStartAssets,
		})
	}
	return out, nil
}

// ResetWeeklyBaselines は全行のweekly_start_assetsを現在のtotal_assetsに
// 1つのUPDATE文で再設定します。再実行しても結果は収束します。
func (r *rankingMySQL) ResetWeeklyBaselines(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&rankingPortfolioModel{}).
		Update("weekly_start_assets", gorm.Expr("total_assets"))
	return res.RowsAffected, res.Error
}

// ResetMonthlyBaselines はmonthly_start_assetsを同様に再設定します。
func (r *rankingMySQL) ResetMonthlyBaselines(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&rankingPortfolioModel{}).
		Update("monthly_start_assets", gorm.Expr("total_assets"))
	return res.RowsAffected, res.Error
}

// SetLeagues は変更分のリーグを1つのトランザクションで更新します。
func (r *rankingMySQL) SetLeagues(ctx context.Context, changes map[uint]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, league := range changes {
			if err := tx.Model(&rankingPortfolioModel{}).
				Where("user_id = ?", userID).
				Update("league", league).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceAll は指定期間のランキングを1つのトランザクションで全件入れ替えます。
func (r *rankingMySQL) ReplaceAll(ctx context.Context, period entity.Period, entries []entity.RankingEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("period = ?", string(period)).Delete(&RankingEntryModel{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		rows := make([]RankingEntryModel, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, RankingEntryModel{
				Period:       string(e.Period),
				Rank:         e.Rank,
				UserID:       e.UserID,
				Nickname:     e.Nickname,
				League:       e.League,
				PeriodReturn: e.PeriodReturn,
				TotalAssets:  e.TotalAssets,
				ComputedAt:   e.ComputedAt,
			})
		}
		return tx.Create(&rows).Error
	})
}

// ListByPeriod は指定期間のランキングを順位昇順で最大limit件返します。
func (r *rankingMySQL) ListByPeriod(ctx context.Context, period entity.Period, limit int) ([]entity.RankingEntry, error) {
	var rows []RankingEntryModel
	q := r.db.WithContext(ctx).
		Where("period = ?", string(period)).
		Order("position ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.RankingEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.RankingEntry{
			ID:           m.ID,
			Period:       entity.Period(m.Period),
			Rank:         m.Rank,
			UserID:       m.UserID,
			Nickname:     m.Nickname,
			League:       m.League,
			PeriodReturn: m.PeriodReturn,
			TotalAssets:  m.TotalAssets,
			ComputedAt:   m.ComputedAt,
		})
	}
	return out, nil
}

// Upsert は (user_id, snapshot_date) のスナップショットを作成または上書きします。
func (r *rankingMySQL) Upsert(ctx context.Context, s *entity.PortfolioSnapshot) error {
	m := PortfolioSnapshotModel{
		UserID:       s.UserID,
		SnapshotDate: s.SnapshotDate.String(),
		TotalAssets:  s.TotalAssets,
		Cash:         s.Cash,
		TotalReturn:  s.TotalReturn,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_assets", "cash", "total_return", "updated_at"}),
		}).
		Create(&m).Error
}

// MarkRun は(name, date)の実行を記録します。既に記録済みの場合、
// 行は挿入されずusecase.ErrJobAlreadyRanを返します。
func (r *rankingMySQL) MarkRun(ctx context.Context, name string, date marketday.Date) error {
	m := JobRunModel{Name: name, RunDate: date.String()}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrJobAlreadyRan
	}
	return nil
}

// ClearRun は(name, date)のマーカーを削除します。存在しない場合もエラーにしません。
func (r *rankingMySQL) ClearRun(ctx context.Context, name string, date marketday.Date) error {
	return r.db.WithContext(ctx).
		Where("name = ? AND run_date = ?", name, date.String()).
		Delete(&JobRunModel{}).Error
}
