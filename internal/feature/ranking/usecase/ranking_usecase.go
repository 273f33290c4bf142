// Package usecase はランキング計算と期間リセットのビジネスロジックを提供します。
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"trading_backend/internal/feature/ranking/domain/entity"
	"trading_backend/internal/shared/marketday"
)

// PortfolioStateRepository はランキング計算が読むポートフォリオ状態と
// 期間ベースラインの更新を抽象化します。
type PortfolioStateRepository interface {
	// ListAll は全ポートフォリオの状態を返します。
	ListAll(ctx context.Context) ([]entity.PortfolioState, error)

	// ResetWeeklyBaselines は全ポートフォリオのweekly_start_assetsを
	// 現在のtotal_assetsに1つのトランザクションで再設定します。
	ResetWeeklyBaselines(ctx context.Context) (int64, error)

	// ResetMonthlyBaselines はmonthly_start_assetsを同様に再設定します。
	ResetMonthlyBaselines(ctx context.Context) (int64, error)

	// SetLeagues は変更のあったユーザーのリーグを1つのトランザクションで更新します。
	SetLeagues(ctx context.Context, changes map[uint]string) error
}

// RankingRepository はランキングスナップショットの永続化を抽象化します。
type RankingRepository interface {
	// ReplaceAll は指定期間のランキングを全件入れ替えます。
	ReplaceAll(ctx context.Context, period entity.Period, entries []entity.RankingEntry) error

	// ListByPeriod は指定期間のランキングを順位昇順で最大limit件返します。
	ListByPeriod(ctx context.Context, period entity.Period, limit int) ([]entity.RankingEntry, error)
}

// SnapshotRepository は日次資産スナップショットの永続化を抽象化します。
type SnapshotRepository interface {
	Upsert(ctx context.Context, s *entity.PortfolioSnapshot) error
}

// JobRunRepository は日次ジョブの実行済みマーカーを抽象化します。
type JobRunRepository interface {
	// MarkRun は(name, date)の実行を記録します。
	// 既に記録済みの場合はErrJobAlreadyRanを返します。
	MarkRun(ctx context.Context, name string, date marketday.Date) error
	// ClearRun は(name, date)のマーカーを削除します。
	// ジョブが途中で失敗したとき、再トリガーを受け付けるために呼ばれます。
	ClearRun(ctx context.Context, name string, date marketday.Date) error
}

// SnapshotResult はスナップショット実行の集計結果です。
type SnapshotResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// MidnightResult は深夜バッチ実行の集計結果です。
type MidnightResult struct {
	AlreadyRan     bool  `json:"already_ran"`
	WeeklyReset    int64 `json:"weekly_reset"`
	MonthlyReset   int64 `json:"monthly_reset"`
	LeaguesChanged int   `json:"leagues_changed"`
	Ranked         int   `json:"ranked"`
}

// RankingUsecase は期間リターンの計算・順位付け・期間ベースラインの
// 再設定を行うユースケースです。
type RankingUsecase struct {
	portfolios PortfolioStateRepository
	rankings   RankingRepository
	snapshots  SnapshotRepository
	jobs       JobRunRepository
	now        func() time.Time
}

// NewRankingUsecase はRankingUsecaseの新しいインスタンスを生成します。
func NewRankingUsecase(portfolios PortfolioStateRepository, rankings RankingRepository, snapshots SnapshotRepository, jobs JobRunRepository) *RankingUsecase {
	return &RankingUsecase{
		portfolios: portfolios,
		rankings:   rankings,
		snapshots:  snapshots,
		jobs:       jobs,
		now:        time.Now,
	}
}

// periodReturn は期間のリターン（パーセント値）を導出します。
// 週次・月次はベースラインが0の場合0を返します。
func periodReturn(p entity.Period, s entity.PortfolioState) float64 {
	switch p {
	case entity.PeriodWeekly:
		if s.WeeklyStartAssets == 0 {
			return 0
		}
		return (s.TotalAssets - s.WeeklyStartAssets) / s.WeeklyStartAssets * 100
	case entity.PeriodMonthly:
		if s.MonthlyStartAssets == 0 {
			return 0
		}
		return (s.TotalAssets - s.MonthlyStartAssets) / s.MonthlyStartAssets * 100
	default:
		return s.TotalReturn
	}
}

// ComputeRanking は指定期間のランキングを計算し、全件入れ替えで永続化します。
// 同率リターンはニックネーム、次いでユーザーIDの昇順で決定的に順位付けします。
func (u *RankingUsecase) ComputeRanking(ctx context.Context, period entity.Period) (int, error) {
	if !period.Valid() {
		return 0, ErrInvalidPeriod
	}

	states, err := u.portfolios.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	computedAt := u.now()
	entries := make([]entity.RankingEntry, 0, len(states))
	for _, s := range states {
		entries = append(entries, entity.RankingEntry{
			Period:       period,
			UserID:       s.UserID,
			Nickname:     s.Nickname,
			League:       s.League,
			PeriodReturn: periodReturn(period, s),
			TotalAssets:  s.TotalAssets,
			ComputedAt:   computedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PeriodReturn != entries[j].PeriodReturn {
			return entries[i].PeriodReturn > entries[j].PeriodReturn
		}
		if entries[i].Nickname != entries[j].Nickname {
			return entries[i].Nickname < entries[j].Nickname
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if err := u.rankings.ReplaceAll(ctx, period, entries); err != nil {
		return 0, err
	}

	slog.Info("ranking computed", "period", period, "entries", len(entries))
	return len(entries), nil
}

// RunRankingUpdate は全期間のランキングを順に再計算します。
func (u *RankingUsecase) RunRankingUpdate(ctx context.Context) (int, error) {
	total := 0
	for _, p := range []entity.Period{entity.PeriodWeekly, entity.PeriodMonthly, entity.PeriodAll} {
		n, err := u.ComputeRanking(ctx, p)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// GetRanking は指定期間のランキングを順位昇順で返します。
func (u *RankingUsecase) GetRanking(ctx context.Context, period entity.Period, limit int) ([]entity.RankingEntry, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	return u.rankings.ListByPeriod(ctx, period, limit)
}

// RunDailySnapshot は全ポートフォリオの当日資産スナップショットを記録します。
// 同日の再実行は既存行を上書きします。個別の失敗は集計して続行します。
func (u *RankingUsecase) RunDailySnapshot(ctx context.Context) (*SnapshotResult, error) {
	states, err := u.portfolios.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	today := marketday.FromTime(u.now())
	result := &SnapshotResult{}
	for _, s := range states {
		snap := &entity.PortfolioSnapshot{
			UserID:       s.UserID,
			SnapshotDate: today,
			TotalAssets:  s.TotalAssets,
			Cash:         s.Cash,
			TotalReturn:  s.TotalReturn,
		}
		if err := u.snapshots.Upsert(ctx, snap); err != nil {
			slog.Error("snapshot upsert failed", "user_id", s.UserID, "error", err)
			result.Failed++
			continue
		}
		result.Updated++
	}
	return result, nil
}

// RunMidnightTasks は深夜バッチを実行します。
// 同じ営業日に2回呼ばれた場合、job_runsマーカーにより2回目は何もしません。
// 途中で失敗した場合はマーカーを削除し、再トリガーで完走できるようにします。
// 月曜は週次、毎月1日は月次ベースラインを再設定し、リーグを再分類した上で
// 全期間のランキングを再計算します。
func (u *RankingUsecase) RunMidnightTasks(ctx context.Context) (*MidnightResult, error) {
	today := marketday.FromTime(u.now())

	if err := u.jobs.MarkRun(ctx, "midnight", today); err != nil {
		if errors.Is(err, ErrJobAlreadyRan) {
			slog.Info("midnight tasks already ran", "date", today.String())
			return &MidnightResult{AlreadyRan: true}, nil
		}
		return nil, err
	}

	result, err := u.runMidnight(ctx, today)
	if err != nil {
		// マーカーを残すと失敗した日が丸ごと再実行不能になる
		if cerr := u.jobs.ClearRun(ctx, "midnight", today); cerr != nil {
			slog.Error("failed to clear job marker", "date", today.String(), "error", cerr)
		}
		return nil, err
	}
	return result, nil
}

func (u *RankingUsecase) runMidnight(ctx context.Context, today marketday.Date) (*MidnightResult, error) {
	result := &MidnightResult{}

	if today.IsMonday() {
		n, err := u.portfolios.ResetWeeklyBaselines(ctx)
		if err != nil {
			return nil, err
		}
		result.WeeklyReset = n
	}
	if today.IsFirstOfMonth() {
		n, err := u.portfolios.ResetMonthlyBaselines(ctx)
		if err != nil {
			return nil, err
		}
		result.MonthlyReset = n
	}

	changed, err := u.reclassifyLeagues(ctx)
	if err != nil {
		return nil, err
	}
	result.LeaguesChanged = changed

	ranked, err := u.RunRankingUpdate(ctx)
	if err != nil {
		return nil, err
	}
	result.Ranked = ranked

	slog.Info("midnight tasks done",
		"date", today.String(),
		"weekly_reset", result.WeeklyReset,
		"monthly_reset", result.MonthlyReset,
		"leagues_changed", result.LeaguesChanged,
	)
	return result, nil
}

// reclassifyLeagues は全期間リターンの閾値でリーグを再分類し、
// 変更のあったユーザー数を返します。
func (u *RankingUsecase) reclassifyLeagues(ctx context.Context) (int, error) {
	states, err := u.portfolios.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	changes := make(map[uint]string)
	for _, s := range states {
		league := entity.ClassifyLeague(s.TotalReturn)
		if league != s.League {
			changes[s.UserID] = league
		}
	}
	if len(changes) == 0 {
		return 0, nil
	}
	if err := u.portfolios.SetLeagues(ctx, changes); err != nil {
		return 0, err
	}
	return len(changes), nil
}
