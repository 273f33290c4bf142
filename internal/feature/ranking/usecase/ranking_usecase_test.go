package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading_backend/internal/feature/ranking/domain/entity"
	"trading_backend/internal/shared/marketday"
)

// mockPortfolioStateRepository is a mock implementation of the PortfolioStateRepository interface.
type mockPortfolioStateRepository struct {
	States            []entity.PortfolioState
	WeeklyResetCalls  int
	MonthlyResetCalls int
	LeagueChanges     map[uint]string
	WeeklyResetErr    error
}

func (m *mockPortfolioStateRepository) ListAll(ctx context.Context) ([]entity.PortfolioState, error) {
	return m.States, nil
}

func (m *mockPortfolioStateRepository) ResetWeeklyBaselines(ctx context.Context) (int64, error) {
	m.WeeklyResetCalls++
	if m.WeeklyResetErr != nil {
		return 0, m.WeeklyResetErr
	}
	for i := range m.States {
		m.States[i].WeeklyStartAssets = m.States[i].TotalAssets
	}
	return int64(len(m.States)), nil
}

func (m *mockPortfolioStateRepository) ResetMonthlyBaselines(ctx context.Context) (int64, error) {
	m.MonthlyResetCalls++
	for i := range m.States {
		m.States[i].MonthlyStartAssets = m.States[i].TotalAssets
	}
	return int64(len(m.States)), nil
}

func (m *mockPortfolioStateRepository) SetLeagues(ctx context.Context, changes map[uint]string) error {
	m.LeagueChanges = changes
	for i := range m.States {
		if league, ok := changes[m.States[i].UserID]; ok {
			m.States[i].League = league
		}
	}
	return nil
}

// mockRankingRepository is a mock implementation of the RankingRepository interface.
type mockRankingRepository struct {
	Stored map[entity.Period][]entity.RankingEntry
}

func (m *mockRankingRepository) ReplaceAll(ctx context.Context, period entity.Period, entries []entity.RankingEntry) error {
	if m.Stored == nil {
		m.Stored = make(map[entity.Period][]entity.RankingEntry)
	}
	m.Stored[period] = entries
	return nil
}

func (m *mockRankingRepository) ListByPeriod(ctx context.Context, period entity.Period, limit int) ([]entity.RankingEntry, error) {
	return m.Stored[period], nil
}

// mockSnapshotRepository is a mock implementation of the SnapshotRepository interface.
type mockSnapshotRepository struct {
	Upserted []entity.PortfolioSnapshot
}

func (m *mockSnapshotRepository) Upsert(ctx context.Context, s *entity.PortfolioSnapshot) error {
	m.Upserted = append(m.Upserted, *s)
	return nil
}

// mockJobRunRepository marks (name, date) pairs and rejects duplicates.
type mockJobRunRepository struct {
	runs map[string]bool
}

func (m *mockJobRunRepository) MarkRun(ctx context.Context, name string, date marketday.Date) error {
	if m.runs == nil {
		m.runs = make(map[string]bool)
	}
	key := name + "/" + date.String()
	if m.runs[key] {
		return ErrJobAlreadyRan
	}
	m.runs[key] = true
	return nil
}

func (m *mockJobRunRepository) ClearRun(ctx context.Context, name string, date marketday.Date) error {
	delete(m.runs, name+"/"+date.String())
	return nil
}

func newTestRanking(states []entity.PortfolioState, now time.Time) (*RankingUsecase, *mockPortfolioStateRepository, *mockRankingRepository, *mockSnapshotRepository) {
	portfolios := &mockPortfolioStateRepository{States: states}
	rankings := &mockRankingRepository{}
	snapshots := &mockSnapshotRepository{}
	u := NewRankingUsecase(portfolios, rankings, snapshots, &mockJobRunRepository{})
	u.now = func() time.Time { return now }
	return u, portfolios, rankings, snapshots
}

// 2025-07-07 is a Monday, 2025-07-01 a Tuesday.
var (
	mondayMidnight = time.Date(2025, time.July, 7, 0, 0, 0, 0, marketday.Location)
	firstOfMonth   = time.Date(2025, time.July, 1, 0, 0, 0, 0, marketday.Location)
	ordinaryDay    = time.Date(2025, time.July, 9, 0, 0, 0, 0, marketday.Location)
)

func testStates() []entity.PortfolioState {
	return []entity.PortfolioState{
		{UserID: 1, Nickname: "alice", League: entity.LeagueBronze, Cash: 500_000, TotalAssets: 1_100_000, TotalReturn: 10, WeeklyStartAssets: 1_000_000, MonthlyStartAssets: 1_000_000},
		{UserID: 2, Nickname: "bob", League: entity.LeagueBronze, Cash: 1_050_000, TotalAssets: 1_050_000, TotalReturn: 5, WeeklyStartAssets: 1_000_000, MonthlyStartAssets: 0},
		{UserID: 3, Nickname: "carol", League: entity.LeagueBronze, Cash: 100_000, TotalAssets: 1_100_000, TotalReturn: 10, WeeklyStartAssets: 1_000_000, MonthlyStartAssets: 1_000_000},
	}
}

func TestRankingUsecase_ComputeRanking_Weekly(t *testing.T) {
	u, _, rankings, _ := newTestRanking(testStates(), ordinaryDay)

	n, err := u.ComputeRanking(context.Background(), entity.PeriodWeekly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("entries: got %d, want 3", n)
	}

	got := rankings.Stored[entity.PeriodWeekly]
	// alice と carol は同率10%。同率はニックネーム昇順で決定的に並ぶ。
	if got[0].Nickname != "alice" || got[0].Rank != 1 {
		t.Errorf("rank 1: got %s(%d)", got[0].Nickname, got[0].Rank)
	}
	if got[1].Nickname != "carol" || got[1].Rank != 2 {
		t.Errorf("rank 2: got %s(%d)", got[1].Nickname, got[1].Rank)
	}
	if got[2].Nickname != "bob" || got[2].Rank != 3 {
		t.Errorf("rank 3: got %s(%d)", got[2].Nickname, got[2].Rank)
	}
	if got[0].PeriodReturn != 10 {
		t.Errorf("weekly return: got %f, want 10", got[0].PeriodReturn)
	}
}

func TestRankingUsecase_ComputeRanking_ZeroBaseline(t *testing.T) {
	u, _, rankings, _ := newTestRanking(testStates(), ordinaryDay)

	if _, err := u.ComputeRanking(context.Background(), entity.PeriodMonthly); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range rankings.Stored[entity.PeriodMonthly] {
		if e.UserID == 2 && e.PeriodReturn != 0 {
			t.Errorf("zero baseline must yield zero return, got %f", e.PeriodReturn)
		}
	}
}

func TestRankingUsecase_ComputeRanking_InvalidPeriod(t *testing.T) {
	u, _, _, _ := newTestRanking(nil, ordinaryDay)

	if _, err := u.ComputeRanking(context.Background(), entity.Period("yearly")); err != ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestRankingUsecase_RunDailySnapshot(t *testing.T) {
	u, _, _, snapshots := newTestRanking(testStates(), ordinaryDay)

	result, err := u.RunDailySnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Updated != 3 || result.Failed != 0 {
		t.Fatalf("result: got %+v", result)
	}

	want := marketday.Date{Year: 2025, Month: time.July, Day: 9}
	for _, s := range snapshots.Upserted {
		if s.SnapshotDate != want {
			t.Errorf("snapshot date: got %v, want %v", s.SnapshotDate, want)
		}
	}
}

func TestRankingUsecase_RunMidnightTasks_Monday(t *testing.T) {
	u, portfolios, rankings, _ := newTestRanking(testStates(), mondayMidnight)

	result, err := u.RunMidnightTasks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AlreadyRan {
		t.Fatal("first run must not report already_ran")
	}
	if result.WeeklyReset != 3 || portfolios.WeeklyResetCalls != 1 {
		t.Errorf("weekly reset: %+v calls=%d", result, portfolios.WeeklyResetCalls)
	}
	if result.MonthlyReset != 0 || portfolios.MonthlyResetCalls != 0 {
		t.Errorf("monthly reset must not run on the 7th: %+v", result)
	}

	// リセット直後の週次リターンは全員0になる。
	for _, e := range rankings.Stored[entity.PeriodWeekly] {
		if e.PeriodReturn != 0 {
			t.Errorf("weekly return after reset: got %f, want 0", e.PeriodReturn)
		}
	}

	// alice(10%)とcarol(10%)はSILVER、bob(5%)もSILVERに昇格する。
	if len(portfolios.LeagueChanges) != 3 {
		t.Errorf("league changes: got %v", portfolios.LeagueChanges)
	}
	if result.Ranked != 9 {
		t.Errorf("ranked entries: got %d, want 9", result.Ranked)
	}
}

func TestRankingUsecase_RunMidnightTasks_FirstOfMonth(t *testing.T) {
	u, portfolios, _, _ := newTestRanking(testStates(), firstOfMonth)

	result, err := u.RunMidnightTasks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MonthlyReset != 3 || portfolios.MonthlyResetCalls != 1 {
		t.Errorf("monthly reset: %+v", result)
	}
	if result.WeeklyReset != 0 {
		t.Errorf("weekly reset must not run on a Tuesday: %+v", result)
	}
}

func TestRankingUsecase_RunMidnightTasks_DuplicateInvocation(t *testing.T) {
	u, portfolios, _, _ := newTestRanking(testStates(), mondayMidnight)
	ctx := context.Background()

	if _, err := u.RunMidnightTasks(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := u.RunMidnightTasks(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !result.AlreadyRan {
		t.Fatal("second run must report already_ran")
	}
	if portfolios.WeeklyResetCalls != 1 {
		t.Errorf("weekly reset ran %d times, want 1", portfolios.WeeklyResetCalls)
	}
}

// 途中で失敗した深夜バッチはマーカーを残さず、再トリガーで完走できることを検証します。
func TestRankingUsecase_RunMidnightTasks_RetryAfterFailure(t *testing.T) {
	u, portfolios, _, _ := newTestRanking(testStates(), mondayMidnight)
	ctx := context.Background()

	portfolios.WeeklyResetErr = errors.New("deadlock")
	if _, err := u.RunMidnightTasks(ctx); err == nil {
		t.Fatal("expected first run to fail")
	}

	portfolios.WeeklyResetErr = nil
	result, err := u.RunMidnightTasks(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}

	if result.AlreadyRan {
		t.Fatal("retry after a failed run must execute, not report already_ran")
	}
	if result.WeeklyReset != 3 {
		t.Errorf("weekly reset count = %d, want 3", result.WeeklyReset)
	}
	for _, s := range portfolios.States {
		if s.WeeklyStartAssets != s.TotalAssets {
			t.Errorf("user %d baseline = %v, want %v", s.UserID, s.WeeklyStartAssets, s.TotalAssets)
		}
	}
}
