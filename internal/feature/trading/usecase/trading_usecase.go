package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"trading_backend/internal/feature/trading/domain/entity"
)

// PortfolioRepository はポートフォリオと保有の永続化を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type PortfolioRepository interface {
	// FindByUserID はユーザーのポートフォリオを返します。
	// 存在しない場合はErrPortfolioNotFoundを返します。
	FindByUserID(ctx context.Context, userID uint) (*entity.Portfolio, error)

	// ListHoldings はポートフォリオの全保有を返します。
	ListHoldings(ctx context.Context, portfolioID uint) ([]entity.Holding, error)

	// FindHolding は1銘柄の保有を返します。無ければErrHoldingNotFoundを返します。
	FindHolding(ctx context.Context, portfolioID uint, stockCode string) (*entity.Holding, error)

	// Create はポートフォリオを新規作成します。重複時はErrPortfolioExistsを返します。
	Create(ctx context.Context, p *entity.Portfolio) error

	// ApplyTrade は注文1件の結果（現金・保有・約定レコード）を
	// 1つのトランザクションで不可分に適用します。
	ApplyTrade(ctx context.Context, app TradeApplication) error
}

// TransactionRepository は約定履歴の読み取りを抽象化します。
type TransactionRepository interface {
	ListByUserID(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error)
}

// CapitalHistoryRepository は資本イベント台帳への追記を抽象化します。
type CapitalHistoryRepository interface {
	Append(ctx context.Context, h *entity.CapitalHistory) error
}

// PriceSource は現在価格の解決を抽象化します。marketフィーチャーが実装します。
type PriceSource interface {
	CurrentPrice(ctx context.Context, code string) (float64, error)
}

// TradeApplication は注文1件で適用される状態変化の集合です。
type TradeApplication struct {
	// Portfolio は現金・総資産・リターンを再計算済みのポートフォリオです。
	Portfolio *entity.Portfolio
	// Holding は更新後の保有状態です。Quantity==0の場合は行を削除します。
	Holding *entity.Holding
	// Transaction は追記する不変の約定レコードです。
	Transaction *entity.Transaction
}

// TradingUsecase は売買注文を実行する台帳ユースケースです。
//
// 注文の検証から適用までは同一ユーザーについて直列化されます
// （現金・保有のlost updateを防ぐため）。別ユーザーの注文は並行に進みます。
type TradingUsecase struct {
	portfolios PortfolioRepository
	txs        TransactionRepository
	capital    CapitalHistoryRepository
	prices     PriceSource
	now        func() time.Time

	mu        sync.Mutex
	userLocks map[uint]*sync.Mutex
}

// NewTradingUsecase はTradingUsecaseの新しいインスタンスを生成します。
func NewTradingUsecase(portfolios PortfolioRepository, txs TransactionRepository, capital CapitalHistoryRepository, prices PriceSource) *TradingUsecase {
	return &TradingUsecase{
		portfolios: portfolios,
		txs:        txs,
		capital:    capital,
		prices:     prices,
		now:        time.Now,
		userLocks:  make(map[uint]*sync.Mutex),
	}
}

// lockUser はユーザーごとのクリティカルセクション用ロックを返します。
func (u *TradingUsecase) lockUser(userID uint) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.userLocks[userID] = l
	}
	return l
}

// ExecuteBuy は買い注文を実行します。
// 検証失敗時は状態を一切変更せずに対応するエラーを返します。
func (u *TradingUsecase) ExecuteBuy(ctx context.Context, userID uint, stockCode string, quantity int64, note string) (*entity.Transaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	l := u.lockUser(userID)
	l.Lock()
	defer l.Unlock()

	p, err := u.portfolios.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	price, err := u.prices.CurrentPrice(ctx, stockCode)
	if err != nil {
		return nil, ErrPriceNotFound
	}

	cost := price * float64(quantity)
	if p.Cash < cost {
		return nil, ErrInsufficientFunds
	}

	holdings, err := u.portfolios.ListHoldings(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	// 保有の更新: 数量加算と平均取得単価の再計算
	updated := entity.Holding{PortfolioID: p.ID, StockCode: stockCode, Quantity: quantity, AvgCost: price}
	for _, h := range holdings {
		if h.StockCode != stockCode {
			continue
		}
		updated.ID = h.ID
		updated.Quantity = h.Quantity + quantity
		updated.AvgCost = (float64(h.Quantity)*h.AvgCost + cost) / float64(updated.Quantity)
		break
	}

	p.Cash -= cost
	u.revalue(ctx, p, holdings, &updated)

	tx := &entity.Transaction{
		UserID:    userID,
		Type:      entity.TransactionBuy,
		StockCode: stockCode,
		Quantity:  quantity,
		Price:     price,
		Amount:    cost,
		Note:      note,
		CreatedAt: u.now(),
	}
	if err := u.portfolios.ApplyTrade(ctx, TradeApplication{Portfolio: p, Holding: &updated, Transaction: tx}); err != nil {
		return nil, err
	}

	slog.Info("buy executed", "user_id", userID, "code", stockCode, "quantity", quantity, "price", price)
	return tx, nil
}

// ExecuteSell は売り注文を実行します。
// 保有していない銘柄はErrStockNotOwned、保有数量を超える場合は
// ErrInsufficientQuantityを返し、状態は一切変更しません。
func (u *TradingUsecase) ExecuteSell(ctx context.Context, userID uint, stockCode string, quantity int64, note string) (*entity.Transaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	l := u.lockUser(userID)
	l.Lock()
	defer l.Unlock()

	p, err := u.portfolios.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	held, err := u.portfolios.FindHolding(ctx, p.ID, stockCode)
	if errors.Is(err, ErrHoldingNotFound) {
		return nil, ErrStockNotOwned
	}
	if err != nil {
		return nil, err
	}
	if quantity > held.Quantity {
		return nil, ErrInsufficientQuantity
	}

	price, err := u.prices.CurrentPrice(ctx, stockCode)
	if err != nil {
		return nil, ErrPriceNotFound
	}

	holdings, err := u.portfolios.ListHoldings(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	proceeds := price * float64(quantity)
	updated := *held
	updated.Quantity = held.Quantity - quantity // 0になった保有は削除される

	p.Cash += proceeds
	u.revalue(ctx, p, holdings, &updated)

	tx := &entity.Transaction{
		UserID:    userID,
		Type:      entity.TransactionSell,
		StockCode: stockCode,
		Quantity:  quantity,
		Price:     price,
		Amount:    proceeds,
		Note:      note,
		CreatedAt: u.now(),
	}
	if err := u.portfolios.ApplyTrade(ctx, TradeApplication{Portfolio: p, Holding: &updated, Transaction: tx}); err != nil {
		return nil, err
	}

	slog.Info("sell executed", "user_id", userID, "code", stockCode, "quantity", quantity, "price", price)
	return tx, nil
}

// revalue は現金と全保有の評価額からTotalAssets/TotalReturnを再計算します。
// updatedには今回の注文を反映した保有状態を渡します。他の保有の価格が
// 解決できない場合は平均取得単価で評価します。
func (u *TradingUsecase) revalue(ctx context.Context, p *entity.Portfolio, holdings []entity.Holding, updated *entity.Holding) {
	total := p.Cash
	seen := false
	for _, h := range holdings {
		if h.StockCode == updated.StockCode {
			h = *updated
			seen = true
		}
		if h.Quantity <= 0 {
			continue
		}
		total += u.holdingValue(ctx, h)
	}
	if !seen && updated.Quantity > 0 {
		total += u.holdingValue(ctx, *updated)
	}

	p.TotalAssets = total
	if p.InitialCapital > 0 {
		p.TotalReturn = (total - p.InitialCapital) / p.InitialCapital * 100
	}
}

func (u *TradingUsecase) holdingValue(ctx context.Context, h entity.Holding) float64 {
	price, err := u.prices.CurrentPrice(ctx, h.StockCode)
	if err != nil {
		price = h.AvgCost
	}
	return price * float64(h.Quantity)
}

// GetPortfolio はポートフォリオと保有一覧を返します。
func (u *TradingUsecase) GetPortfolio(ctx context.Context, userID uint) (*entity.Portfolio, []entity.Holding, error) {
	p, err := u.portfolios.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	holdings, err := u.portfolios.ListHoldings(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return p, holdings, nil
}

// ListTransactions はユーザーの約定履歴を新しい順に返します。
func (u *TradingUsecase) ListTransactions(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error) {
	return u.txs.ListByUserID(ctx, userID, limit)
}

// CreatePortfolio はオンボーディング時にポートフォリオを初期資本付きで作成し、
// 資本台帳に初期入金イベントを追記します。
func (u *TradingUsecase) CreatePortfolio(ctx context.Context, userID uint, nickname string, initialCapital float64) (*entity.Portfolio, error) {
	p := &entity.Portfolio{
		UserID:             userID,
		Nickname:           nickname,
		Cash:               initialCapital,
		InitialCapital:     initialCapital,
		TotalAssets:        initialCapital,
		WeeklyStartAssets:  initialCapital,
		MonthlyStartAssets: initialCapital,
	}
	if err := u.portfolios.Create(ctx, p); err != nil {
		return nil, err
	}

	h := &entity.CapitalHistory{
		UserID:    userID,
		Amount:    initialCapital,
		NewTotal:  initialCapital,
		Reason:    "initial funding",
		CreatedAt: u.now(),
	}
	if err := u.capital.Append(ctx, h); err != nil {
		// 台帳追記の失敗でポートフォリオ作成は巻き戻さない
		slog.Error("capital history append failed", "user_id", userID, "error", err)
	}
	return p, nil
}
