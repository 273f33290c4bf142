package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"trading_backend/internal/platform/externalapi/kis/dto"
	"trading_backend/internal/shared/marketday"
	"trading_backend/internal/shared/ratelimiter"
)

const (
	// tokenRefreshMargin 失効のこの時間前になったらトークンを先行更新します。
	tokenRefreshMargin = time.Hour

	trIDQuote      = "FHKST01010100" // 株式現在価格照会
	trIDDailyPrice = "FHKST01010400" // 株式日別価格照会
	marketDivCode  = "J"             // 株式市場区分
)

// APIError はプロバイダー呼び出しの失敗を表します。
// 一時的なエラーであり、リトライは呼び出し元（次回のポーリング）の責務です。
type APIError struct {
	Status  int    // HTTPステータス（プロバイダー到達前の失敗は0）
	Code    string // プロバイダーのメッセージコード
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kis: provider error (status=%d code=%s): %s", e.Status, e.Code, e.Message)
}

// Quote は1銘柄の現在値スナップショットです。
type Quote struct {
	Price  float64
	Open   float64
	High   float64
	Low    float64
	Volume int64 // 当日の累積出来高
}

// DailyBar は確定済みの日足1本です。
type DailyBar struct {
	Date   marketday.Date
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Client は認証トークンをキャッシュし、共有スロットルを通して
// 株価照会リクエストを実行するプロバイダークライアントです。
// モジュールレベルのシングルトンではなく、生成して参照で渡します。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.RateLimiterInterface

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient は指定された設定・HTTPクライアント・スロットルでClientを生成します。
func NewClient(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *Client {
	return &Client{cfg: cfg, client: client, limiter: limiter}
}

// ensureToken は有効なアクセストークンを返します。
// 失効のtokenRefreshMargin前を過ぎている場合のみ再取得し、呼び出しごとの取得はしません。
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > tokenRefreshMargin {
		return c.accessToken, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", &APIError{Message: err.Error()}
	}
	defer closeBody(res)

	if res.StatusCode >= 400 {
		return "", &APIError{Status: res.StatusCode, Message: "token request failed"}
	}

	var tr dto.TokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", &APIError{Status: res.StatusCode, Message: "empty access token"}
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	slog.Info("provider token refreshed", "expires_in", tr.ExpiresIn)
	return c.accessToken, nil
}

// doQuotation は認証ヘッダー付きで照会エンドポイントを呼び出します。
// すべての呼び出しは共有スロットルを通るため、時系列順のレスポンスになります。
func (c *Client) doQuotation(ctx context.Context, path, trID string, q url.Values, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)

	res, err := c.client.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer closeBody(res)

	if res.StatusCode >= 400 {
		return &APIError{Status: res.StatusCode, Message: fmt.Sprintf("http %d from %s", res.StatusCode, path)}
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// GetQuote は1銘柄の現在値スナップショットを取得します。
func (c *Client) GetQuote(ctx context.Context, code string) (Quote, error) {
	q := url.Values{}
	q.Set("fid_cond_mrkt_div_code", marketDivCode)
	q.Set("fid_input_iscd", code)

	var body dto.QuoteResponse
	if err := c.doQuotation(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", trIDQuote, q, &body); err != nil {
		return Quote{}, err
	}
	if body.RtCd != "0" {
		return Quote{}, &APIError{Status: http.StatusOK, Code: body.MsgCd, Message: body.Msg1}
	}

	price, err := strconv.ParseFloat(body.Output.Price, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse price %q: %w", body.Output.Price, err)
	}
	open, err := strconv.ParseFloat(body.Output.Open, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse open %q: %w", body.Output.Open, err)
	}
	high, err := strconv.ParseFloat(body.Output.High, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse high %q: %w", body.Output.High, err)
	}
	low, err := strconv.ParseFloat(body.Output.Low, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse low %q: %w", body.Output.Low, err)
	}
	vol, err := strconv.ParseInt(body.Output.Volume, 10, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse volume %q: %w", body.Output.Volume, err)
	}

	return Quote{Price: price, Open: open, High: high, Low: low, Volume: vol}, nil
}

// GetDailySeries は直近の確定済み日足（新しい順）を取得します。
// 欠損日のバックフィルに使用します。
func (c *Client) GetDailySeries(ctx context.Context, code string) ([]DailyBar, error) {
	q := url.Values{}
	q.Set("fid_cond_mrkt_div_code", marketDivCode)
	q.Set("fid_input_iscd", code)
	q.Set("fid_period_div_code", "D")

	var body dto.DailyPriceResponse
	if err := c.doQuotation(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-price", trIDDailyPrice, q, &body); err != nil {
		return nil, err
	}
	if body.RtCd != "0" {
		return nil, &APIError{Status: http.StatusOK, Code: body.MsgCd, Message: body.Msg1}
	}

	bars := make([]DailyBar, 0, len(body.Output))
	for _, v := range body.Output {
		tm, err := time.ParseInLocation("20060102", v.Date, marketday.Location)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", v.Date, err)
		}
		o, err := strconv.ParseFloat(v.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("parse open %q: %w", v.Open, err)
		}
		h, err := strconv.ParseFloat(v.High, 64)
		if err != nil {
			return nil, fmt.Errorf("parse high %q: %w", v.High, err)
		}
		l, err := strconv.ParseFloat(v.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("parse low %q: %w", v.Low, err)
		}
		cl, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", v.Close, err)
		}
		vol, err := strconv.ParseInt(v.Volume, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
		}
		bars = append(bars, DailyBar{
			Date:   marketday.FromTime(tm),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: vol,
		})
	}
	return bars, nil
}

func closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}
