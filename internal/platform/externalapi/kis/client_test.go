package kis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading_backend/internal/shared/marketday"
	"trading_backend/internal/shared/ratelimiter"
)

const tokenJSON = `{"access_token":"test-token","token_type":"Bearer","expires_in":86400}`

// newTestServer は token エンドポイントと照会エンドポイントを持つテストサーバーを返します。
func newTestServer(t *testing.T, tokenCalls *int, quotation http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token request method: got %s, want POST", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode token request: %v", err)
		}
		if body["grant_type"] != "client_credentials" {
			t.Errorf("grant_type: got %q", body["grant_type"])
		}
		if body["appkey"] != "test-key" || body["appsecret"] != "test-secret" {
			t.Errorf("credentials not forwarded: %v", body)
		}
		*tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tokenJSON))
	})
	mux.HandleFunc("/uapi/", quotation)
	return httptest.NewServer(mux)
}

func newTestClient(server *httptest.Server) *Client {
	cfg := Config{
		BaseURL:            server.URL,
		AppKey:             "test-key",
		AppSecret:          "test-secret",
		Timeout:            5 * time.Second,
		MinRequestInterval: time.Millisecond,
	}
	return NewClient(cfg, server.Client(), ratelimiter.NewRateLimiter(cfg.MinRequestInterval))
}

func TestClient_GetQuote_Success(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header: got %q", got)
		}
		if got := r.Header.Get("tr_id"); got != trIDQuote {
			t.Errorf("tr_id: got %q, want %q", got, trIDQuote)
		}
		if got := r.URL.Query().Get("fid_input_iscd"); got != "005930" {
			t.Errorf("stock code: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"rt_cd": "0",
			"output": {
				"stck_prpr": "71500",
				"stck_oprc": "70000",
				"stck_hgpr": "71500",
				"stck_lwpr": "69800",
				"acml_vol": "12345678"
			}
		}`))
	})
	defer server.Close()

	c := newTestClient(server)
	q, err := c.GetQuote(context.Background(), "005930")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Price != 71500 {
		t.Errorf("price: got %f, want 71500", q.Price)
	}
	if q.Open != 70000 || q.High != 71500 || q.Low != 69800 {
		t.Errorf("day range: got %+v", q)
	}
	if q.Volume != 12345678 {
		t.Errorf("volume: got %d", q.Volume)
	}
}

// TestClient_TokenCachedAcrossCalls はトークンが呼び出しごとに取得されず、
// キャッシュが再利用されることを検証します。
func TestClient_TokenCachedAcrossCalls(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rt_cd":"0","output":{"stck_prpr":"100","stck_oprc":"100","stck_hgpr":"100","stck_lwpr":"100","acml_vol":"1"}}`))
	})
	defer server.Close()

	c := newTestClient(server)
	for i := 0; i < 3; i++ {
		if _, err := c.GetQuote(context.Background(), "005930"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if tokenCalls != 1 {
		t.Errorf("token fetched %d times, want 1", tokenCalls)
	}
}

func TestClient_GetQuote_ProviderError(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rt_cd":"1","msg_cd":"EGW00123","msg1":"기간이 만료된 token 입니다"}`))
	})
	defer server.Close()

	c := newTestClient(server)
	_, err := c.GetQuote(context.Background(), "005930")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != "EGW00123" {
		t.Errorf("code: got %q", apiErr.Code)
	}
}

func TestClient_GetQuote_HTTPError(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	c := newTestClient(server)
	_, err := c.GetQuote(context.Background(), "005930")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", apiErr.Status)
	}
}

func TestClient_GetDailySeries_Success(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	server := newTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("tr_id"); got != trIDDailyPrice {
			t.Errorf("tr_id: got %q, want %q", got, trIDDailyPrice)
		}
		_, _ = w.Write([]byte(`{
			"rt_cd": "0",
			"output": [
				{"stck_bsop_date":"20250630","stck_oprc":"70000","stck_hgpr":"71500","stck_lwpr":"69800","stck_clpr":"71000","acml_vol":"1000"},
				{"stck_bsop_date":"20250627","stck_oprc":"69000","stck_hgpr":"70200","stck_lwpr":"68900","stck_clpr":"70000","acml_vol":"900"}
			]
		}`))
	})
	defer server.Close()

	c := newTestClient(server)
	bars, err := c.GetDailySeries(context.Background(), "005930")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("bars: got %d, want 2", len(bars))
	}
	want := marketday.Date{Year: 2025, Month: time.June, Day: 30}
	if bars[0].Date != want {
		t.Errorf("date: got %v, want %v", bars[0].Date, want)
	}
	if bars[0].Close != 71000 {
		t.Errorf("close: got %f, want 71000", bars[0].Close)
	}
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	t.Setenv("KIS_BASE_URL", "")
	t.Setenv("KIS_APP_KEY", "")
	t.Setenv("KIS_APP_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when credentials are not configured")
	}

	t.Setenv("KIS_BASE_URL", "https://example.com")
	t.Setenv("KIS_APP_KEY", "k")
	t.Setenv("KIS_APP_SECRET", "s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppKey != "k" {
		t.Errorf("app key: got %q", cfg.AppKey)
	}
}
