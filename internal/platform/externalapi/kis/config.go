// Package kis provides a client for the KIS-style domestic stock quotation API.
package kis

import (
	"fmt"
	"os"
	"time"
)

// Config holds configuration for the quotation API client.
type Config struct {
	BaseURL   string        // Base URL for the API (e.g., "https://openapi.example.com:9443")
	AppKey    string        // Application key issued by the provider
	AppSecret string        // Application secret issued by the provider
	Timeout   time.Duration // HTTP request timeout

	// MinRequestInterval is the minimum spacing between any two outbound
	// requests to the provider. The provider enforces a per-second quota,
	// so all calls in the process share one throttle clock.
	MinRequestInterval time.Duration
}

// LoadConfig loads provider configuration from environment variables.
// エンドポイント・キー・シークレットのいずれかが未設定の場合はエラーを返します。
// これは起動時の致命的な設定エラーであり、呼び出しごとの失敗ではありません。
func LoadConfig() (Config, error) {
	cfg := Config{
		BaseURL:            os.Getenv("KIS_BASE_URL"),
		AppKey:             os.Getenv("KIS_APP_KEY"),
		AppSecret:          os.Getenv("KIS_APP_SECRET"),
		Timeout:            10 * time.Second,
		MinRequestInterval: 200 * time.Millisecond,
	}
	if cfg.BaseURL == "" || cfg.AppKey == "" || cfg.AppSecret == "" {
		return Config{}, fmt.Errorf("kis: KIS_BASE_URL, KIS_APP_KEY and KIS_APP_SECRET must be set")
	}
	return cfg, nil
}
