// Package http は外部サービス呼び出し用のHTTPクライアント設定を提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は相場プロバイダー呼び出し用に調整したHTTPクライアントを作成します。
// http.DefaultClientはタイムアウトを持たないため使用しません。
//
//   - Dialer.Timeout: TCP接続は5秒で諦める（場中のポーリングを詰まらせない）
//   - KeepAlive / MaxIdleConns: ポーリングのたびに接続を張り直さない
//   - Client.Timeout: リクエスト全体の上限。プロバイダー設定から渡される
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
