// Package ratelimiter は外部API呼び出しの頻度を制限します。
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	// Wait は直前のリクエストから最小間隔が経過するまで呼び出し元をブロックします。
	Wait(ctx context.Context) error
}

// RateLimiter はプロセス全体で共有する最小リクエスト間隔を強制します。
// 外部プロバイダーへのチャネルは1本であり、並行呼び出しはここでキューイングされ、
// 各呼び出しが自分の待ち時間を負担します。
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter は連続リクエスト間にminInterval以上の間隔を強制する
// RateLimiterの新しいインスタンスを生成します。
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	// バースト1: 直前の発行からminInterval経過するまで次は出さない
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait は次のリクエストを発行してよくなるまで待機します。
// コンテキストがキャンセルされた場合はそのエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
