// Package redis はチャートキャッシュ用のRedisクライアントを提供します。
package redis

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient は環境変数の設定でRedisに接続し、疎通を確認して返します。
// Redisはローソク足の読み取りキャッシュにのみ使うため、接続できない場合でも
// 呼び出し側はキャッシュ無しで動作を続けられます。
func NewRedisClient() (*redis.Client, error) {
	addr := os.Getenv("REDIS_HOST") + ":" + os.Getenv("REDIS_PORT")
	password := os.Getenv("REDIS_PASSWORD")

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("redis unreachable, chart cache disabled", "address", addr, "error", err)
		return nil, err
	}

	slog.Info("redis connected", "address", addr)
	return rdb, nil
}
