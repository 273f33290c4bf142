// Package handler は特定フィーチャーに属さないエンドポイントのハンドラーを提供します。
package handler

import "github.com/gin-gonic/gin"

// Health は /healthz を処理します。ロードバランサーと外部スケジューラの
// 死活監視が使う、認証なしの導通確認です。
func Health(c *gin.Context) {
	// 監視系に古い応答を返させない
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case "HEAD":
		c.Status(200)
	case "OPTIONS":
		c.Status(204)
	default:
		c.JSON(200, gin.H{"status": "ok"})
	}
}
