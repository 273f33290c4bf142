// Package jwtmw は外部の認証サービスが発行したアイデンティティトークンを
// 検証するGinミドルウェアを提供します。トークンの発行は本サービスの責務外です。
package jwtmw

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserID はGinコンテキストに格納する認証済みユーザーIDのキーです。
const ContextUserID = "userID"

// AuthRequired はBearerトークンを検証し、subクレームのユーザーIDを
// コンテキストに載せるミドルウェアを返します。取引・ポートフォリオ系の
// ルートは全てこのミドルウェアの背後に置かれます。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		secret := os.Getenv(EnvKeyJWTSecret)
		if secret == "" {
			// 共有シークレット未設定はサーバー側の設定ミス
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			// HMAC以外の署名方式は受け付けない
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			// JWTの数値はfloat64でデコードされる
			if sub, ok := claims["sub"].(float64); ok {
				c.Set(ContextUserID, uint(sub))
			}
		}
		c.Next()
	}
}
