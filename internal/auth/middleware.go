package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// RequireToken は Authorization: Bearer <auth_token> を検証するミドルウェアを返します。
func (m *Manager) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    CodeInvalidToken,
				"message": "Authorization ヘッダーに Bearer トークンを指定してください",
			})
			return
		}

		claims, err := m.ParseToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    CodeInvalidToken,
				"message": "トークンが無効か、有効期限が切れています",
			})
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}
