package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register は auth サービスのルートを登録します。
func Register(router gin.IRouter, m *Manager) {
	router.GET("/health", handleHealth)

	v1 := router.Group("/v1")
	{
		// ログイン時はトークン未発行なので検証は不要
		v1.POST("/login", m.Login)
		v1.POST("/user/logout", m.RequireToken(), m.Logout)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "hasura-intercom-auth",
	})
}
