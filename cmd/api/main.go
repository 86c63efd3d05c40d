// Package main は開発用認証サーバーのエントリーポイントです。
package main

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/hasura-intercom/internal/applog"
	"github.com/yourusername/hasura-intercom/internal/auth"
	"github.com/yourusername/hasura-intercom/internal/config"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		logger := applog.New("auth-api", "info")
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := applog.New("auth-api", cfg.LogLevel)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery(), applog.RequestLogger(logger))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	auth.Register(router, auth.NewManager(cfg))

	// サーバーの起動
	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("mode", cfg.GinMode).Msg("starting auth server")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
