// Package main は intercom クライアントの CLI です。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/yourusername/hasura-intercom/internal/applog"
	"github.com/yourusername/hasura-intercom/internal/config"
	"github.com/yourusername/hasura-intercom/internal/fetch"
	"github.com/yourusername/hasura-intercom/internal/session"
	"github.com/yourusername/hasura-intercom/internal/storage"
)

// ビルド時に埋め込むバージョン情報
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "intercom",
		Short: "Sign in to the Intercom developer dashboard",
		Long: `intercom manages the dashboard session stored on this machine.

The session is persisted under the "hasura_intercom.user" key of the
configured storage backend (file, redis or memory).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		clearCmd(),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newController は設定を読み込んで Controller を組み立てます。
// 戻り値の cleanup でストレージの接続を閉じます。
func newController(ctx context.Context) (*session.Controller, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := applog.New("intercom", cfg.LogLevel)

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := storage.Close(store); err != nil {
			logger.Warn().Err(err).Msg("failed to close storage")
		}
	}

	ctrl, err := session.NewController(ctx, cfg, store, fetch.NewClient(nil), logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctrl, cleanup, nil
}
