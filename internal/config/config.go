// Package config は環境変数から設定を読み込み、クライアントと開発用認証サーバーで使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ストレージバックエンドの種別です。
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// DefaultCluster は INTERCOM_CLUSTER 未指定時に使うクラスター名です。
const DefaultCluster = "cannibalism26"

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// クライアント設定
	Cluster         string // Hasura クラスター名（auth/data の URL を導出する）
	AuthURLOverride string // auth サービスのベースURLを直接指定する場合に使用
	DataURLOverride string // data サービスのベースURLを直接指定する場合に使用

	// 永続化設定
	StorageBackend string // file / redis / memory
	StoragePath    string // file バックエンドの保存先
	RedisURL       string // redis バックエンドの接続URL

	// ログアウト時に未ログインだった場合もロックを解放するか
	ReleaseLockOnIdleLogout bool

	// ログ設定
	LogLevel string

	// 開発用認証サーバー設定
	Port               string // APIサーバーのポート番号
	GinMode            string // Ginの実行モード (debug, release, test)
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）
	AppUsername        string // ログイン用ユーザー名
	AppPasswordHash    string // bcryptでハッシュ化されたパスワード
	AppRoles           string // 付与するロール（カンマ区切り）
	TokenSecret        string // auth_token 署名用の秘密鍵
	TokenTTLMinutes    int    // auth_token の有効期限（分）
}

// Endpoints は cluster から導出される各サービスのベースURLです。
type Endpoints struct {
	Auth string
	Data string
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		Cluster:         getEnv("INTERCOM_CLUSTER", DefaultCluster),
		AuthURLOverride: getEnv("INTERCOM_AUTH_URL", ""),
		DataURLOverride: getEnv("INTERCOM_DATA_URL", ""),

		StorageBackend: strings.ToLower(getEnv("INTERCOM_STORAGE", StorageFile)),
		StoragePath:    getEnv("INTERCOM_STORAGE_PATH", ".hasura_intercom.json"),
		RedisURL:       getEnv("INTERCOM_REDIS_URL", "redis://127.0.0.1:6379/0"),

		ReleaseLockOnIdleLogout: getEnvAsBool("INTERCOM_RELEASE_LOCK_ON_IDLE_LOGOUT", false),

		LogLevel: getEnv("INTERCOM_LOG_LEVEL", "info"),

		Port:               getEnv("PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		AppUsername:        getEnv("APP_USERNAME", ""),
		AppPasswordHash:    getEnv("APP_PASSWORD_HASH", ""),
		AppRoles:           getEnv("APP_ROLES", "user"),
		TokenSecret:        getEnv("TOKEN_SECRET", ""),
		TokenTTLMinutes:    getEnvAsInt("TOKEN_TTL_MINUTES", 720),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageFile:
		if c.StoragePath == "" {
			return fmt.Errorf("INTERCOM_STORAGE_PATH is required for file storage")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("INTERCOM_REDIS_URL is required for redis storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown INTERCOM_STORAGE %q", c.StorageBackend)
	}

	if c.Cluster == "" && (c.AuthURLOverride == "" || c.DataURLOverride == "") {
		return fmt.Errorf("INTERCOM_CLUSTER is required unless both service URLs are set")
	}

	// 開発用サーバーの認証設定はローカルでは任意、release では必須
	if c.GinMode == "release" {
		if c.AppUsername == "" {
			return fmt.Errorf("APP_USERNAME is required in release mode")
		}
		if c.AppPasswordHash == "" {
			return fmt.Errorf("APP_PASSWORD_HASH is required in release mode")
		}
		if c.TokenSecret == "" {
			return fmt.Errorf("TOKEN_SECRET is required in release mode")
		}
	}

	return nil
}

// Endpoints は auth/data サービスのベースURLを返します。
// 個別指定がある場合はそちらを優先します。
func (c *Config) Endpoints() Endpoints {
	ep := Endpoints{
		Auth: "https://auth." + c.Cluster + ".hasura-app.io",
		Data: "https://data." + c.Cluster + ".hasura-app.io",
	}
	if c.AuthURLOverride != "" {
		ep.Auth = strings.TrimRight(c.AuthURLOverride, "/")
	}
	if c.DataURLOverride != "" {
		ep.Data = strings.TrimRight(c.DataURLOverride, "/")
	}
	return ep
}

// Roles は AppRoles を配列に変換します。空要素は除外します。
func (c *Config) Roles() []string {
	var roles []string
	for _, r := range strings.Split(c.AppRoles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
