// Package auth は開発用の Hasura 互換認証サービスを提供します。
//
// /v1/login と /v1/user/logout だけを実装した最小構成で、
// クライアントの動作確認と結合テストに使用します。
package auth

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/hasura-intercom/internal/config"
)

const (
	usernameProvider = "username"

	CodeInvalidRequest        = "invalid-request"
	CodeInvalidProvider       = "invalid-provider"
	CodeInvalidCredentials    = "invalid-creds"
	CodeInvalidToken          = "invalid-token"
	CodeServerMisconfigured   = "server-misconfiguration"
	CodeTokenGenerationFailed = "token-generation-failed"
)

// ContextClaimsKey は、検証済みトークンのクレームをハンドラー間で共有するためのキーです。
const ContextClaimsKey = "auth.claims"

// userNamespace は hasura_id を導出する名前空間です。
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hasura-intercom"))

// Claims は auth_token に含めるクレームです。
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	cfg     *config.Config
	lock    sync.Mutex
	revoked map[string]time.Time // jti -> 有効期限
}

// NewManager は認証マネージャーを作成します。
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:     cfg,
		revoked: make(map[string]time.Time),
	}
}

type loginData struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Provider string    `json:"provider" binding:"required"`
	Data     loginData `json:"data"`
}

// UserID はユーザー名から安定した hasura_id を導出します。
func UserID(username string) string {
	return uuid.NewSHA1(userNamespace, []byte(username)).String()
}

// Login は /v1/login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeInvalidRequest,
			"message": "provider と data.username / data.password を JSON で送ってください",
		})
		return
	}

	if req.Provider != usernameProvider {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeInvalidProvider,
			"message": "未対応の provider です",
		})
		return
	}

	if err := m.ensureCredentials(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    CodeServerMisconfigured,
			"message": err.Error(),
		})
		return
	}

	if req.Data.Username != m.cfg.AppUsername || !m.verifyPassword(req.Data.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    CodeInvalidCredentials,
			"message": "ユーザー名またはパスワードが正しくありません",
		})
		return
	}

	token, claims, err := m.IssueToken(req.Data.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    CodeTokenGenerationFailed,
			"message": "auth_token の生成に失敗しました",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hasura_id":    claims.Subject,
		"hasura_roles": claims.Roles,
		"auth_token":   token,
	})
}

// Logout は /v1/user/logout のハンドラーです。RequireToken の後ろで使います。
func (m *Manager) Logout(c *gin.Context) {
	claims, ok := c.Get(ContextClaimsKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    CodeInvalidToken,
			"message": "ログインが必要です",
		})
		return
	}
	m.revoke(claims.(*Claims))
	c.JSON(http.StatusOK, gin.H{
		"message": "ログアウトしました",
	})
}

// IssueToken は username 用の auth_token を発行します。
func (m *Manager) IssueToken(username string) (string, *Claims, error) {
	if m.cfg.TokenSecret == "" {
		return "", nil, errors.New("TOKEN_SECRET が設定されていません")
	}
	now := time.Now()
	claims := &Claims{
		Roles: m.cfg.Roles(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   UserID(username),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL())),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.TokenSecret))
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// ParseToken は auth_token を検証してクレームを返します。失効済みのトークンはエラーになります。
func (m *Manager) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(m.cfg.TokenSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if m.isRevoked(claims.ID) {
		return nil, errors.New("token has been revoked")
	}
	return claims, nil
}

func (m *Manager) tokenTTL() time.Duration {
	if m.cfg.TokenTTLMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(m.cfg.TokenTTLMinutes) * time.Minute
}

func (m *Manager) ensureCredentials() error {
	if m.cfg.AppUsername == "" {
		return errors.New("APP_USERNAME が設定されていません")
	}
	if m.cfg.AppPasswordHash == "" {
		return errors.New("APP_PASSWORD_HASH が設定されていません")
	}
	if m.cfg.TokenSecret == "" {
		return errors.New("TOKEN_SECRET が設定されていません")
	}
	return nil
}

func (m *Manager) verifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(m.cfg.AppPasswordHash), []byte(password)) == nil
}

func (m *Manager) revoke(claims *Claims) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	// 期限切れのエントリはここで掃除する
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	exp := now.Add(m.tokenTTL())
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	m.revoked[claims.ID] = exp
}

func (m *Manager) isRevoked(id string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	_, ok := m.revoked[id]
	return ok
}
