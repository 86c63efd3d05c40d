package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yourusername/hasura-intercom/internal/config"
	"github.com/yourusername/hasura-intercom/internal/fetch"
	"github.com/yourusername/hasura-intercom/internal/storage"
)

const (
	loginPath     = "/v1/login"
	logoutPath    = "/v1/user/logout"
	loginProvider = "username"
)

// LoginState は直近のログイン/ログアウト処理の進行状況です。
// ログアウト成功で idle に戻り、失敗すると error になります。
type LoginState string

const (
	StateIdle       LoginState = "idle"
	StateProcessing LoginState = "processing"
	StateSuccess    LoginState = "success"
	StateError      LoginState = "error"
)

// Transport は auth サービスへのリクエストを発行します。*fetch.Client が実装します。
type Transport interface {
	Request(ctx context.Context, url string, opts fetch.Options, onSuccess fetch.SuccessFunc, onError fetch.ErrorFunc)
}

// Controller はログイン状態と永続化レコードを管理します。
type Controller struct {
	store     storage.Storage
	transport Transport
	endpoints config.Endpoints
	logger    zerolog.Logger

	// 未ログイン状態での Logout でロックを解放するか
	releaseOnIdleLogout bool

	lock Lock

	mu      sync.RWMutex
	session Session
	state   LoginState
}

// NewController は永続化レコードを読み込んで Controller を作成します。
// レコードが壊れている場合は警告を出して空のセッションから始めます。
func NewController(ctx context.Context, cfg *config.Config, store storage.Storage, transport Transport, logger zerolog.Logger) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if transport == nil {
		return nil, errors.New("transport is nil")
	}

	c := &Controller{
		store:               store,
		transport:           transport,
		endpoints:           cfg.Endpoints(),
		logger:              logger,
		releaseOnIdleLogout: cfg.ReleaseLockOnIdleLogout,
		state:               StateIdle,
	}

	sess, err := loadSession(ctx, store)
	if err != nil {
		logger.Warn().Err(err).Str("key", StorageKey).Msg("discarding persisted session")
		sess = Session{}
	}
	c.session = sess
	return c, nil
}

func loadSession(ctx context.Context, store storage.Storage) (Session, error) {
	raw, ok, err := store.GetItem(ctx, StorageKey)
	if err != nil {
		return Session{}, err
	}
	if !ok || raw == "" {
		return Session{}, nil
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return sess, nil
}

// Endpoints は auth/data サービスのベースURLを返します。
func (c *Controller) Endpoints() config.Endpoints {
	return c.endpoints
}

// Session は現在のセッションのコピーを返します。
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// IsAuthenticated はトークンを保持しているかを返します。
func (c *Controller) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Authenticated()
}

// Username はログイン中のユーザー名を返します。未ログインなら空文字です。
func (c *Controller) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.Authenticated() {
		return ""
	}
	return c.session.Username
}

// SetUsername はユーザー名を設定して即座に永続化します。
func (c *Controller) SetUsername(ctx context.Context, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Username = username
	return c.persistLocked(ctx)
}

// SetUserInfo は ID・ロール・トークンをまとめて設定して永続化します。
// セッションが認証済みになる唯一の経路です。
func (c *Controller) SetUserInfo(ctx context.Context, info UserInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.ID = info.ID
	c.session.Roles = append([]string(nil), info.Roles...)
	c.session.Token = info.Token
	return c.persistLocked(ctx)
}

// Persist はセッション全体を無条件に書き込みます。
func (c *Controller) Persist(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persistLocked(ctx)
}

func (c *Controller) persistLocked(ctx context.Context) error {
	payload, err := json.Marshal(c.session)
	if err != nil {
		return err
	}
	return c.store.SetItem(ctx, StorageKey, string(payload))
}

// ClearSession はセッションを空にして永続化します。
func (c *Controller) ClearSession(ctx context.Context) error {
	return c.ClearUser(ctx)
}

// ClearUser は ClearSession と同じです。
func (c *Controller) ClearUser(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = Session{}
	return c.persistLocked(ctx)
}

// TryAcquireLock はログイン/ログアウト用ロックの取得を試みます。
func (c *Controller) TryAcquireLock() bool {
	return c.lock.TryAcquire()
}

// ReleaseLock はロックを解放します。
func (c *Controller) ReleaseLock() {
	c.lock.Release()
}

// Locked はログイン/ログアウトが実行中かを返します。
func (c *Controller) Locked() bool {
	return c.lock.Busy()
}

// State は直近のログイン/ログアウト処理の状態を返します。
func (c *Controller) State() LoginState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(state LoginState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Login は auth サービスにログインします。呼び出しはリクエスト発行後すぐに戻り、
// 結果はコールバックで通知されます。
//
// 別のログイン/ログアウトが実行中の場合は何もしません（コールバックも呼ばれません）。
// onError が nil の場合、エラーはロガーに出力されます。
func (c *Controller) Login(ctx context.Context, username, password string, onSuccess func(username string), onError func(err error)) {
	if !c.TryAcquireLock() {
		return
	}
	c.setState(StateProcessing)

	// レスポンスを待たずにユーザー名だけ先に保存する
	if err := c.SetUsername(ctx, username); err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist username")
	}

	body, err := json.Marshal(loginRequest{
		Provider: loginProvider,
		Data:     credentials{Username: username, Password: password},
	})
	if err != nil {
		c.setState(StateError)
		c.report("login", err, onError)
		c.ReleaseLock()
		return
	}

	c.transport.Request(ctx, c.endpoints.Auth+loginPath,
		fetch.Options{
			Method: http.MethodPost,
			Header: fetch.DefaultHeaders(),
			Body:   body,
		},
		func(body json.RawMessage) {
			defer c.ReleaseLock()

			var resp loginResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				c.setState(StateError)
				c.report("login", &fetch.TransportError{Err: fmt.Errorf("decode login response: %w", err)}, onError)
				return
			}
			if err := c.SetUserInfo(ctx, UserInfo{
				ID:    resp.HasuraID,
				Roles: resp.HasuraRoles,
				Token: resp.AuthToken,
			}); err != nil {
				c.logger.Warn().Err(err).Msg("failed to persist session")
			}
			c.setState(StateSuccess)
			if onSuccess != nil {
				onSuccess(c.Session().Username)
			}
		},
		func(err error, structured bool) {
			defer c.ReleaseLock()

			if structured {
				err = loginFailure(err)
			}
			c.setState(StateError)
			c.report("login", err, onError)
		},
	)
}

// Logout は auth サービスからログアウトします。成功するとセッションを空にします。
//
// 別のログイン/ログアウトが実行中の場合は何もしません。未ログインの場合も
// 何もせずに戻りますが、このときロックは保持されたままになります
// （config.ReleaseLockOnIdleLogout が true なら解放します）。
func (c *Controller) Logout(ctx context.Context, onSuccess func(message string), onError func(err error)) {
	if !c.TryAcquireLock() {
		return
	}

	token := c.Session().Token
	if token == "" {
		if c.releaseOnIdleLogout {
			c.ReleaseLock()
		}
		return
	}

	c.setState(StateProcessing)

	header := fetch.DefaultHeaders()
	header.Set("Authorization", "Bearer "+token)

	c.transport.Request(ctx, c.endpoints.Auth+logoutPath,
		fetch.Options{
			Method: http.MethodPost,
			Header: header,
		},
		func(body json.RawMessage) {
			defer c.ReleaseLock()

			// message は任意項目。読めなくてもログアウト自体は成功扱い
			var resp logoutResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				c.logger.Debug().Err(err).Str("body", string(body)).Msg("ignoring undecodable logout response")
			}

			if err := c.ClearSession(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("failed to persist cleared session")
			}
			c.setState(StateIdle)
			if onSuccess != nil {
				onSuccess(resp.Message)
			}
		},
		func(err error, structured bool) {
			defer c.ReleaseLock()

			if structured {
				err = logoutFailure(err)
			}
			c.setState(StateError)
			c.report("logout", err, onError)
		},
	)
}

// report はエラーをコールバックに渡します。コールバックが無ければロガーに出力します。
func (c *Controller) report(op string, err error, onError func(error)) {
	if onError != nil {
		onError(err)
		return
	}
	c.logger.Error().Err(err).Str("op", op).Str("code", ErrorCode(err)).Msg("auth request failed")
}
