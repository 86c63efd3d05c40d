// Package session はクライアント側のログイン状態を管理します。
//
// Controller は認証済みユーザーの ID・ロール・トークンを保持し、
// storage.Storage に JSON として永続化します。ログイン/ログアウトは
// 単一のロックで直列化され、同時に実行中にできるのは 1 件だけです。
package session

import (
	"encoding/json"
	"errors"
)

// StorageKey は永続化レコードのキーです。
const StorageKey = "hasura_intercom.user"

// CodeInvalidCredentials は認証情報が誤っている場合に auth サービスが返すコードです。
const CodeInvalidCredentials = "invalid-creds"

// ErrCorruptSession は永続化レコードが JSON として解釈できないことを表します。
var ErrCorruptSession = errors.New("session: persisted record is corrupted")

// UserID は auth サービスが払い出すユーザー識別子です。
// JSON の文字列と数値のどちらでも受け付け、文字列として書き出します。
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// Session は現在のユーザーを表します。ゼロ値は「セッション無し」です。
type Session struct {
	ID       UserID   `json:"id,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Token    string   `json:"token,omitempty"`
}

// Authenticated はトークンを持っているかを返します。
func (s Session) Authenticated() bool {
	return s.Token != ""
}

func (s Session) clone() Session {
	out := s
	if s.Roles != nil {
		out.Roles = append([]string(nil), s.Roles...)
	}
	return out
}

// UserInfo はログイン成功時にまとめて設定される認証情報です。
type UserInfo struct {
	ID    UserID
	Roles []string
	Token string
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Provider string      `json:"provider"`
	Data     credentials `json:"data"`
}

type loginResponse struct {
	HasuraID    UserID   `json:"hasura_id"`
	HasuraRoles []string `json:"hasura_roles"`
	AuthToken   string   `json:"auth_token"`
}

type logoutResponse struct {
	Message string `json:"message"`
}
