package session

import (
	"errors"
	"fmt"

	"github.com/yourusername/hasura-intercom/internal/fetch"
)

// LoginError は /v1/login が返したエラーペイロードです。
type LoginError struct {
	Status int
	Code   string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s (status %d)", e.Code, e.Status)
}

// LogoutError は /v1/user/logout が返したエラーペイロードです。
type LogoutError struct {
	Status  int
	Message string
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("logout failed: %s (status %d)", e.Message, e.Status)
}

// ErrorCode はエラーからユーザー向けのコードまたはメッセージを取り出します。
// サーバー由来でないエラーはそのままのエラー文字列を返します。
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var loginErr *LoginError
	if errors.As(err, &loginErr) {
		return loginErr.Code
	}
	var logoutErr *LogoutError
	if errors.As(err, &logoutErr) {
		return logoutErr.Message
	}
	return err.Error()
}

// IsInvalidCredentials は認証情報の誤りによる失敗かどうかを返します。
func IsInvalidCredentials(err error) bool {
	var loginErr *LoginError
	return errors.As(err, &loginErr) && loginErr.Code == CodeInvalidCredentials
}

func loginFailure(err error) error {
	var respErr *fetch.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	var payload struct {
		Code string `json:"code"`
	}
	if decodeErr := respErr.Decode(&payload); decodeErr != nil {
		return err
	}
	return &LoginError{Status: respErr.Status, Code: payload.Code}
}

func logoutFailure(err error) error {
	var respErr *fetch.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	var payload struct {
		Message string `json:"message"`
	}
	if decodeErr := respErr.Decode(&payload); decodeErr != nil {
		return err
	}
	return &LogoutError{Status: respErr.Status, Message: payload.Message}
}
