package session

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const minPasswordLength = 6

// FieldErrors は入力項目ごとの検証エラーです。
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// ValidateCredentials はログインフォームの入力を検証します。問題が無ければ nil を返します。
func ValidateCredentials(username, password string) FieldErrors {
	errs := FieldErrors{}
	if username == "" {
		errs["username"] = "Username cannot be empty"
	}
	if password == "" {
		errs["password"] = "Password cannot be empty"
	} else if utf8.RuneCountInString(password) < minPasswordLength {
		errs["password"] = "Password must be greater than 5 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
