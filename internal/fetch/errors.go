package fetch

import (
	"encoding/json"
	"fmt"
)

// ResponseError はサーバーがエラーペイロードを返したことを表します。
type ResponseError struct {
	Status int
	Body   json.RawMessage
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("fetch: server responded with status %d", e.Status)
}

// Decode はエラーペイロードを v に展開します。
func (e *ResponseError) Decode(v any) error {
	return json.Unmarshal(e.Body, v)
}

// TransportError はレスポンスを解釈できなかった失敗を表します。
// Status はレスポンスを受け取れた場合のみ設定されます。
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	return "fetch: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
