// Package fetch は HTTP リクエストの薄いラッパーです。
//
// 結果は成功と失敗の 2 つのコールバックに正規化されます。失敗は
// サーバーがエラーペイロードを返した場合（structured=true）と、
// レスポンスを得られなかった通信レベルの失敗（structured=false）に分かれます。
// リトライやタイムアウトは行いません。
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// SuccessFunc は 2xx レスポンスの JSON ボディを受け取ります。
type SuccessFunc func(body json.RawMessage)

// ErrorFunc は失敗を受け取ります。structured が true のとき err は *ResponseError、
// false のとき *TransportError です。
type ErrorFunc func(err error, structured bool)

// Options はリクエストの内容です。
type Options struct {
	Method string
	Header http.Header
	Body   []byte
}

// DefaultHeaders は JSON API 用の既定ヘッダーを返します。
func DefaultHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json; charset=utf-8")
	return h
}

// Client はリクエストを発行します。
type Client struct {
	http *http.Client
}

// NewClient は Client を作成します。hc が nil の場合はタイムアウト無しのクライアントを使います。
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc}
}

// Request はリクエストを非同期に発行し、完了時にどちらか一方のコールバックを 1 回だけ呼びます。
// onSuccess と onError は必須です。
func (c *Client) Request(ctx context.Context, url string, opts Options, onSuccess SuccessFunc, onError ErrorFunc) {
	go func() {
		body, err := c.Do(ctx, url, opts)
		if err != nil {
			var respErr *ResponseError
			onError(err, errors.As(err, &respErr))
			return
		}
		onSuccess(body)
	}()
}

// Do はリクエストを同期的に発行します。
// 2xx 以外のレスポンスは *ResponseError、それ以外の失敗は *TransportError を返します。
func (c *Client) Do(ctx context.Context, url string, opts Options) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if opts.Body != nil {
		reader = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if opts.Header != nil {
		req.Header = opts.Header.Clone()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: err}
	}
	// 成功・失敗どちらでもボディは JSON として扱う
	if !json.Valid(data) {
		return nil, &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("response body is not valid JSON (status %d)", resp.StatusCode),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{Status: resp.StatusCode, Body: data}
	}
	return data, nil
}
