package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// バックエンド失敗の分類
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendRateLimited = errors.New("backend rate limited")
	ErrBackendAuth        = errors.New("backend authentication failed")
	ErrBackendTimeout     = errors.New("backend timeout")
	ErrBackendFailure     = errors.New("backend failure")
	// ErrNoCorrection 候補が退化していて採用できない
	ErrNoCorrection = errors.New("no correction found")
	// ErrAllBackendsExhausted 終端のルールテーブルまで失敗した。通常は起こらない
	ErrAllBackendsExhausted = errors.New("all correction backends exhausted")
)

// BackendError バックエンド呼び出しの失敗
type BackendError struct {
	Backend string
	Kind    error
	Err     error
}

// NewBackendError 新しいBackendErrorを作成
func NewBackendError(backend string, kind, err error) *BackendError {
	return &BackendError{Backend: backend, Kind: kind, Err: err}
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Backend, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ClassifyStatus HTTPステータスをバックエンド失敗に変換する
func ClassifyStatus(backend string, status int, body []byte) error {
	detail := fmt.Errorf("API returned status %d: %s", status, truncate(string(body), 200))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewBackendError(backend, ErrBackendAuth, detail)
	case status == http.StatusTooManyRequests:
		return NewBackendError(backend, ErrBackendRateLimited, detail)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewBackendError(backend, ErrBackendTimeout, detail)
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		return NewBackendError(backend, ErrBackendUnavailable, detail)
	default:
		return NewBackendError(backend, ErrBackendFailure, detail)
	}
}

// ClassifyTransportError 通信エラーをバックエンド失敗に変換する
//
// 呼び出し元のキャンセルはそのまま返す。
func ClassifyTransportError(backend string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewBackendError(backend, ErrBackendTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewBackendError(backend, ErrBackendTimeout, err)
	}
	return NewBackendError(backend, ErrBackendFailure, err)
}

// ValidationError 入力検証エラー
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
