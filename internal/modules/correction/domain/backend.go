package domain

import (
	"context"
	"time"
)

// Backend 補正バックエンドの共通インターフェース
type Backend interface {
	// Name 結果のserviceUsedに入る識別子
	Name() string

	// TryCorrect テキストを補正する。失敗はBackendErrorで返す
	TryCorrect(ctx context.Context, text, language string) (*CorrectionResult, error)
}

// BackendRegistration 起動時に決まるバックエンドの登録情報
type BackendRegistration struct {
	Backend   Backend
	Available bool
	// Priority 小さいほど先に試す
	Priority int
	Timeout  time.Duration
}

// RetryPolicy 再試行の方針
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// BuildResult 応答形状から補正結果を組み立てる
func BuildResult(original string, language Language, service string, resp UpstreamResponse) *CorrectionResult {
	edits, corrected, candidates := EditsFromUpstream(original, resp)

	result := &CorrectionResult{
		OriginalText:  original,
		CorrectedText: corrected,
		Edits:         edits,
		Language:      language,
		ServiceUsed:   service,
	}
	Normalize(result, candidates)
	return result
}

// CustomRule 起動時に追加されるルールテーブルの項目
//
// Patternは大文字小文字を区別しない語句として扱う。
type CustomRule struct {
	Pattern     string
	Replacement string
	Category    Category
	Message     string
}
