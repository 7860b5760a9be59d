package middleware

import (
	"context"
	"net/http"
	"time"
)

// HTTPRecorder HTTPリクエストのメトリクス記録先
type HTTPRecorder interface {
	RecordHTTP(ctx context.Context, method, path string, status int, d time.Duration)
}

// unmatchedPath ルートに一致しなかったリクエストのラベル
const unmatchedPath = "unmatched"

// Metrics リクエストの処理時間を記録するミドルウェアを作成
func Metrics(recorder HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			// 任意のパスでラベルが増えないようにする
			path := r.URL.Path
			if rw.statusCode == http.StatusNotFound {
				path = unmatchedPath
			}
			recorder.RecordHTTP(r.Context(), r.Method, path, rw.statusCode, time.Since(start))
		})
	}
}
