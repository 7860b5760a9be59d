package router

import (
	"net/http"

	"grammar-api-app/internal/presentation/di"
	"grammar-api-app/internal/presentation/http/middleware"
)

// NewRouter 新しいルーターを作成
func NewRouter(container *di.Container) http.Handler {
	mux := http.NewServeMux()

	// Correction API ハンドラー
	correctionHandler := container.CorrectionHandler()
	mux.HandleFunc("/api/correct", correctionHandler.HandleCorrect)
	mux.HandleFunc("/api/health", correctionHandler.HandleHealth)
	mux.HandleFunc("/api/languages", correctionHandler.HandleLanguages)

	// Health check
	mux.Handle("/health", container.HealthHandler())

	// Prometheus
	if metricsHandler := container.MetricsHandler(); metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	// ミドルウェアの適用
	var h http.Handler = mux
	h = middleware.Recovery(h)
	if m := container.Metrics(); m != nil {
		h = middleware.Metrics(m)(h)
	}
	h = middleware.LoggerWithHealthCheck(h)
	h = middleware.RequestID(h)
	h = middleware.CORS(h)

	return h
}
