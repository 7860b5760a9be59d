package handler

import (
	"encoding/json"
	"net/http"
)

// HealthHandler 死活監視のハンドラー
//
// バックエンドには問い合わせない。診断は /api/health が行う。
type HealthHandler struct {
	version string
}

// NewHealthHandler 新しいHealthHandlerを作成
func NewHealthHandler(version string) *HealthHandler {
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{version: version}
}

// HealthResponse ヘルスチェックのレスポンス
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ServeHTTP ヘルスチェックを処理
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
