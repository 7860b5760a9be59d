package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/correction/usecase"
	"grammar-api-app/internal/presentation/http/middleware"
)

const (
	// bodyOverhead テキスト以外に許す本文のバイト数
	bodyOverhead = 4096
	// maxEncodedRuneBytes 1文字がJSON上で取りうる最大バイト数（サロゲートペアの \uXXXX\uXXXX）
	maxEncodedRuneBytes = 12
)

// CorrectionUseCaseInterface 補正ユースケースのインターフェース
type CorrectionUseCaseInterface interface {
	Correct(ctx context.Context, text string, opts usecase.Options) (*domain.CorrectionResult, error)
	Languages() []domain.Language
	MaxTextLength() int
}

// HealthUseCaseInterface バックエンド診断のインターフェース
type HealthUseCaseInterface interface {
	Check(ctx context.Context) *usecase.HealthReport
}

// CorrectionHandler 補正APIのハンドラー
type CorrectionHandler struct {
	correction CorrectionUseCaseInterface
	health     HealthUseCaseInterface
	logger     *slog.Logger
	now        func() time.Time
}

// NewCorrectionHandler 新しいCorrectionHandlerを作成
func NewCorrectionHandler(correction CorrectionUseCaseInterface, health HealthUseCaseInterface, logger *slog.Logger) *CorrectionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrectionHandler{
		correction: correction,
		health:     health,
		logger:     logger,
		now:        time.Now,
	}
}

// CorrectRequest 補正リクエスト
type CorrectRequest struct {
	Text    string         `json:"text"`
	Options *CorrectOption `json:"options,omitempty"`
}

// CorrectOption 補正リクエストのオプション
type CorrectOption struct {
	Language string `json:"language,omitempty"`
	Backend  string `json:"backend,omitempty"`
}

// CorrectResponse 補正レスポンス
type CorrectResponse struct {
	Success bool         `json:"success"`
	Data    *CorrectData `json:"data,omitempty"`
	Meta    *CorrectMeta `json:"meta,omitempty"`
	Error   string       `json:"error,omitempty"`
	Field   string       `json:"field,omitempty"`
}

// CorrectData 補正結果の本体
type CorrectData struct {
	Original    string                  `json:"original"`
	Corrected   string                  `json:"corrected"`
	Corrections []domain.CorrectionEdit `json:"corrections"`
	Analysis    domain.Analysis         `json:"analysis"`
	Statistics  domain.Statistics       `json:"statistics"`
}

// CorrectMeta 補正結果の付帯情報
type CorrectMeta struct {
	Timestamp      time.Time       `json:"timestamp"`
	ProcessingTime int64           `json:"processingTime"`
	HasChanges     bool            `json:"hasChanges"`
	ServiceUsed    string          `json:"serviceUsed"`
	Language       domain.Language `json:"language"`
	RequestID      string          `json:"requestId,omitempty"`
}

// LanguagesResponse 対応言語のレスポンス
type LanguagesResponse struct {
	Success   bool              `json:"success"`
	Languages []domain.Language `json:"languages"`
}

// HandleCorrect POST /api/correct
func (h *CorrectionHandler) HandleCorrect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	// 文字数の検証はユースケースに任せ、ここではエスケープ後の最悪値で切る
	limit := int64(h.correction.MaxTextLength())*maxEncodedRuneBytes + bodyOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var request CorrectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, "Request body too large", "text", http.StatusRequestEntityTooLarge)
			return
		}
		h.sendError(w, "Invalid request body", "body", http.StatusBadRequest)
		return
	}

	var opts usecase.Options
	if request.Options != nil {
		opts.Language = request.Options.Language
		opts.Backend = request.Options.Backend
	}

	result, err := h.correction.Correct(r.Context(), request.Text, opts)
	if err != nil {
		h.handleCorrectError(w, r, err)
		return
	}

	edits := result.Edits
	if edits == nil {
		edits = []domain.CorrectionEdit{}
	}

	response := CorrectResponse{
		Success: true,
		Data: &CorrectData{
			Original:    result.OriginalText,
			Corrected:   result.CorrectedText,
			Corrections: edits,
			Analysis:    result.Analysis,
			Statistics:  result.Statistics,
		},
		Meta: &CorrectMeta{
			Timestamp:      h.now().UTC(),
			ProcessingTime: result.Statistics.ProcessingTimeMs,
			HasChanges:     result.HasChanges(),
			ServiceUsed:    result.ServiceUsed,
			Language:       result.Language,
			RequestID:      middleware.RequestIDFromContext(r.Context()),
		},
	}

	h.sendJSON(w, response, http.StatusOK)
}

// handleCorrectError 補正の失敗をステータスに変換する
func (h *CorrectionHandler) handleCorrectError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.sendError(w, validationErr.Message, validationErr.Field, http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.sendError(w, "Request cancelled", "", http.StatusServiceUnavailable)
	default:
		h.logger.ErrorContext(r.Context(), "correction failed",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		h.sendError(w, "Correction failed", "", http.StatusInternalServerError)
	}
}

// HandleHealth GET /api/health
func (h *CorrectionHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	report := h.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == usecase.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.sendJSON(w, report, status)
}

// HandleLanguages GET /api/languages
func (h *CorrectionHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	h.sendJSON(w, LanguagesResponse{
		Success:   true,
		Languages: h.correction.Languages(),
	}, http.StatusOK)
}

func (h *CorrectionHandler) sendJSON(w http.ResponseWriter, body any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// sendError エラーレスポンスを送信
func (h *CorrectionHandler) sendError(w http.ResponseWriter, message, field string, statusCode int) {
	h.sendJSON(w, CorrectResponse{
		Success: false,
		Error:   message,
		Field:   field,
	}, statusCode)
}
