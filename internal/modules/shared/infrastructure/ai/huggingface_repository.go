package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
)

// HuggingFaceBackendName Hugging Faceバックエンドの識別子
const HuggingFaceBackendName = "huggingface"

// errModelLoading モデルのウォームアップ中を表す
var errModelLoading = errors.New("model is currently loading")

// HuggingFaceRepository Hugging Face Inference APIのリポジトリ実装
type HuggingFaceRepository struct {
	apiKey     string
	endpoint   string
	policy     domain.RetryPolicy
	timer      retry.Timer
	httpClient *http.Client
}

// NewHuggingFaceRepository 新しいHuggingFaceRepositoryを作成
func NewHuggingFaceRepository(cfg *config.HuggingFaceConfig) *HuggingFaceRepository {
	return &HuggingFaceRepository{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Model,
		policy: domain.RetryPolicy{
			MaxAttempts: cfg.WarmupRetries + 1,
			Backoff:     cfg.WarmupBackoff,
		},
		httpClient: &http.Client{},
	}
}

// setHTTPClient テスト用にHTTPクライアントを設定（テストコードからのみ使用）
func (r *HuggingFaceRepository) setHTTPClient(client *http.Client) {
	r.httpClient = client
}

// WithTimer 待機に使うタイマーを差し替える
func (r *HuggingFaceRepository) WithTimer(t retry.Timer) *HuggingFaceRepository {
	r.timer = t
	return r
}

// Name バックエンド名を返す
func (r *HuggingFaceRepository) Name() string {
	return HuggingFaceBackendName
}

// Available APIキーが設定されているか
func (r *HuggingFaceRepository) Available() bool {
	return strings.TrimSpace(r.apiKey) != ""
}

// TryCorrect テキストを補正
//
// モデルがウォームアップ中(503)の場合のみ、方針に従って待ってから再試行する。
func (r *HuggingFaceRepository) TryCorrect(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
	if !r.Available() {
		return nil, domain.NewBackendError(HuggingFaceBackendName, domain.ErrBackendUnavailable, errors.New("HUGGINGFACE_API_KEY is not set"))
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(1, r.policy.MaxAttempts))),
		retry.Delay(r.policy.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errModelLoading)
		}),
	}
	if r.timer != nil {
		opts = append(opts, retry.WithTimer(r.timer))
	}

	generated, err := retry.DoWithData(func() (string, error) {
		return r.generate(ctx, text)
	}, opts...)
	if err != nil {
		if errors.Is(err, errModelLoading) {
			return nil, domain.NewBackendError(HuggingFaceBackendName, domain.ErrBackendUnavailable, err)
		}
		return nil, err
	}

	candidate := cleanGeneratedText(generated, text)
	return acceptCandidate(HuggingFaceBackendName, text, candidate, language)
}

// generate 推論APIを1回呼び出す
func (r *HuggingFaceRepository) generate(ctx context.Context, text string) (string, error) {
	requestBody := map[string]interface{}{
		"inputs": "grammar: " + text,
		"parameters": map[string]interface{}{
			"max_new_tokens":   max(64, 2*domain.RuneLen(text)),
			"num_beams":        4,
			"return_full_text": false,
		},
		"options": map[string]interface{}{
			"wait_for_model": false,
			"use_cache":      true,
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", domain.ClassifyTransportError(HuggingFaceBackendName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.ClassifyTransportError(HuggingFaceBackendName, err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable && isModelLoading(body) {
		return "", errModelLoading
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.ClassifyStatus(HuggingFaceBackendName, resp.StatusCode, body)
	}

	var outputs []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &outputs); err != nil {
		return "", domain.NewBackendError(HuggingFaceBackendName, domain.ErrBackendFailure, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(outputs) == 0 {
		return "", domain.NewBackendError(HuggingFaceBackendName, domain.ErrNoCorrection, errors.New("empty response"))
	}
	return outputs[0].GeneratedText, nil
}

// isModelLoading 503応答がウォームアップ中を示すか
func isModelLoading(body []byte) bool {
	var payload struct {
		Error         string  `json:"error"`
		EstimatedTime float64 `json:"estimated_time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(payload.Error), "loading") || payload.EstimatedTime > 0
}
