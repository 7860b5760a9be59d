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

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
)

// ClaudeBackendName Claudeバックエンドの識別子
const ClaudeBackendName = "anthropic-claude"

// ClaudeRepository Claude APIのリポジトリ実装
type ClaudeRepository struct {
	apiKey      string
	model       string
	maxTokens   int
	httpClient  *http.Client
	apiEndpoint string // テスト用にエンドポイントを差し替え可能に
}

// NewClaudeRepository 新しいClaudeRepositoryを作成
//
// タイムアウトは呼び出し側のcontextで管理する。
func NewClaudeRepository(cfg *config.AnthropicConfig) *ClaudeRepository {
	return &ClaudeRepository{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{},
		apiEndpoint: "https://api.anthropic.com/v1/messages",
	}
}

// setHTTPClient テスト用にHTTPクライアントを設定（テストコードからのみ使用）
func (r *ClaudeRepository) setHTTPClient(client *http.Client) {
	r.httpClient = client
}

// Name バックエンド名を返す
func (r *ClaudeRepository) Name() string {
	return ClaudeBackendName
}

// Available APIキーが設定されているか
func (r *ClaudeRepository) Available() bool {
	return strings.TrimSpace(r.apiKey) != ""
}

// TryCorrect テキストを補正
func (r *ClaudeRepository) TryCorrect(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
	if !r.Available() {
		return nil, domain.NewBackendError(ClaudeBackendName, domain.ErrBackendUnavailable, errors.New("ANTHROPIC_API_KEY is not set"))
	}

	requestBody := map[string]interface{}{
		"model":       r.model,
		"max_tokens":  r.maxTokens,
		"temperature": 0,
		"system":      systemPromptCorrection,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "text", "text": buildUserPrompt(text, language)},
				},
			},
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, domain.ClassifyTransportError(ClaudeBackendName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.ClassifyStatus(ClaudeBackendName, resp.StatusCode, body)
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, domain.NewBackendError(ClaudeBackendName, domain.ErrBackendFailure, fmt.Errorf("failed to decode response: %w", err))
	}

	var generated strings.Builder
	for _, block := range response.Content {
		if block.Type == "" || block.Type == "text" {
			generated.WriteString(block.Text)
		}
	}

	candidate := cleanGeneratedText(generated.String(), text)
	return acceptCandidate(ClaudeBackendName, text, candidate, language)
}
