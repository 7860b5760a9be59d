package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
)

func newTestOpenAIRepository(t *testing.T, handler http.HandlerFunc) *OpenAIRepository {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenAIRepository(&config.OpenAIConfig{
		APIKey:    "test-api-key",
		Model:     "gpt-4o-mini",
		BaseURL:   server.URL + "/v1/",
		MaxTokens: 256,
	})
}

func writeChatCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	})
}

func TestOpenAIRepository_TryCorrect(t *testing.T) {
	t.Run("正常系: テキスト補正_モックサーバー", func(t *testing.T) {
		repo := newTestOpenAIRepository(t, func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
			assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-4o-mini", body["model"])
			messages, ok := body["messages"].([]interface{})
			require.True(t, ok)
			assert.Len(t, messages, 2)

			writeChatCompletion(w, "He doesn't like pizza.")
		})

		result, err := repo.TryCorrect(context.Background(), "He don't like pizza.", "en-US")
		require.NoError(t, err)

		assert.Equal(t, "He doesn't like pizza.", result.CorrectedText)
		assert.Equal(t, OpenAIBackendName, result.ServiceUsed)
		require.Len(t, result.Edits, 1)
		assert.Equal(t, "don't", result.Edits[0].OriginalSpan)
	})

	t.Run("異常系: APIキー未設定", func(t *testing.T) {
		repo := NewOpenAIRepository(&config.OpenAIConfig{Model: "gpt-4o-mini"})
		assert.False(t, repo.Available())

		_, err := repo.TryCorrect(context.Background(), "text", "en-US")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBackendUnavailable))
	})

	t.Run("異常系: 選択肢なし", func(t *testing.T) {
		repo := newTestOpenAIRepository(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":0,"model":"gpt-4o-mini","choices":[]}`))
		})

		_, err := repo.TryCorrect(context.Background(), "He don't like pizza.", "en-US")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNoCorrection))
	})
}

func TestOpenAIRepository_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"異常系: 認証エラー", http.StatusUnauthorized, domain.ErrBackendAuth},
		{"異常系: レート制限", http.StatusTooManyRequests, domain.ErrBackendRateLimited},
		{"異常系: サーバーエラー", http.StatusInternalServerError, domain.ErrBackendFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			repo := newTestOpenAIRepository(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"failed","type":"invalid_request_error"}}`))
			})

			_, err := repo.TryCorrect(context.Background(), "He don't like pizza.", "en-US")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			// SDK側では再試行しない
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}
