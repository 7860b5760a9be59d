package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
)

// OpenAIBackendName OpenAIバックエンドの識別子
const OpenAIBackendName = "openai"

// OpenAIRepository OpenAI Chat Completions APIのリポジトリ実装
type OpenAIRepository struct {
	client    oai.Client
	apiKey    string
	model     string
	maxTokens int
}

// NewOpenAIRepository 新しいOpenAIRepositoryを作成
//
// 再試行はオーケストレーターのフォールバックに任せるためSDK側では行わない。
func NewOpenAIRepository(cfg *config.OpenAIConfig, opts ...option.RequestOption) *OpenAIRepository {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIRepository{
		client:    oai.NewClient(reqOpts...),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Name バックエンド名を返す
func (r *OpenAIRepository) Name() string {
	return OpenAIBackendName
}

// Available APIキーが設定されているか
func (r *OpenAIRepository) Available() bool {
	return strings.TrimSpace(r.apiKey) != ""
}

// TryCorrect テキストを補正
func (r *OpenAIRepository) TryCorrect(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
	if !r.Available() {
		return nil, domain.NewBackendError(OpenAIBackendName, domain.ErrBackendUnavailable, errors.New("OPENAI_API_KEY is not set"))
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPromptCorrection),
			oai.UserMessage(buildUserPrompt(text, language)),
		},
		Temperature: param.NewOpt(0.0),
	}
	if r.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(r.maxTokens))
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.NewBackendError(OpenAIBackendName, domain.ErrNoCorrection, errors.New("response has no choices"))
	}

	candidate := cleanGeneratedText(resp.Choices[0].Message.Content, text)
	return acceptCandidate(OpenAIBackendName, text, candidate, language)
}

// classifyOpenAIError SDKのエラーをバックエンド失敗に変換する
func classifyOpenAIError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return domain.ClassifyStatus(OpenAIBackendName, status, []byte(apiErr.Message))
	}
	return domain.ClassifyTransportError(OpenAIBackendName, fmt.Errorf("chat completion: %w", err))
}
