package languagetool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf16"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
)

// BackendName LanguageToolバックエンドの識別子
const BackendName = "languagetool"

// Repository LanguageTool APIのリポジトリ実装
type Repository struct {
	enabled    bool
	endpoint   string
	username   string
	apiKey     string
	httpClient *http.Client
}

// NewRepository 新しいRepositoryを作成
func NewRepository(cfg *config.LanguageToolConfig) *Repository {
	return &Repository{
		enabled:    cfg.Enabled,
		endpoint:   cfg.Endpoint,
		username:   cfg.Username,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
	}
}

// setHTTPClient テスト用にHTTPクライアントを設定（テストコードからのみ使用）
func (r *Repository) setHTTPClient(client *http.Client) {
	r.httpClient = client
}

// Name バックエンド名を返す
func (r *Repository) Name() string {
	return BackendName
}

// Available 有効化されていてエンドポイントが設定されているか
func (r *Repository) Available() bool {
	return r.enabled && r.endpoint != ""
}

type checkResponse struct {
	Matches []match `json:"matches"`
}

type match struct {
	Message      string `json:"message"`
	ShortMessage string `json:"shortMessage"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Rule struct {
		ID        string `json:"id"`
		IssueType string `json:"issueType"`
		Category  struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"category"`
	} `json:"rule"`
}

// TryCorrect テキストを検査し、各指摘の先頭の置換候補を採用する
func (r *Repository) TryCorrect(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
	if !r.Available() {
		return nil, domain.NewBackendError(BackendName, domain.ErrBackendUnavailable, errors.New("languagetool is disabled"))
	}

	lang := domain.LookupLanguage(language)

	form := url.Values{
		"text":     {text},
		"language": {lang.Code},
	}
	if r.username != "" && r.apiKey != "" {
		form.Set("username", r.username)
		form.Set("apiKey", r.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, domain.ClassifyTransportError(BackendName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.ClassifyStatus(BackendName, resp.StatusCode, body)
	}

	var response checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, domain.NewBackendError(BackendName, domain.ErrBackendFailure, fmt.Errorf("failed to decode response: %w", err))
	}

	return domain.BuildResult(text, lang, BackendName, toStructuredEdits(text, response.Matches)), nil
}

// toStructuredEdits 応答の指摘をルーン単位の構造化応答に変換する
func toStructuredEdits(text string, matches []match) domain.StructuredEdits {
	index := utf16ToRuneIndex(text)

	out := domain.StructuredEdits{Matches: make([]domain.UpstreamMatch, 0, len(matches))}
	for _, m := range matches {
		if len(m.Replacements) == 0 {
			continue
		}
		start, end := m.Offset, m.Offset+m.Length
		if start < 0 || end < start || end >= len(index) {
			continue
		}

		message := m.Message
		if message == "" {
			message = m.ShortMessage
		}
		out.Matches = append(out.Matches, domain.UpstreamMatch{
			Offset:      index[start],
			Length:      index[end] - index[start],
			Replacement: m.Replacements[0].Value,
			Message:     message,
			Category:    mapCategory(m.Rule.ID, m.Rule.Category.ID, m.Rule.IssueType),
		})
	}
	return out
}

// utf16ToRuneIndex UTF-16コード単位の位置からルーン位置への対応表を作る
//
// LanguageToolのoffset/lengthはUTF-16単位で返る。
func utf16ToRuneIndex(text string) []int {
	index := make([]int, 0, len(text)+1)
	runeIdx := 0
	for _, r := range text {
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			index = append(index, runeIdx)
		}
		runeIdx++
	}
	return append(index, runeIdx)
}

// mapCategory ルールIDとカテゴリから補正カテゴリを決める
func mapCategory(ruleID, categoryID, issueType string) domain.Category {
	id := strings.ToUpper(ruleID)
	switch {
	case strings.Contains(id, "A_VS_AN") || strings.Contains(id, "ARTICLE"):
		return domain.CategoryArticle
	case strings.Contains(id, "PRP") || strings.Contains(id, "PRONOUN"):
		return domain.CategoryPronoun
	case strings.Contains(id, "TENSE") || strings.Contains(id, "PAST_PART"):
		return domain.CategoryTense
	case strings.Contains(id, "PREPOSITION"):
		return domain.CategoryPreposition
	case strings.Contains(id, "IDIOM"):
		return domain.CategoryIdiom
	}

	switch strings.ToUpper(categoryID) {
	case "TYPOS", "SPELLING":
		return domain.CategorySpelling
	case "GRAMMAR", "CONFUSED_WORDS":
		return domain.CategoryGrammar
	case "PUNCTUATION":
		return domain.CategoryPunctuation
	case "CASING", "TYPOGRAPHY", "WHITESPACE":
		return domain.CategoryFormatting
	case "STYLE", "REDUNDANCY", "PLAIN_ENGLISH", "REPETITIONS", "REPETITIONS_STYLE":
		return domain.CategoryStyle
	case "COLLOCATIONS":
		return domain.CategoryCollocation
	}

	switch strings.ToLower(issueType) {
	case "misspelling":
		return domain.CategorySpelling
	case "grammar":
		return domain.CategoryGrammar
	case "typographical", "whitespace":
		return domain.CategoryFormatting
	case "style", "duplication":
		return domain.CategoryStyle
	}
	return domain.CategoryOther
}
