package languagetool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *Repository {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	repo := NewRepository(&config.LanguageToolConfig{
		Enabled:  true,
		Endpoint: server.URL + "/v2/check",
	})
	repo.setHTTPClient(server.Client())
	return repo
}

const checkResponseHeDont = `{
  "matches": [
    {
      "message": "The verb form does not agree with the subject.",
      "shortMessage": "Agreement",
      "offset": 3,
      "length": 5,
      "replacements": [{"value": "doesn't"}, {"value": "didn't"}],
      "rule": {"id": "HE_VERB_AGR", "issueType": "grammar", "category": {"id": "GRAMMAR", "name": "Grammar"}}
    }
  ]
}`

func TestRepository_TryCorrect(t *testing.T) {
	t.Run("正常系: 指摘を補正として適用", func(t *testing.T) {
		repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/check", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "He don't like pizza", r.PostForm.Get("text"))
			assert.Equal(t, "en-US", r.PostForm.Get("language"))
			assert.Empty(t, r.PostForm.Get("apiKey"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(checkResponseHeDont))
		})

		result, err := repo.TryCorrect(context.Background(), "He don't like pizza", "en-US")
		require.NoError(t, err)

		assert.Equal(t, "He doesn't like pizza", result.CorrectedText)
		assert.Equal(t, BackendName, result.ServiceUsed)
		require.Len(t, result.Edits, 1)
		edit := result.Edits[0]
		assert.Equal(t, 3, edit.Offset)
		assert.Equal(t, 5, edit.Length)
		assert.Equal(t, "don't", edit.OriginalSpan)
		assert.Equal(t, "doesn't", edit.Replacement)
		assert.Equal(t, domain.CategoryGrammar, edit.Category)
		assert.Equal(t, "The verb form does not agree with the subject.", edit.Message)
	})

	t.Run("正常系: 指摘なし", func(t *testing.T) {
		repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"matches": []}`))
		})

		result, err := repo.TryCorrect(context.Background(), "I am happy.", "en-US")
		require.NoError(t, err)
		assert.False(t, result.HasChanges())
		assert.Equal(t, 100, result.Analysis.ConfidenceScore)
	})

	t.Run("正常系: 認証情報を送信", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "user@example.com", r.PostForm.Get("username"))
			assert.Equal(t, "secret", r.PostForm.Get("apiKey"))
			_, _ = w.Write([]byte(`{"matches": []}`))
		}))
		defer server.Close()

		repo := NewRepository(&config.LanguageToolConfig{
			Enabled:  true,
			Endpoint: server.URL,
			Username: "user@example.com",
			APIKey:   "secret",
		})
		repo.setHTTPClient(server.Client())

		_, err := repo.TryCorrect(context.Background(), "Fine text.", "en-GB")
		require.NoError(t, err)
	})

	t.Run("異常系: 無効化されている", func(t *testing.T) {
		repo := NewRepository(&config.LanguageToolConfig{Enabled: false, Endpoint: "http://localhost"})
		assert.False(t, repo.Available())

		_, err := repo.TryCorrect(context.Background(), "text", "en-US")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBackendUnavailable))
	})

	t.Run("異常系: 不正なJSON", func(t *testing.T) {
		repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"matches": [`))
		})

		_, err := repo.TryCorrect(context.Background(), "text", "en-US")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBackendFailure))
	})
}

func TestRepository_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"異常系: レート制限", http.StatusTooManyRequests, domain.ErrBackendRateLimited},
		{"異常系: 認証エラー", http.StatusForbidden, domain.ErrBackendAuth},
		{"異常系: 一時停止", http.StatusBadGateway, domain.ErrBackendUnavailable},
		{"異常系: タイムアウト", http.StatusGatewayTimeout, domain.ErrBackendTimeout},
		{"異常系: 不正なリクエスト", http.StatusBadRequest, domain.ErrBackendFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("error"))
			})

			_, err := repo.TryCorrect(context.Background(), "text", "en-US")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestToStructuredEdits(t *testing.T) {
	t.Run("正常系: UTF-16オフセットをルーン位置に変換", func(t *testing.T) {
		// 絵文字はUTF-16で2単位
		text := "😀 teh cat"
		matches := []match{{Offset: 3, Length: 3, Message: "typo"}}
		matches[0].Replacements = append(matches[0].Replacements, struct {
			Value string `json:"value"`
		}{Value: "the"})
		matches[0].Rule.Category.ID = "TYPOS"

		out := toStructuredEdits(text, matches)
		require.Len(t, out.Matches, 1)
		assert.Equal(t, 2, out.Matches[0].Offset)
		assert.Equal(t, 3, out.Matches[0].Length)
		assert.Equal(t, domain.CategorySpelling, out.Matches[0].Category)

		edits, corrected, _ := domain.EditsFromUpstream(text, out)
		assert.Equal(t, "😀 the cat", corrected)
		assert.Len(t, edits, 1)
	})

	t.Run("境界値: 置換候補なしと範囲外は除外", func(t *testing.T) {
		text := "abc"
		matches := []match{
			{Offset: 0, Length: 1},
			{Offset: 2, Length: 5},
		}
		matches[1].Replacements = append(matches[1].Replacements, struct {
			Value string `json:"value"`
		}{Value: "x"})

		out := toStructuredEdits(text, matches)
		assert.Empty(t, out.Matches)
	})

	t.Run("正常系: 短いメッセージで補完", func(t *testing.T) {
		matches := []match{{Offset: 0, Length: 3, ShortMessage: "Spelling"}}
		matches[0].Replacements = append(matches[0].Replacements, struct {
			Value string `json:"value"`
		}{Value: "the"})

		out := toStructuredEdits("teh", matches)
		require.Len(t, out.Matches, 1)
		assert.Equal(t, "Spelling", out.Matches[0].Message)
	})
}

func TestMapCategory(t *testing.T) {
	tests := []struct {
		ruleID     string
		categoryID string
		issueType  string
		want       domain.Category
	}{
		{"EN_A_VS_AN", "MISC", "misspelling", domain.CategoryArticle},
		{"PRP_VBG", "GRAMMAR", "grammar", domain.CategoryPronoun},
		{"PAST_PARTICIPLE_TENSE", "GRAMMAR", "grammar", domain.CategoryTense},
		{"WRONG_PREPOSITION", "GRAMMAR", "grammar", domain.CategoryPreposition},
		{"EN_IDIOM_X", "MISC", "", domain.CategoryIdiom},
		{"MORFOLOGIK_RULE_EN_US", "TYPOS", "misspelling", domain.CategorySpelling},
		{"COMMA_COMPOUND", "PUNCTUATION", "typographical", domain.CategoryPunctuation},
		{"UPPERCASE_SENTENCE_START", "CASING", "typographical", domain.CategoryFormatting},
		{"WHITESPACE_RULE", "TYPOGRAPHY", "whitespace", domain.CategoryFormatting},
		{"EN_REDUNDANCY", "REDUNDANCY", "style", domain.CategoryStyle},
		{"MAKE_RESEARCH", "COLLOCATIONS", "grammar", domain.CategoryCollocation},
		{"HE_VERB_AGR", "GRAMMAR", "grammar", domain.CategoryGrammar},
		{"UNKNOWN", "MISC", "misspelling", domain.CategorySpelling},
		{"UNKNOWN", "MISC", "duplication", domain.CategoryStyle},
		{"UNKNOWN", "MISC", "uncategorized", domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.ruleID+"/"+tt.categoryID, func(t *testing.T) {
			assert.Equal(t, tt.want, mapCategory(tt.ruleID, tt.categoryID, tt.issueType))
		})
	}
}
