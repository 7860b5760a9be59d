package ai

import (
	"fmt"
	"regexp"
	"strings"

	"grammar-api-app/internal/modules/correction/domain"
)

// systemPromptCorrection 文法・綴り補正用のプロンプト
const systemPromptCorrection = `You are a meticulous copy editor.
Correct the grammar, spelling, and punctuation of the text provided by the user.

Rules:
1. Keep the author's meaning, tone, and formatting (line breaks, lists, markdown).
2. Change only what is wrong. Do not rephrase sentences that are already correct.
3. Do not add explanations, notes, quotes, or any preamble.
4. If the text is already correct, return it unchanged.
5. Return only the corrected text.`

// buildUserPrompt 言語タグ付きのユーザープロンプトを作る
func buildUserPrompt(text, language string) string {
	lang := domain.LookupLanguage(language)
	if lang.Code == "auto" {
		return text
	}
	return fmt.Sprintf("Language: %s (%s)\n\n%s", lang.Name, lang.Code, text)
}

// 生成モデルが付けがちな前置き
var boilerplatePrefixes = regexp.MustCompile(`(?i)^\s*(?:(?:sure[,!.]?\s*)?here(?:'s| is)\s+(?:the\s+)?(?:corrected|fixed|revised|edited)\s+(?:version\s+of\s+the\s+)?(?:text|sentence|version)|(?:the\s+)?(?:corrected|fixed|revised|edited)\s+(?:text|sentence|version))\s*:\s*`)

var markdownFence = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n(.*?)\\n?\\s*```\\s*$")

// cleanGeneratedText 生成テキストから前置き・コードフェンス・引用符を取り除く
func cleanGeneratedText(generated, original string) string {
	s := strings.TrimSpace(generated)

	if m := markdownFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if !boilerplatePrefixes.MatchString(original) {
		s = boilerplatePrefixes.ReplaceAllString(s, "")
	}

	// 元テキストが引用符で囲まれていない場合のみ外す
	if len(s) >= 2 && !strings.HasPrefix(strings.TrimSpace(original), `"`) {
		if (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
			(strings.HasPrefix(s, "“") && strings.HasSuffix(s, "”")) {
			s = strings.TrimSpace(trimQuotes(s))
		}
	}

	// 元テキストの前後の空白を保つ
	return leadingSpace(original) + s + trailingSpace(original)
}

func trimQuotes(s string) string {
	r := []rune(s)
	return string(r[1 : len(r)-1])
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t\r\n"))]
}

func trailingSpace(s string) string {
	return s[len(strings.TrimRight(s, " \t\r\n")):]
}

// acceptCandidate 生成結果が採用可能か確認し、補正結果を組み立てる
func acceptCandidate(backend, original, candidate, language string) (*domain.CorrectionResult, error) {
	if domain.IsDegenerate(original, candidate) {
		return nil, domain.NewBackendError(backend, domain.ErrNoCorrection,
			fmt.Errorf("degenerate candidate (%d chars for %d char input)", domain.RuneLen(candidate), domain.RuneLen(original)))
	}
	return domain.BuildResult(original, domain.LookupLanguage(language), backend, domain.ReplacementText{Text: candidate}), nil
}
