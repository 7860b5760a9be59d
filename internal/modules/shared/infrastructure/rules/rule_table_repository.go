package rules

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"grammar-api-app/internal/modules/correction/domain"
)

// BackendName ルールテーブルバックエンドの識別子
const BackendName = "rule-table"

var (
	// 語と語の間の連続した空白
	repeatedSpace = regexp.MustCompile(`[ \t]{2,}`)
	// 句読点の直前の空白
	spaceBeforePunct = regexp.MustCompile(`\w([ \t]+)[,.;:!?]`)
	// 文頭の小文字
	sentenceStart = regexp.MustCompile(`(?:^|[.!?]["')\]]?\s+)([a-z])`)
	// U.S. や e.g. のような点で区切った頭字語
	dottedInitialism = regexp.MustCompile(`^(?:[A-Za-z]\.){2,}$`)
)

// 文末と誤認しやすい略語
var abbreviations = []string{"e.g.", "i.e.", "etc.", "vs.", "mr.", "mrs.", "ms.", "dr.", "prof.", "approx.", "no."}

// RuleTableRepository ルールテーブルによる補正の実装
//
// ネットワークを使わず、常に成功する。
type RuleTableRepository struct {
	rules []Rule
}

// NewRuleTableRepository 新しいRuleTableRepositoryを作成
//
// customは組み込みルールより優先される。
func NewRuleTableRepository(custom []domain.CustomRule) *RuleTableRepository {
	rules := customRules(custom)
	rules = append(rules, builtinRules()...)
	return &RuleTableRepository{rules: rules}
}

// Name バックエンド名を返す
func (r *RuleTableRepository) Name() string {
	return BackendName
}

// RuleCount 登録されているルール数
func (r *RuleTableRepository) RuleCount() int {
	return len(r.rules)
}

// TryCorrect テキストを補正する。エラーは返さない
func (r *RuleTableRepository) TryCorrect(_ context.Context, text, language string) (*domain.CorrectionResult, error) {
	return domain.BuildResult(text, domain.LookupLanguage(language), BackendName, r.Check(text)), nil
}

// candidate バイト位置で表した置換候補
type candidate struct {
	start, end  int
	replacement string
	category    domain.Category
	message     string
	confidence  int
}

func (c candidate) overlaps(start, end int) bool {
	return start < c.end && c.start < end
}

// Check テキストにルールを適用し、構造化応答を返す
func (r *RuleTableRepository) Check(text string) domain.StructuredEdits {
	var accepted []candidate

	add := func(c candidate) {
		if text[c.start:c.end] == c.replacement {
			return
		}
		for _, a := range accepted {
			if a.overlaps(c.start, c.end) {
				return
			}
		}
		accepted = append(accepted, c)
	}

	for _, rule := range r.rules {
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			add(candidate{
				start:       start,
				end:         end,
				replacement: matchCase(text[start:end], rule.Replacement),
				category:    rule.Category,
				message:     rule.Message,
				confidence:  rule.Confidence,
			})
		}
	}

	for _, loc := range spaceBeforePunct.FindAllStringSubmatchIndex(text, -1) {
		add(candidate{
			start:    loc[2],
			end:      loc[3],
			category: domain.CategoryPunctuation,
			message:  "Remove the space before punctuation",
		})
	}

	for _, loc := range repeatedSpace.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		// 行頭のインデントと行末の空白は対象外
		if start == 0 || end == len(text) || isLineBreak(text[start-1]) || isLineBreak(text[end]) {
			continue
		}
		add(candidate{
			start:       start,
			end:         end,
			replacement: " ",
			category:    domain.CategoryFormatting,
			message:     "Collapse repeated whitespace",
		})
	}

	accepted = capitalizeSentences(text, accepted)

	matches := make([]domain.UpstreamMatch, 0, len(accepted))
	for _, c := range accepted {
		offset := utf8.RuneCountInString(text[:c.start])
		matches = append(matches, domain.UpstreamMatch{
			Offset:      offset,
			Length:      utf8.RuneCountInString(text[c.start:c.end]),
			Replacement: c.replacement,
			Message:     c.message,
			Category:    c.category,
			Confidence:  c.confidence,
		})
	}
	return domain.StructuredEdits{Matches: matches}
}

// capitalizeSentences 文頭の小文字を大文字にする
//
// 既存の候補が文頭から始まる場合はその置換を大文字化し、途中にかかる場合は何もしない。
func capitalizeSentences(text string, accepted []candidate) []candidate {
	for _, loc := range sentenceStart.FindAllStringSubmatchIndex(text, -1) {
		pos := loc[2]
		if loc[0] > 0 && followsAbbreviationOrEllipsis(text[:loc[0]+1]) {
			continue
		}

		handled := false
		for i := range accepted {
			c := &accepted[i]
			if c.start == pos {
				c.replacement = upperFirst(c.replacement)
				handled = true
				break
			}
			if c.start < pos && pos < c.end {
				handled = true
				break
			}
		}
		if handled {
			continue
		}

		accepted = append(accepted, candidate{
			start:       pos,
			end:         pos + 1,
			replacement: strings.ToUpper(text[pos : pos+1]),
			category:    domain.CategoryFormatting,
			message:     "Capitalize the first word of a sentence",
		})
	}
	return accepted
}

// followsAbbreviationOrEllipsis 区切り記号が略語か省略記号の一部か
func followsAbbreviationOrEllipsis(prefix string) bool {
	if strings.HasSuffix(prefix, "..") {
		return true
	}
	fields := strings.Fields(prefix)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(fields[len(fields)-1])
	if dottedInitialism.MatchString(last) {
		return true
	}
	for _, abbr := range abbreviations {
		if last == abbr {
			return true
		}
	}
	return false
}

// matchCase 置換元の大文字小文字に置換先を合わせる
func matchCase(original, replacement string) string {
	letters := 0
	upper := 0
	for _, r := range original {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 1 && upper == letters {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		return upperFirst(replacement)
	}
	return replacement
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func isLineBreak(b byte) bool {
	return b == '\n' || b == '\r'
}

// spellingConfidence 綴りの近さから確信度を決める
func spellingConfidence(wrong, right string) int {
	similarity := matchr.JaroWinkler(wrong, right, false)
	return int(math.Round(80 + 15*similarity))
}
