package domain

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Category 補正の分類
type Category string

const (
	CategoryGrammar     Category = "grammar"
	CategorySpelling    Category = "spelling"
	CategoryPunctuation Category = "punctuation"
	CategoryTense       Category = "tense"
	CategoryPronoun     Category = "pronoun"
	CategoryArticle     Category = "article"
	CategoryPreposition Category = "preposition"
	CategoryCollocation Category = "collocation"
	CategoryIdiom       Category = "idiom"
	CategoryStyle       Category = "style"
	CategoryFormatting  Category = "formatting"
	CategoryOther       Category = "other"
)

// Categories 全カテゴリ
var Categories = []Category{
	CategoryGrammar, CategorySpelling, CategoryPunctuation, CategoryTense,
	CategoryPronoun, CategoryArticle, CategoryPreposition, CategoryCollocation,
	CategoryIdiom, CategoryStyle, CategoryFormatting, CategoryOther,
}

// ParseCategory 文字列をCategoryに変換する。未知の値はother
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}

// CorrectionEdit 元テキストに対する1件の置換
//
// Offset/Lengthはルーン単位で元テキストを指す。
type CorrectionEdit struct {
	OriginalSpan string   `json:"originalSpan"`
	Replacement  string   `json:"replacement"`
	Offset       int      `json:"offset"`
	Length       int      `json:"length"`
	Category     Category `json:"category"`
	Message      string   `json:"message"`
	Confidence   int      `json:"confidence"`
}

// End 置換範囲の終端オフセット
func (e CorrectionEdit) End() int {
	return e.Offset + e.Length
}

// IsNoop 置換前後が同じ場合true
func (e CorrectionEdit) IsNoop() bool {
	return e.OriginalSpan == e.Replacement
}

// カテゴリごとの既定の確信度
var defaultConfidence = map[Category]int{
	CategorySpelling:    90,
	CategoryPunctuation: 90,
	CategoryFormatting:  85,
	CategoryArticle:     85,
	CategoryPronoun:     80,
	CategoryTense:       80,
	CategoryPreposition: 75,
	CategoryCollocation: 70,
	CategoryIdiom:       70,
	CategoryStyle:       65,
	CategoryGrammar:     75,
	CategoryOther:       60,
}

// DefaultConfidence カテゴリの既定確信度を返す
func DefaultConfidence(c Category) int {
	if v, ok := defaultConfidence[c]; ok {
		return v
	}
	return defaultConfidence[CategoryOther]
}

var (
	articleWords     = wordSet("a", "an", "the")
	pronounWords     = wordSet("i", "me", "my", "mine", "you", "your", "yours", "he", "him", "his", "she", "her", "hers", "it", "its", "we", "us", "our", "ours", "they", "them", "their", "theirs", "who", "whom", "whose")
	prepositionWords = wordSet("in", "on", "at", "to", "for", "from", "with", "by", "of", "about", "into", "onto", "over", "under", "between", "among", "through", "during", "since", "until", "towards", "toward")
)

// 主語と動詞の一致で入れ替わる語
var agreementWords = wordSet("do", "does", "don't", "doesn't", "have", "has", "is", "are", "am", "was", "were", "go", "goes")

// 時制の違いを表す語の組
var tensePairs = map[[2]string]struct{}{
	{"is", "was"}: {}, {"are", "were"}: {}, {"am", "was"}: {}, {"has", "had"}: {}, {"have", "had"}: {},
	{"do", "did"}: {}, {"does", "did"}: {}, {"don't", "didn't"}: {}, {"doesn't", "didn't"}: {},
	{"go", "went"}: {}, {"goes", "went"}: {}, {"went", "gone"}: {}, {"will", "would"}: {},
	{"see", "saw"}: {}, {"saw", "seen"}: {}, {"come", "came"}: {}, {"eat", "ate"}: {}, {"run", "ran"}: {},
}

func isTensePair(a, b string) bool {
	if _, ok := tensePairs[[2]string{a, b}]; ok {
		return true
	}
	_, ok := tensePairs[[2]string{b, a}]
	return ok
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func inSet(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}

// InferCategory 置換前後のトークンから分類を推定する
func InferCategory(original, replacement string) Category {
	if strings.TrimSpace(original) == "" && strings.TrimSpace(replacement) == "" {
		return CategoryFormatting
	}
	if strings.EqualFold(original, replacement) {
		return CategoryFormatting
	}

	origWord, origPunct := splitPunctuation(original)
	replWord, replPunct := splitPunctuation(replacement)
	if strings.EqualFold(origWord, replWord) && origPunct != replPunct {
		return CategoryPunctuation
	}

	o := strings.ToLower(origWord)
	r := strings.ToLower(replWord)
	switch {
	case inSet(articleWords, o) && inSet(articleWords, r):
		return CategoryArticle
	case inSet(pronounWords, o) && inSet(pronounWords, r):
		return CategoryPronoun
	case inSet(prepositionWords, o) && inSet(prepositionWords, r):
		return CategoryPreposition
	case isTensePair(o, r):
		return CategoryTense
	case inSet(agreementWords, o) && inSet(agreementWords, r):
		return CategoryGrammar
	}

	if strings.ContainsAny(o, " \t\n") || strings.ContainsAny(r, " \t\n") {
		return CategoryGrammar
	}
	if o != "" && r != "" && looksLikeMisspelling(o, r) {
		return CategorySpelling
	}
	return CategoryGrammar
}

// splitPunctuation 単語部分と句読点部分に分ける
func splitPunctuation(s string) (string, string) {
	var word, punct strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) && r != '\'' && r != '-' {
			punct.WriteRune(r)
			continue
		}
		word.WriteRune(r)
	}
	return word.String(), punct.String()
}

// looksLikeMisspelling 綴りの近さから誤字かどうかを判定する
func looksLikeMisspelling(a, b string) bool {
	limit := max(1, min(len([]rune(a)), len([]rune(b)))/3)
	if matchr.DamerauLevenshtein(a, b) <= limit {
		return true
	}
	return matchr.JaroWinkler(a, b, false) >= 0.9
}
