package domain

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// coarseEditConfidence トークン数が食い違う場合の粗い編集の確信度
const coarseEditConfidence = 60

// Diff 元テキストと補正後テキストの差分を編集リストにする
//
// 空白と非空白の連続をトークンとして並べて比較する。トークン数が同じなら
// 位置ごとに比較し、異なるトークンごとに1件の編集を出す。トークン数が
// 異なる場合は最初に食い違った位置から末尾までを1件の編集にまとめる。
// 戻り値はオフセット降順（適用順）。
func Diff(original, corrected string) []CorrectionEdit {
	if original == corrected {
		return nil
	}
	if original == "" || corrected == "" {
		return []CorrectionEdit{coarseEdit(original, corrected, 0)}
	}

	a := tokenize(original)
	b := tokenize(corrected)

	if len(a) != len(b) {
		k := 0
		offset := 0
		for k < len(a) && k < len(b) && a[k] == b[k] {
			offset += utf8.RuneCountInString(a[k])
			k++
		}
		return []CorrectionEdit{coarseEdit(strings.Join(a[k:], ""), strings.Join(b[k:], ""), offset)}
	}

	var edits []CorrectionEdit
	offset := 0
	for i := range a {
		n := utf8.RuneCountInString(a[i])
		if a[i] != b[i] {
			category := InferCategory(a[i], b[i])
			edits = append(edits, CorrectionEdit{
				OriginalSpan: a[i],
				Replacement:  b[i],
				Offset:       offset,
				Length:       n,
				Category:     category,
				Message:      editMessage(category, a[i], b[i]),
				Confidence:   DefaultConfidence(category),
			})
		}
		offset += n
	}

	slices.Reverse(edits)
	return edits
}

func coarseEdit(original, corrected string, offset int) CorrectionEdit {
	return CorrectionEdit{
		OriginalSpan: original,
		Replacement:  corrected,
		Offset:       offset,
		Length:       utf8.RuneCountInString(original),
		Category:     CategoryGrammar,
		Message:      "Sentence restructured",
		Confidence:   coarseEditConfidence,
	}
}

// editMessage 差分から作った編集の説明文
func editMessage(category Category, from, to string) string {
	switch category {
	case CategorySpelling:
		return fmt.Sprintf("Possible spelling mistake: %q should be %q", from, to)
	case CategoryPunctuation:
		return fmt.Sprintf("Punctuation: use %q instead of %q", to, from)
	case CategoryFormatting:
		return fmt.Sprintf("Formatting: use %q instead of %q", to, from)
	case CategoryArticle:
		return fmt.Sprintf("Use the article %q instead of %q", to, from)
	case CategoryTense:
		return fmt.Sprintf("Verb tense: use %q instead of %q", to, from)
	default:
		return fmt.Sprintf("Replace %q with %q", from, to)
	}
}

// tokenize 空白の連続と非空白の連続に分割する。連結すると元に戻る
func tokenize(s string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			tokens = append(tokens, s[start:i])
			start = i
			inSpace = space
		}
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// ApplyEdits 編集をオフセット降順で適用する
func ApplyEdits(text string, edits []CorrectionEdit) string {
	if len(edits) == 0 {
		return text
	}

	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b CorrectionEdit) int {
		return b.Offset - a.Offset
	})

	runes := []rune(text)
	for _, e := range sorted {
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > len(runes) {
			continue
		}
		tail := append([]rune(e.Replacement), runes[e.Offset+e.Length:]...)
		runes = append(runes[:e.Offset], tail...)
	}
	return string(runes)
}
