package domain

import (
	"cmp"
	"slices"
	"unicode/utf8"
)

// UpstreamResponse バックエンドの応答形状
//
// StructuredEdits か ReplacementText のどちらか。
type UpstreamResponse interface {
	isUpstreamResponse()
}

// UpstreamMatch 構造化応答の1件
type UpstreamMatch struct {
	Offset      int
	Length      int
	Replacement string
	Message     string
	Category    Category
	// Confidence 0なら既定値を使う
	Confidence int
}

// StructuredEdits オフセット付きの置換候補を返すバックエンドの応答
type StructuredEdits struct {
	Matches []UpstreamMatch
}

// ReplacementText 補正後テキスト全体を返すバックエンドの応答
type ReplacementText struct {
	Text string
}

func (StructuredEdits) isUpstreamResponse() {}
func (ReplacementText) isUpstreamResponse() {}

// EditsFromUpstream 応答形状から編集リストと補正後テキストを得る
//
// candidatesは絞り込み前の候補数。
func EditsFromUpstream(original string, resp UpstreamResponse) (edits []CorrectionEdit, corrected string, candidates int) {
	switch r := resp.(type) {
	case ReplacementText:
		edits = Diff(original, r.Text)
		return edits, r.Text, len(edits)
	case StructuredEdits:
		edits = editsFromMatches(original, r.Matches)
		return edits, ApplyEdits(original, edits), len(r.Matches)
	default:
		return nil, original, 0
	}
}

// editsFromMatches 降順（同一オフセットは長い方が先）に並べ、範囲外と重複を除く
func editsFromMatches(original string, matches []UpstreamMatch) []CorrectionEdit {
	runes := []rune(original)
	total := len(runes)

	sorted := slices.Clone(matches)
	slices.SortStableFunc(sorted, func(a, b UpstreamMatch) int {
		if c := cmp.Compare(b.Offset, a.Offset); c != 0 {
			return c
		}
		return cmp.Compare(b.Length, a.Length)
	})

	edits := make([]CorrectionEdit, 0, len(sorted))
	lowest := total + 1
	for _, m := range sorted {
		if m.Offset < 0 || m.Length < 0 || m.Offset+m.Length > total {
			continue
		}
		// 降順に見ているので、直前に採用した編集の開始位置を越えるものは重なり
		if m.Offset+m.Length > lowest {
			continue
		}
		span := string(runes[m.Offset : m.Offset+m.Length])
		if span == m.Replacement {
			continue
		}
		category := m.Category
		if category == "" {
			category = InferCategory(span, m.Replacement)
		}
		confidence := m.Confidence
		if confidence <= 0 {
			confidence = DefaultConfidence(category)
		}
		edits = append(edits, CorrectionEdit{
			OriginalSpan: span,
			Replacement:  m.Replacement,
			Offset:       m.Offset,
			Length:       m.Length,
			Category:     category,
			Message:      m.Message,
			Confidence:   clampScore(confidence),
		})
		lowest = m.Offset
	}
	return edits
}

// RuneLen ルーン数を返す
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
