package domain

import (
	"math"
	"slices"
	"strings"
)

// 品質スコアの重み
const (
	lengthWeight     = 0.3
	wordCountWeight  = 0.3
	similarityWeight = 0.4
)

// Normalize 編集リストを整え、統計と評価値を埋める
//
// candidatesは整える前の候補数。
func Normalize(result *CorrectionResult, candidates int) {
	result.Edits = normalizeEdits(result.Edits)

	if candidates < len(result.Edits) {
		candidates = len(result.Edits)
	}
	result.Statistics.TotalCandidates = candidates
	result.Statistics.AppliedCount = len(result.Edits)
	result.Statistics.OriginalLength = RuneLen(result.OriginalText)
	result.Statistics.CorrectedLength = RuneLen(result.CorrectedText)

	result.Analysis = Analyze(result.OriginalText, result.CorrectedText, result.Edits)
}

// normalizeEdits 空の置換と重複、重なりを除き、オフセット降順に揃える
func normalizeEdits(edits []CorrectionEdit) []CorrectionEdit {
	if len(edits) == 0 {
		return []CorrectionEdit{}
	}

	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b CorrectionEdit) int {
		if a.Offset != b.Offset {
			return b.Offset - a.Offset
		}
		return b.Length - a.Length
	})

	out := make([]CorrectionEdit, 0, len(sorted))
	lowest := math.MaxInt
	for _, e := range sorted {
		if e.IsNoop() {
			continue
		}
		if e.End() > lowest {
			continue
		}
		e.Confidence = clampScore(e.Confidence)
		if e.Category == "" {
			e.Category = CategoryOther
		}
		out = append(out, e)
		lowest = e.Offset
	}
	return out
}

// Analyze 確信度・品質スコア・カテゴリ内訳を計算する
func Analyze(original, corrected string, edits []CorrectionEdit) Analysis {
	breakdown := make(map[Category]int)
	for _, e := range edits {
		breakdown[e.Category]++
	}

	return Analysis{
		ConfidenceScore:   ConfidenceScore(edits),
		QualityScore:      QualityScore(original, corrected),
		CategoryBreakdown: breakdown,
	}
}

// ConfidenceScore 編集の確信度の平均。編集がなければ100
func ConfidenceScore(edits []CorrectionEdit) int {
	if len(edits) == 0 {
		return 100
	}
	sum := 0
	for _, e := range edits {
		sum += clampScore(e.Confidence)
	}
	return clampScore(int(math.Round(float64(sum) / float64(len(edits)))))
}

// QualityScore 長さ・単語数・語彙の一致度から0〜100の品質スコアを出す
func QualityScore(original, corrected string) int {
	if strings.TrimSpace(original) == "" {
		return 100
	}

	origWords := strings.Fields(original)
	corrWords := strings.Fields(corrected)

	lengthConsistency := consistency(RuneLen(original), RuneLen(corrected))
	wordConsistency := consistency(len(origWords), len(corrWords))
	similarity := jaccard(origWords, corrWords)

	score := 100 * (lengthWeight*lengthConsistency + wordCountWeight*wordConsistency + similarityWeight*similarity)
	return clampScore(int(math.Round(score)))
}

// IsDegenerate 候補が採用できない形かどうか
//
// 入力と同一の候補は「補正不要」として扱い、退化とはみなさない。
func IsDegenerate(original, candidate string) bool {
	if original == candidate {
		return false
	}
	n := RuneLen(candidate)
	return n < 3 || n > 2*RuneLen(original)
}

func consistency(original, corrected int) float64 {
	if original == 0 {
		if corrected == 0 {
			return 1
		}
		return 0
	}
	diff := math.Abs(float64(corrected - original))
	return math.Max(0, 1-diff/float64(original))
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[strings.ToLower(w)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[strings.ToLower(w)] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func clampScore(v int) int {
	return max(0, min(100, v))
}
