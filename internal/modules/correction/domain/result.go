package domain

// Language 言語タグと表示名
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Statistics 補正処理の統計
type Statistics struct {
	TotalCandidates  int   `json:"totalCandidates"`
	AppliedCount     int   `json:"appliedCount"`
	OriginalLength   int   `json:"originalLength"`
	CorrectedLength  int   `json:"correctedLength"`
	ProcessingTimeMs int64 `json:"processingTimeMs"`
}

// Analysis 補正結果の評価値
type Analysis struct {
	ConfidenceScore   int              `json:"confidenceScore"`
	QualityScore      int              `json:"qualityScore"`
	CategoryBreakdown map[Category]int `json:"categoryBreakdown"`
}

// CorrectionResult 1リクエスト分の補正結果
//
// リクエストごとに生成され、返却後は変更しない。
type CorrectionResult struct {
	OriginalText  string           `json:"original"`
	CorrectedText string           `json:"corrected"`
	Edits         []CorrectionEdit `json:"corrections"`
	Language      Language         `json:"language"`
	ServiceUsed   string           `json:"serviceUsed"`
	Statistics    Statistics       `json:"statistics"`
	Analysis      Analysis         `json:"analysis"`
}

// HasChanges テキストが補正されたかどうかを判定
func (r *CorrectionResult) HasChanges() bool {
	return r.OriginalText != r.CorrectedText
}
