package domain

import (
	"fmt"
	"strings"
)

// ValidateText 補正対象テキストを検証する
//
// 長さはルーン数で数え、maxLengthちょうどは許可する。
func ValidateText(text string, maxLength int) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	if n := RuneLen(text); n > maxLength {
		return &ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("text is too long: %d characters (max %d)", n, maxLength),
		}
	}
	return nil
}
