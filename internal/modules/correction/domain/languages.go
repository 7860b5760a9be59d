package domain

// DefaultLanguageCode 言語指定がない場合のタグ
const DefaultLanguageCode = "en-US"

// SupportedLanguages 対応言語の一覧
var SupportedLanguages = []Language{
	{Name: "English (US)", Code: "en-US"},
	{Name: "English (UK)", Code: "en-GB"},
	{Name: "English (Australia)", Code: "en-AU"},
	{Name: "English (Canada)", Code: "en-CA"},
	{Name: "German", Code: "de-DE"},
	{Name: "French", Code: "fr"},
	{Name: "Spanish", Code: "es"},
	{Name: "Portuguese (Portugal)", Code: "pt-PT"},
	{Name: "Portuguese (Brazil)", Code: "pt-BR"},
	{Name: "Dutch", Code: "nl"},
	{Name: "Italian", Code: "it"},
	{Name: "Polish", Code: "pl-PL"},
	{Name: "Auto-detect", Code: "auto"},
}

// LookupLanguage タグから言語を引く。未知のタグはそのまま名前にする
func LookupLanguage(code string) Language {
	if code == "" {
		code = DefaultLanguageCode
	}
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return l
		}
	}
	return Language{Name: code, Code: code}
}
