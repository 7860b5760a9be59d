package rules

import (
	"maps"
	"regexp"
	"slices"
	"strings"

	"grammar-api-app/internal/modules/correction/domain"
)

// Rule 1件の置換ルール
//
// Patternにキャプチャグループがある場合は最初のグループだけを置換する。
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
	Category    domain.Category
	Message     string
	Confidence  int
}

// phraseRule 大文字小文字を区別しない語句ルールを作る
func phraseRule(phrase, replacement string, category domain.Category, message string) Rule {
	words := strings.Fields(phrase)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return Rule{
		Pattern:     regexp.MustCompile(`(?i)\b` + strings.Join(quoted, `\s+`) + `\b`),
		Replacement: replacement,
		Category:    category,
		Message:     message,
	}
}

// contextRule 前後の語を条件にするルールを作る
func contextRule(pattern, replacement string, category domain.Category, message string) Rule {
	return Rule{
		Pattern:     regexp.MustCompile(pattern),
		Replacement: replacement,
		Category:    category,
		Message:     message,
	}
}

// よくある綴りの誤り
var misspellings = map[string]string{
	"recieve":      "receive",
	"recieved":     "received",
	"teh":          "the",
	"definately":   "definitely",
	"seperate":     "separate",
	"occured":      "occurred",
	"occurence":    "occurrence",
	"untill":       "until",
	"wich":         "which",
	"accomodate":   "accommodate",
	"alot":         "a lot",
	"becuase":      "because",
	"beleive":      "believe",
	"goverment":    "government",
	"enviroment":   "environment",
	"tommorow":     "tomorrow",
	"tommorrow":    "tomorrow",
	"wierd":        "weird",
	"thier":        "their",
	"truely":       "truly",
	"arguement":    "argument",
	"begining":     "beginning",
	"calender":     "calendar",
	"existance":    "existence",
	"grammer":      "grammar",
	"independant":  "independent",
	"neccessary":   "necessary",
	"publically":   "publicly",
	"recomend":     "recommend",
	"refered":      "referred",
	"succesful":    "successful",
	"suprise":      "surprise",
	"acheive":      "achieve",
	"adress":       "address",
	"apparantly":   "apparently",
	"basicly":      "basically",
	"comming":      "coming",
	"concious":     "conscious",
	"embarass":     "embarrass",
	"finaly":       "finally",
	"foward":       "forward",
	"freind":       "friend",
	"happend":      "happened",
	"knowlege":     "knowledge",
	"libary":       "library",
	"noticable":    "noticeable",
	"posession":    "possession",
	"realy":        "really",
	"remeber":      "remember",
	"sucess":       "success",
	"writting":     "writing",
	"mispell":      "misspell",
	"occassion":    "occasion",
	"persue":       "pursue",
	"tounge":       "tongue",
	"vaccuum":      "vacuum",
	"wether":       "whether",
	"youre":        "you're",
	"dont":         "don't",
	"doesnt":       "doesn't",
	"cant":         "can't",
	"wont":         "won't",
	"isnt":         "isn't",
	"didnt":        "didn't",

	"responsability": "responsibility",
}

// builtinRules 組み込みのルール。先に並んだものが優先される
func builtinRules() []Rule {
	rules := []Rule{
		// 主語と動詞の一致
		contextRule(`(?i)\b(?:he|she|it)\s+(don't|dont)\b`, "doesn't", domain.CategoryGrammar, `Use "doesn't" with a third-person singular subject`),
		contextRule(`(?i)\b(?:i|you|we|they)\s+(doesn't|doesnt)\b`, "don't", domain.CategoryGrammar, `Use "don't" with this subject`),
		contextRule(`(?i)\b(?:you|we|they)\s+(was)\b`, "were", domain.CategoryGrammar, `Use "were" with a plural subject`),

		// 完了形
		contextRule(`(?i)\b(?:have|has|had)\s+(went)\b`, "gone", domain.CategoryTense, `Use the past participle "gone" after "have"`),
		contextRule(`(?i)\b(?:have|has|had)\s+(ate)\b`, "eaten", domain.CategoryTense, `Use the past participle "eaten" after "have"`),
		contextRule(`(?i)\b(?:have|has|had)\s+(wrote)\b`, "written", domain.CategoryTense, `Use the past participle "written" after "have"`),
		phraseRule("could of", "could have", domain.CategoryGrammar, `"could of" should be "could have"`),
		phraseRule("should of", "should have", domain.CategoryGrammar, `"should of" should be "should have"`),
		phraseRule("would of", "would have", domain.CategoryGrammar, `"would of" should be "would have"`),
		phraseRule("must of", "must have", domain.CategoryGrammar, `"must of" should be "must have"`),
		phraseRule("might of", "might have", domain.CategoryGrammar, `"might of" should be "might have"`),

		// 冠詞
		contextRule(`\b((?i:a))\s+(?:a|i[^s\s]|is\w|e[^u\s]|o[^n\s]|on[^ec\s])`, "an", domain.CategoryArticle, `Use "an" before a vowel sound`),
		contextRule(`\b((?i:an))\s+[bcdfgjklmnpqrstvwz]`, "a", domain.CategoryArticle, `Use "a" before a consonant sound`),

		// 代名詞
		contextRule(`(?:^|\s)(i)(?:\s|'|,|$)`, "I", domain.CategoryPronoun, `The pronoun "I" is always capitalized`),
		phraseRule("between you and I", "between you and me", domain.CategoryPronoun, `Use the object pronoun "me" after a preposition`),

		// 前置詞
		phraseRule("depend of", "depend on", domain.CategoryPreposition, `"depend" takes "on"`),
		phraseRule("depends of", "depends on", domain.CategoryPreposition, `"depend" takes "on"`),
		phraseRule("married with", "married to", domain.CategoryPreposition, `"married" takes "to"`),
		phraseRule("interested on", "interested in", domain.CategoryPreposition, `"interested" takes "in"`),
		phraseRule("afraid from", "afraid of", domain.CategoryPreposition, `"afraid" takes "of"`),

		// コロケーション
		phraseRule("make a research", "do research", domain.CategoryCollocation, `"research" is done, not made`),
		phraseRule("do a mistake", "make a mistake", domain.CategoryCollocation, `Mistakes are made, not done`),
		phraseRule("in regards to", "with regard to", domain.CategoryCollocation, `Use "with regard to"`),

		// 慣用句
		phraseRule("for all intensive purposes", "for all intents and purposes", domain.CategoryIdiom, `The idiom is "for all intents and purposes"`),
		phraseRule("nip it in the butt", "nip it in the bud", domain.CategoryIdiom, `The idiom is "nip it in the bud"`),
		phraseRule("one in the same", "one and the same", domain.CategoryIdiom, `The idiom is "one and the same"`),
		phraseRule("case and point", "case in point", domain.CategoryIdiom, `The idiom is "case in point"`),

		// 文体
		phraseRule("irregardless", "regardless", domain.CategoryStyle, `"irregardless" is nonstandard`),
		phraseRule("very unique", "unique", domain.CategoryStyle, `"unique" is not gradable`),
	}

	for _, wrong := range slices.Sorted(maps.Keys(misspellings)) {
		right := misspellings[wrong]
		r := phraseRule(wrong, right, domain.CategorySpelling, `Possible spelling mistake: "`+right+`"`)
		r.Confidence = spellingConfidence(wrong, right)
		rules = append(rules, r)
	}
	return rules
}

// customRules 追加ルールを語句ルールに変換する
func customRules(custom []domain.CustomRule) []Rule {
	rules := make([]Rule, 0, len(custom))
	for _, c := range custom {
		if strings.TrimSpace(c.Pattern) == "" {
			continue
		}
		category := c.Category
		if category == "" {
			category = domain.CategoryOther
		}
		message := c.Message
		if message == "" {
			message = `Replace with "` + c.Replacement + `"`
		}
		rules = append(rules, phraseRule(c.Pattern, c.Replacement, category, message))
	}
	return rules
}
