package decision

import (
	"regexp"
	"strings"
)

// Question patterns answered without a classifier call when the fast path is enabled
var directQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\?$`),
	regexp.MustCompile(`(?i)^(what|who|when|where|why|how|cual|cuál|quien|quién|cuando|cuándo|donde|dónde|por que|por qué|como|cómo|que es|qué es)\b`),
	regexp.MustCompile(`(?i)^(es tu|cual es|cuál es|dime|tell me|what is|who is)\b`),
	regexp.MustCompile(`(?i)nombre\?`),
}

// shortQuestionOpeners mark short messages that read as questions even without "?"
var shortQuestionOpeners = []string{"es ", "que ", "qué ", "como ", "cómo "}

// isDirectQuestion reports whether text is an obvious, self-contained question
func isDirectQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, pattern := range directQuestionPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}

	lower := strings.ToLower(trimmed)
	if len([]rune(lower)) >= 20 {
		return false
	}
	if strings.Contains(lower, "?") {
		return true
	}
	for _, opener := range shortQuestionOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}
