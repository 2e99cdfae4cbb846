// Package pattern classifies LLM completions that are really upstream
// failures in disguise: some providers report transport or server errors
// as the text of an otherwise successful response, so the only way to
// catch them is to match the text itself.
package pattern

import (
	"regexp"
	"strings"
)

var signatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)error code: 5\d\d`),
	regexp.MustCompile(`(?i)apitimeouterror`),
	regexp.MustCompile(`(?i)request timed out`),
	regexp.MustCompile(`(?i)internal server error`),
	regexp.MustCompile(`(?i)error counting tokens`),
	regexp.MustCompile(`(?i)bad status code`),
	regexp.MustCompile(`(?i)connection error`),
	regexp.MustCompile(`(?i)remote end closed connection`),
	regexp.MustCompile(`(?i)read timeout`),
	regexp.MustCompile(`(?i)connect timeout`),
}

// LooksLikeError reports whether text is a disguised upstream failure.
func LooksLikeError(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if strings.Contains(text, "API") && strings.Contains(text, "请求失败") {
		return true
	}
	for _, sig := range signatures {
		if sig.MatchString(text) {
			return true
		}
	}
	return false
}
