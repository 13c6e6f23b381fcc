package validation

import "strings"

// blockedSubstrings match anywhere in the normalized text.
var blockedSubstrings = []string{
	"fuck", "shit", "bitch", "pussy", "cunt", "whore", "slut", "bastard",
	"nigga", "nigger", "negro", "retard", "faggot", "dyke", "cock", "dick",
}

// blockedTokens are short enough to appear inside innocent words ("class",
// "hello"), so they only match a whole token.
var blockedTokens = map[string]struct{}{
	"ass": {}, "fag": {}, "piss": {}, "damn": {}, "hell": {}, "crap": {},
}

var leetReplacer = strings.NewReplacer(
	"4", "a", "@", "a",
	"3", "e",
	"1", "i", "!", "i",
	"0", "o",
	"5", "s", "$", "s",
	"7", "t",
)

// ContainsProfanity reports whether text, or its leetspeak normalization,
// contains a blocked word.
func ContainsProfanity(text string) bool {
	lower := strings.ToLower(text)
	return matchesBlocked(lower) || matchesBlocked(leetReplacer.Replace(lower))
}

func matchesBlocked(s string) bool {
	for _, w := range blockedSubstrings {
		if strings.Contains(s, w) {
			return true
		}
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	for _, t := range tokens {
		if _, ok := blockedTokens[t]; ok {
			return true
		}
	}
	return false
}

// SanitizeUsername drops every character outside [A-Za-z0-9_-].
func SanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
