package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Regex patterns
var (
	// Deliberately loose: something@something.something, no whitespace.
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30

	// minimum length of the free-text part of Team:/Organization: answers
	orgNameMinLength = 2
)

// Fixed organization answers; the prefixed ones carry a free-text name.
const (
	OrgStudent            = "Student"
	OrgHobby              = "Hobby"
	OrgTeamPrefix         = "Team:"
	OrgOrganizationPrefix = "Organization:"
)

var discoveryChannels = map[string]struct{}{
	"Instagram":     {},
	"Facebook":      {},
	"Search Engine": {},
	"YouTube":       {},
	"Friend":        {},
}

// New returns a validator with the custom tags registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("trimmed_min", TrimmedMin)
	_ = v.RegisterValidation("loose_email", LooseEmail)
	_ = v.RegisterValidation("discovery_channel", DiscoveryChannel)
	_ = v.RegisterValidation("organization", Organization)
	_ = v.RegisterValidation("username", Username)
	_ = v.RegisterValidation("no_emoji", NoEmoji)
}

// TrimmedMin checks the rune length of the trimmed value against the param.
func TrimmedMin(fl validator.FieldLevel) bool {
	n, ok := parseParam(fl.Param())
	if !ok {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fieldString(fl))) >= n
}

// LooseEmail validates the address shape accepted by the beta form.
func LooseEmail(fl validator.FieldLevel) bool {
	return IsEmail(fieldString(fl))
}

func IsEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// DiscoveryChannel validates the "How did you find us?" answer
func DiscoveryChannel(fl validator.FieldLevel) bool {
	_, ok := discoveryChannels[fieldString(fl)]
	return ok
}

// Organization validates the organization answer
func Organization(fl validator.FieldLevel) bool {
	return IsOrganization(fieldString(fl))
}

func IsOrganization(s string) bool {
	switch {
	case s == OrgStudent || s == OrgHobby:
		return true
	case strings.HasPrefix(s, OrgTeamPrefix):
		return utf8.RuneCountInString(strings.TrimSpace(strings.TrimPrefix(s, OrgTeamPrefix))) >= orgNameMinLength
	case strings.HasPrefix(s, OrgOrganizationPrefix):
		return utf8.RuneCountInString(strings.TrimSpace(strings.TrimPrefix(s, OrgOrganizationPrefix))) >= orgNameMinLength
	}
	return false
}

// Username validates charset, length and the profanity list.
func Username(fl validator.FieldLevel) bool {
	return UsernameProblem(fieldString(fl)) == ""
}

// UsernameProblem returns a user-facing reason the username is unusable, or
// "" when it passes the static checks. Availability is checked separately.
func UsernameProblem(s string) string {
	n := utf8.RuneCountInString(s)
	switch {
	case n < UsernameMinLength:
		return "Username must be at least 3 characters"
	case n > UsernameMaxLength:
		return "Username must be at most 30 characters"
	case !usernameRegex.MatchString(s):
		return "Username may only contain letters, numbers, - and _"
	case ContainsProfanity(s):
		return "Username contains inappropriate language"
	}
	return ""
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	for _, r := range fieldString(fl) {
		if r > 0x1F000 {
			return false
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return false
		}
	}
	return true
}

// fieldString dereferences pointer fields; nil reads as "".
func fieldString(fl validator.FieldLevel) string {
	f := fl.Field()
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return ""
		}
		f = f.Elem()
	}
	if f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

func parseParam(param string) (int, bool) {
	n, err := strconv.Atoi(param)
	return n, err == nil
}
