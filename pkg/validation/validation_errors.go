package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-friendly labels
var FieldLabels = map[string]string{
	// Beta registration
	"FullName":     "Full name",
	"Country":      "Country",
	"HeardFrom":    "How you found us",
	"Organization": "Organization",
	"Email":        "Email",

	// Auth
	"Password": "Password",

	// Onboarding / settings
	"FirstName":              "First name",
	"LastName":               "Last name",
	"Username":               "Username",
	"DateOfBirth":            "Date of birth",
	"PhoneNumber":            "Phone number",
	"CountryCode":            "Country code",
	"PostalCode":             "Postal code",
	"SourceDetail":           "Source detail",
	"YoutubeChannel":         "YouTube channel",
	"SocialProfiles":         "Social profiles",
	"ResearchInterests":      "Research interests",
	"ResearchGoals":          "Research goals",
	"OneThingToFind":         "One thing to find",
	"PreferredTools":         "Preferred tools",
	"NotificationPreference": "Notification preference",
	"FeatureSuggestions":     "Feature suggestions",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, return generic message
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)

	case "min", "trimmed_min":
		if e.Kind().String() == "string" || e.Tag() == "trimmed_min" {
			return fmt.Sprintf("%s must be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s must have at least %s items", label, param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s must have at most %s items", label, param)

	case "email", "loose_email":
		return fmt.Sprintf("%s must be a valid email address", label)

	case "discovery_channel":
		return fmt.Sprintf("%s must be one of: Instagram, Facebook, Search Engine, YouTube, Friend", label)

	case "organization":
		return fmt.Sprintf("%s must be Student, Hobby, or a team or organization name of at least 2 characters", label)

	case "username":
		if s, ok := e.Value().(string); ok {
			if problem := UsernameProblem(s); problem != "" {
				return problem
			}
		}
		return fmt.Sprintf("%s is not allowed", label)

	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)

	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))

	case "no_emoji":
		return fmt.Sprintf("%s must not contain emoji or symbols", label)

	default:
		return fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
