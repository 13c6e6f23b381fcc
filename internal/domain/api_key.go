package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// APIKey is a third-party model/API credential a user brings to the product,
// one per provider name. Provider names are free text so users can add
// models that are not in the built-in list.
type APIKey struct {
	UserID    string
	Provider  string
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// APIKeySummary is what the settings screen gets back; the secret itself is
// never returned once saved.
type APIKeySummary struct {
	Provider  string    `json:"provider"`
	Hint      string    `json:"hint"`
	UpdatedAt time.Time `json:"updated_at"`
}

const apiKeyHintVisible = 4

func (k *APIKey) Summary() APIKeySummary {
	return APIKeySummary{
		Provider:  k.Provider,
		Hint:      MaskSecret(k.Key),
		UpdatedAt: k.UpdatedAt,
	}
}

// MaskSecret keeps the last four characters of secrets long enough to spare
// them and masks everything else.
func MaskSecret(secret string) string {
	n := utf8.RuneCountInString(secret)
	if n <= apiKeyHintVisible*2 {
		return strings.Repeat("•", n)
	}
	runes := []rune(secret)
	return strings.Repeat("•", n-apiKeyHintVisible) + string(runes[n-apiKeyHintVisible:])
}

// Built-in providers offered by the settings screen.
var DefaultAPIKeyProviders = []string{
	"Gemini Flash API",
	"SerpAPI",
	"OpenAI GPT-4",
	"DeepL API",
	"Claude (Anthropic)",
	"DeepSeek AI",
}

type SaveAPIKeyRequest struct {
	Provider string `json:"-" validate:"required,trimmed_min=1,max=80,no_emoji"`
	Key      string `json:"api_key" validate:"required,trimmed_min=1,max=512"`
}

// ============================================================================
// Repository Interface
// ============================================================================

type APIKeyRepository interface {
	ListByUser(ctx context.Context, userID string) ([]APIKey, error)
	// Upsert returns ErrNotFound when the user has no profile yet.
	Upsert(ctx context.Context, key *APIKey) (*APIKey, error)
	// Delete returns ErrNotFound when nothing was stored for the provider.
	Delete(ctx context.Context, userID, provider string) error
}

// ============================================================================
// Usecase Interface
// ============================================================================

type APIKeyUsecase interface {
	List(ctx context.Context, userID string) ([]APIKeySummary, error)
	Save(ctx context.Context, userID string, req *SaveAPIKeyRequest) (*APIKeySummary, error)
	Delete(ctx context.Context, userID, provider string) error
}
