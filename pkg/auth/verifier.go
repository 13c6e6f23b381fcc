package auth

import (
	"errors"
	"fmt"
	"ura-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrMissingSub   = errors.New("auth: token has no subject")
)

// Verifier accepts HS256 tokens signed with the project secret and RS256
// tokens signed by a key from the JWKS endpoint.
type Verifier struct {
	secret []byte
	jwks   *Provider
}

// NewVerifier builds a Verifier. Either argument may be empty/nil, in which
// case tokens using that algorithm family are rejected.
func NewVerifier(secret string, jwks *Provider) *Verifier {
	v := &Verifier{jwks: jwks}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

var _ domain.TokenVerifier = (*Verifier)(nil)

func (v *Verifier) Verify(tokenString string) (*domain.Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, v.keyFunc,
		jwt.WithValidMethods([]string{"HS256", "RS256"}),
	)
	if errors.Is(err, domain.ErrKeysUnavailable) {
		return nil, err
	}
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	// Supabase standard claims
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}
	email, _ := claims["email"].(string)

	return &domain.Claims{UserID: sub, Email: email}, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if v.secret == nil {
			return nil, fmt.Errorf("HS256 token received but SUPABASE_JWT_SECRET is not configured")
		}
		return v.secret, nil
	}

	if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
		if v.jwks == nil {
			return nil, fmt.Errorf("RS256 token received but no JWKS provider is configured")
		}
		return v.jwks.KeyFunc(token)
	}

	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}
