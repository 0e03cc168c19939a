package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// TokenValidator turns a bearer token into a principal.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Principal, error)
}

// CustomClaims holds the profile claims Auth0 adds to access tokens.
type CustomClaims struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

type LocalValidator struct {
	Secret string
}

func (v LocalValidator) Validate(ctx context.Context, token string) (*Principal, error) {
	return VerifyToken(v.Secret, token)
}

type Auth0Validator struct {
	v *validator.Validator
}

// NewAuth0Validator validates RS256 tokens against the issuer's JWKS.
func NewAuth0Validator(issuer, audience string) (*Auth0Validator, error) {
	if !strings.HasSuffix(issuer, "/") {
		issuer += "/"
	}
	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}
	return &Auth0Validator{v: jwtValidator}, nil
}

func (a *Auth0Validator) Validate(ctx context.Context, token string) (*Principal, error) {
	raw, err := a.v.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	claims, ok := raw.(*validator.ValidatedClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return nil, fmt.Errorf("no Auth0 subject found")
	}

	p := &Principal{Subject: claims.RegisteredClaims.Subject, Token: token}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil {
		p.Nickname = custom.Nickname
		p.Email = custom.Email
	}
	return p, nil
}
