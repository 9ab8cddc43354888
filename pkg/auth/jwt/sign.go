package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// SignOptions describes a token minted by Sign.
type SignOptions struct {
	Secret   string
	Subject  string
	Issuer   string
	Audience string
	TTL      time.Duration

	// UserClaim names the claim carrying Subject. Default: "sub".
	UserClaim string

	// Scopes are written as a space-separated "scope" claim.
	Scopes []string
}

// Sign mints an HS256 token that an Authenticator configured with the same
// secret, issuer, and audience accepts. It exists for development tooling
// and tests; production tokens come from an identity provider.
func Sign(opts SignOptions, now time.Time) (string, error) {
	if opts.Secret == "" {
		return "", fmt.Errorf("secret is required")
	}
	if opts.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if opts.UserClaim == "" {
		opts.UserClaim = "sub"
	}
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}

	claims := jwtlib.MapClaims{
		opts.UserClaim: opts.Subject,
		"iat":          now.Unix(),
		"exp":          now.Add(opts.TTL).Unix(),
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}
	if len(opts.Scopes) > 0 {
		scope := opts.Scopes[0]
		for _, s := range opts.Scopes[1:] {
			scope += " " + s
		}
		claims["scope"] = scope
	}

	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(opts.Secret))
}
