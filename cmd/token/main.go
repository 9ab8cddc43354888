// Command token mints HS256 bearer tokens for local development against a
// server running with auth.type "jwt" and a shared secret.
//
//	token -sub alice -secret "$STOCKROOM_JWT_SECRET"
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rhuss/stockroom/pkg/auth/jwt"
)

func main() {
	var (
		secret   = flag.String("secret", os.Getenv("STOCKROOM_JWT_SECRET"), "HMAC secret (default: $STOCKROOM_JWT_SECRET)")
		subject  = flag.String("sub", "", "subject to encode (required)")
		claim    = flag.String("claim", "sub", "claim that carries the subject")
		issuer   = flag.String("iss", "", "issuer claim")
		audience = flag.String("aud", "", "audience claim")
		scopes   = flag.String("scopes", "", "comma-separated scopes")
		ttl      = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	opts := jwt.SignOptions{
		Secret:    *secret,
		Subject:   *subject,
		UserClaim: *claim,
		Issuer:    *issuer,
		Audience:  *audience,
		TTL:       *ttl,
	}
	if *scopes != "" {
		opts.Scopes = strings.Split(*scopes, ",")
	}

	token, err := jwt.Sign(opts, time.Now())
	if err != nil {
		slog.Error("signing token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
