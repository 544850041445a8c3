package authn

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"billgate/pkg/apikey"
)

// API keys are accepted from either a bearer-style Authorization header or
// the dedicated key header, interchangeably.
const apiKeyHeader = "X-API-Key"

// Authenticator orchestrates credential classification and resolution
// across the two supported schemes.
type Authenticator struct {
	resolver *Resolver
	log      *zap.SugaredLogger
}

func NewAuthenticator(resolver *Resolver, log *zap.SugaredLogger) *Authenticator {
	return &Authenticator{resolver: resolver, log: log}
}

// Authenticate resolves exactly one scheme for the request: an
// API-key-shaped credential wins, else a bearer token is treated as a
// dashboard token, else the request is unauthenticated. Every resolution
// failure is logged with its specific kind and returned as
// ErrUnauthenticated so the response never reveals which check failed.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) (*Principal, error) {
	bearer := bearerToken(h)
	key := strings.TrimSpace(h.Get(apiKeyHeader))

	switch {
	case key != "" && apikey.KeyShaped(key):
		return a.apiKey(ctx, key)
	case bearer != "" && apikey.KeyShaped(bearer):
		return a.apiKey(ctx, bearer)
	case bearer != "":
		p, err := a.resolver.ResolveDashboardToken(ctx, bearer)
		if err != nil {
			a.log.Infow("dashboard auth failed", "reason", err)
			return nil, ErrUnauthenticated
		}
		return p, nil
	default:
		return nil, ErrUnauthenticated
	}
}

func (a *Authenticator) apiKey(ctx context.Context, raw string) (*Principal, error) {
	tok, err := apikey.Classify(raw)
	if err != nil {
		a.log.Infow("api key auth failed", "reason", err)
		return nil, ErrUnauthenticated
	}
	p, err := a.resolver.ResolveAPIKey(ctx, tok)
	if err != nil {
		a.log.Infow("api key auth failed", "reason", err, "prefix", tok.Prefix)
		return nil, ErrUnauthenticated
	}
	return p, nil
}

func bearerToken(h http.Header) string {
	authz := h.Get("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}
