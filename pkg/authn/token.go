package authn

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"billgate/pkg/apikey"
	"billgate/pkg/tenants"
)

// Dashboard token claim names. The tenant id is embedded so the verifier
// can select which tenant's signing secret to check against; trust comes
// from the signature, never from the claim itself.
const (
	claimTenantID = "tid"
	claimUserID   = "uid"
	claimRole     = "role"
	claimMode     = "mode"
)

// Claims are the verified contents of a dashboard token.
type Claims struct {
	TenantID string
	UserID   string
	Role     tenants.Role
	Mode     apikey.Mode
	IssuedAt time.Time
	Expiry   time.Time
}

// SignDashboardToken mints a signed dashboard token for a verified
// user/tenant pair. Password verification happens upstream; this is only
// the signing primitive.
func SignDashboardToken(t tenants.Tenant, u tenants.User, mode apikey.Mode, ttl time.Duration) (string, error) {
	if len(t.SigningSecret) == 0 {
		return "", errors.New("tenant has no signing secret")
	}
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Claim(claimTenantID, t.ID).
		Claim(claimUserID, u.ID).
		Claim(claimRole, u.Role.String()).
		Claim(claimMode, mode.String()).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.SigningSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// peekTenantID reads the tid claim without verifying the signature. The
// result selects which secret to verify against and is trusted for nothing
// else.
func peekTenantID(raw string) (string, error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return "", ErrInvalidToken
	}
	v, ok := tok.Get(claimTenantID)
	if !ok {
		return "", ErrInvalidToken
	}
	tid, _ := v.(string)
	if tid == "" {
		return "", ErrInvalidToken
	}
	return tid, nil
}

// verifyDashboardToken checks the signature against the given secret and
// extracts claims. Expiry is reported distinctly from other defects.
func verifyDashboardToken(raw string, secret []byte) (Claims, error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, secret), jwt.WithValidate(true))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	if v, ok := tok.Get(claimTenantID); ok {
		c.TenantID, _ = v.(string)
	}
	if v, ok := tok.Get(claimUserID); ok {
		c.UserID, _ = v.(string)
	}
	if v, ok := tok.Get(claimRole); ok {
		s, _ := v.(string)
		if r, ok := tenants.ParseRole(s); ok {
			c.Role = r
		}
	}
	if v, ok := tok.Get(claimMode); ok {
		s, _ := v.(string)
		if m, ok := apikey.ParseMode(s); ok {
			c.Mode = m
		}
	}
	if c.TenantID == "" || c.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	c.IssuedAt = tok.IssuedAt()
	c.Expiry = tok.Expiration()
	return c, nil
}
