// Package apikey classifies and generates tenant API credentials.
package apikey

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ErrMalformed is returned for any credential that does not match one of the
// four canonical prefix families. Classification is pure string inspection;
// malformed input never reaches storage.
var ErrMalformed = errors.New("malformed credential")

// Visibility distinguishes publishable from secret keys.
type Visibility uint8

const (
	Public Visibility = iota
	Secret
)

func (v Visibility) String() string {
	if v == Secret {
		return "secret"
	}
	return "public"
}

// Mode is the live/test data partition a credential grants access to.
type Mode uint8

const (
	Live Mode = iota
	Test
)

func (m Mode) String() string {
	if m == Test {
		return "test"
	}
	return "live"
}

// ParseMode maps the stored string form back to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "live":
		return Live, true
	case "test":
		return Test, true
	}
	return 0, false
}

// Prefix families. Suffix is at least SuffixLen url-safe characters.
const (
	PrefixLivePublic = "pk_live_"
	PrefixLiveSecret = "sk_live_"
	PrefixTestPublic = "pk_test_"
	PrefixTestSecret = "sk_test_"

	SuffixLen = 32
)

// Classified is the parsing artifact produced by Classify. It is never stored.
type Classified struct {
	Raw        string
	Prefix     string
	Mode       Mode
	Visibility Visibility
}

var families = []struct {
	prefix string
	mode   Mode
	vis    Visibility
}{
	{PrefixLivePublic, Live, Public},
	{PrefixLiveSecret, Live, Secret},
	{PrefixTestPublic, Test, Public},
	{PrefixTestSecret, Test, Secret},
}

// Classify parses a raw credential string into a typed token. O(1), no I/O.
func Classify(raw string) (Classified, error) {
	for _, f := range families {
		if !strings.HasPrefix(raw, f.prefix) {
			continue
		}
		suffix := raw[len(f.prefix):]
		if len(suffix) < SuffixLen || !urlSafe(suffix) {
			return Classified{}, ErrMalformed
		}
		return Classified{Raw: raw, Prefix: f.prefix, Mode: f.mode, Visibility: f.vis}, nil
	}
	return Classified{}, ErrMalformed
}

// KeyShaped reports whether a raw credential carries an API-key marker.
// Used for scheme selection before full classification.
func KeyShaped(raw string) bool {
	return strings.HasPrefix(raw, "pk_") || strings.HasPrefix(raw, "sk_")
}

func urlSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate mints a fresh credential for the given family, e.g.
// Generate("sk_live_") -> "sk_live_<32 random chars>".
func Generate(prefix string) (string, error) {
	b := make([]byte, SuffixLen)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return prefix + string(b), nil
}

// Mask renders a secret key for display, keeping the prefix and last four
// characters: "sk_live_****...abcd".
func Mask(key string) string {
	if len(key) < 12 {
		return key
	}
	return key[:8] + "****..." + key[len(key)-4:]
}
