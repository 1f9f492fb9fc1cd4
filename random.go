package orgauth

import (
	"crypto/rand"
	"encoding/base64"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultOpaqueTokenBytes is the entropy used for invitation, password
// reset, email verification, and refresh tokens.
const DefaultOpaqueTokenBytes = 32

// GenerateOpaqueToken returns a URL safe random token read from the
// platform CSPRNG. Every single-use token in this package comes from
// here; a weak source would compromise all of them at once, so there is
// no seeded fallback and a short read is a hard failure.
func GenerateOpaqueToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultOpaqueTokenBytes
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read from secure random source")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
