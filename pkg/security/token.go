package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateOpaqueToken returns a URL-safe random token with byteLen bytes of
// entropy. Used for address-collection capability links.
func GenerateOpaqueToken(byteLen int) (string, error) {
	if byteLen < 16 {
		return "", fmt.Errorf("token byte length %d too short", byteLen)
	}
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
