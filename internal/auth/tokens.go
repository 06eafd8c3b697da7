package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/2beens/jotter/pkg"
)

// tokenCharset has 88 printable characters, every one a valid cookie-value
// octet per RFC 6265. The token travels to the client as a raw cookie value,
// and net/http silently drops `"`, `;` and `\` from cookie values, so those
// bytes must never appear in a token. At 32 characters a token carries
// ~206 bits of entropy, so the birthday bound on colliding token hashes is
// negligible. A collision would silently alias the older session to the newer
// username; accepted risk, not mitigated.
const tokenCharset = `ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()-_=+[]{}|:'<>./~`
const tokenLength = 32

// GenerateToken returns a new random session token. The token itself goes to
// the client only; the server stores just its hash.
func GenerateToken() (string, error) {
	return pkg.GenerateRandomString(tokenCharset, tokenLength)
}

// HashToken returns the SHA-256 digest of the token as uppercase hex. The
// digest is used as a storage key, so the casing is part of the format.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
