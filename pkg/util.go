package pkg

import (
	"crypto/rand"
	"math/big"
	"unsafe"
)

// BytesToString converts bytes slice to a string without extra allocation
func BytesToString(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}

// GenerateRandomString returns a securely generated random string of length n,
// drawn from the given charset. It will return an error if the system's secure
// random number generator fails to function correctly, in which case the caller
// should not continue.
func GenerateRandomString(charset string, n int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[idx.Int64()]
	}
	return BytesToString(b), nil
}
