package pkg

import "golang.org/x/crypto/bcrypt"

// bcryptCost applies to newly created credentials only; stored hashes embed
// the cost they were generated with, so verification is unaffected by changes.
const bcryptCost = 14

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return BytesToString(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
