// internal/app/system/auth/apikey.go
package auth

import (
	"encoding/hex"
	"errors"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyBytes  = 24
	apiSaltBytes = 8
)

var errRandom = errors.New("could not generate random bytes")

// GenerateAPIKey returns a new API key and the salt it is stored with.
// Only the hash from HashAPIKey is persisted; the key is shown to the user
// once.
func GenerateAPIKey() (key, salt string, err error) {
	k := securecookie.GenerateRandomKey(apiKeyBytes)
	s := securecookie.GenerateRandomKey(apiSaltBytes)
	if k == nil || s == nil {
		return "", "", errRandom
	}
	return hex.EncodeToString(k), hex.EncodeToString(s), nil
}

// HashAPIKey returns the bcrypt hash of salt+key.
func HashAPIKey(key, salt string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(salt+key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyAPIKey reports whether key matches the stored hash and salt.
func VerifyAPIKey(hash, salt, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(salt+key)) == nil
}
