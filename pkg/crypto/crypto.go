package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with its hash.
// bcrypt's comparison does not leak timing about where the mismatch occurred.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// SignHMAC computes the hex-encoded HMAC-SHA256 of payload with secret.
func SignHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks a hex-encoded HMAC-SHA256 signature in constant time.
// A mismatch reveals nothing about which byte diverged.
func VerifyHMAC(secret string, payload []byte, signature string) bool {
	expected := SignHMAC(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateRandomString generates a random hex string of 2*length characters
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
