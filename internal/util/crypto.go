package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32

	// BotSecretPrefix marks bot credentials so they are distinguishable from other tokens.
	BotSecretPrefix = "abt_"

	pairingCodeMin   = 100000
	pairingCodeRange = 900000
)

var botSecretRegex = regexp.MustCompile(`^abt_[0-9a-f]{64}$`)

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateBotSecret returns "abt_" followed by 256 random bits in hex.
func GenerateBotSecret() (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	return BotSecretPrefix + token, nil
}

func IsBotSecretFormat(secret string) bool {
	return botSecretRegex.MatchString(secret)
}

// HashToken is the one-way transform applied to every stored credential.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GeneratePairingCode returns a uniform random code in [100000, 999999].
func GeneratePairingCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pairingCodeRange))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(pairingCodeMin)).String(), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func MaskCode(code string) string {
	if len(code) <= 2 {
		return "****"
	}
	return code[:2] + strings.Repeat("*", len(code)-2)
}
