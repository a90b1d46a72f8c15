package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	DefaultDigits    = 4
	verificationSize = 16
)

type Generator interface {
	Code() (string, error)
	VerificationToken() (string, error)
}

type RandomGenerator struct {
	Digits int
}

func NewRandomGenerator(digits int) *RandomGenerator {
	if digits <= 0 {
		digits = DefaultDigits
	}
	return &RandomGenerator{Digits: digits}
}

func (g *RandomGenerator) Code() (string, error) {
	digits := g.Digits
	if digits <= 0 {
		digits = DefaultDigits
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// VerificationToken returns 32 hex chars.
func (g *RandomGenerator) VerificationToken() (string, error) {
	buf := make([]byte, verificationSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashCode binds the code to its challenge so equal codes of different challenges hash differently.
func HashCode(verificationToken, code string) string {
	sum := sha256.Sum256([]byte(verificationToken + ":" + code))
	return hex.EncodeToString(sum[:])
}

func Matches(hash, verificationToken, code string) bool {
	if hash == "" || code == "" {
		return false
	}
	want := HashCode(verificationToken, code)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(want)) == 1
}

func IsNumeric(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for _, ch := range code {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
