package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	AccountID   string `json:"account_id"`
	Kind        string `json:"kind"`
	Fingerprint string `json:"fp"`
	jwtlib.RegisteredClaims
}

type TokenInput struct {
	AccountID   string
	Kind        string
	Fingerprint string
	IssuedAt    time.Time
}

func GenerateToken(in TokenInput, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	issued := in.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	claims := Claims{
		AccountID:   in.AccountID,
		Kind:        in.Kind,
		Fingerprint: in.Fingerprint,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   in.AccountID,
			ExpiresAt: jwtlib.NewNumericDate(issued.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(issued),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies the signature and the registered time claims.
func ParseToken(tokenString string, secret []byte, now time.Time) (*Claims, error) {
	opts := []jwtlib.ParserOption{jwtlib.WithIssuedAt()}
	if !now.IsZero() {
		opts = append(opts, jwtlib.WithTimeFunc(func() time.Time { return now }))
	}
	return parse(tokenString, secret, opts...)
}

// DecodeToken verifies only the signature; expired tokens are still decoded.
func DecodeToken(tokenString string, secret []byte) (*Claims, error) {
	return parse(tokenString, secret, jwtlib.WithoutClaimsValidation())
}

func parse(tokenString string, secret []byte, opts ...jwtlib.ParserOption) (*Claims, error) {
	opts = append(opts, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.AccountID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsExpired reports whether err came from a token whose signature is valid but whose exp has passed.
func IsExpired(err error) bool {
	return errors.Is(err, jwtlib.ErrTokenExpired)
}
