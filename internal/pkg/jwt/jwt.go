package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

// Claims is the admin token payload.
type Claims struct {
	Role string `json:"role"`
	jwtlib.RegisteredClaims
}

// Keyring signs and verifies HS256 tokens with one shared secret.
type Keyring struct {
	secret []byte
	now    func() time.Time
}

func NewKeyring(secret string) (*Keyring, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Keyring{secret: []byte(secret), now: time.Now}, nil
}

// Issue creates a token for subject carrying role.
func (k *Keyring) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := k.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(k.secret)
}

// Parse validates signature, algorithm and expiry.
func (k *Keyring) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (interface{}, error) {
		return k.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(k.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
