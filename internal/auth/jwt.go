package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Issuer tags scope a token to the layer that may consume it. The
// realtime gateway only ever accepts realtime-issued tokens, so a web
// session cookie value can never double as a socket credential.
const (
	IssuerSession  = "devfolio-web"
	IssuerRealtime = "devfolio-realtime"
)

// Claims binds a compact identity to a token.
type Claims struct {
	UserID      int    `json:"uid"`
	Handle      string `json:"handle"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator handles HS256 generation and validation for one
// issuer.
type Authenticator struct {
	secretKey []byte
	issuer    string
	validity  time.Duration
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(secretKey string, issuer string, validity time.Duration) *Authenticator {
	return &Authenticator{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		validity:  validity,
	}
}

// GenerateToken creates a signed token for a user.
func (a *Authenticator) GenerateToken(userID int, handle, displayName string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      userID,
		Handle:      handle,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secretKey)
}

// ValidateToken parses a token and checks signature, issuer and
// expiry.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secretKey, nil
	}, jwt.WithIssuer(a.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
