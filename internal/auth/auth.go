package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrBadPasscode is returned when the admin passcode does not match.
	ErrBadPasscode = errors.New("invalid passcode")
	// ErrInvalidToken covers expired, malformed or non-admin tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Manager issues and verifies admin tokens signed with a shared secret.
type Manager struct {
	secret   []byte
	passcode string
	ttl      time.Duration
	now      func() time.Time
}

type Claims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

func NewManager(secret, passcode string, ttl time.Duration) *Manager {
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{secret: []byte(secret), passcode: passcode, ttl: ttl, now: time.Now}
}

// Login exchanges the admin passcode for a token.
func (m *Manager) Login(passcode string) (string, error) {
	if m.passcode == "" || subtle.ConstantTimeCompare([]byte(passcode), []byte(m.passcode)) != 1 {
		return "", ErrBadPasscode
	}
	return m.Issue()
}

func (m *Manager) Issue() (string, error) {
	now := m.now()
	claims := Claims{
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates an admin token.
func (m *Manager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid && claims.IsAdmin {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
