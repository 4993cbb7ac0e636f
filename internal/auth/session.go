// Package auth issues and verifies cookie-borne session tokens.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jivzik/uigen/internal/logging"
)

const (
	DefaultCookieName = "auth-token"
	DefaultTTL        = 7 * 24 * time.Hour
)

// Session is the verified payload of a session token.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type sessionClaims struct {
	UserID           string    `json:"userId"`
	Email            string    `json:"email"`
	SessionExpiresAt time.Time `json:"expiresAt"`
	jwt.RegisteredClaims
}

type CookieOptions struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	Path     string
	Expires  time.Time
}

// CookieStore is the cookie jar of the current request.
type CookieStore interface {
	Get(name string) (string, bool)
	Set(name, value string, opts CookieOptions)
	// Delete expires the cookie, using the attributes it was set with.
	Delete(name string, opts CookieOptions)
}

type Manager struct {
	key        []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithSecureCookies marks the session cookie Secure, as in production.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewManager(key []byte, opts ...Option) (*Manager, error) {
	if len(key) == 0 {
		return nil, errors.New("session signing key is empty")
	}
	m := &Manager{
		key:        append([]byte(nil), key...),
		ttl:        DefaultTTL,
		cookieName: DefaultCookieName,
		now:        time.Now,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// IssueToken signs an HS256 token for the user that expires after the session TTL.
func (m *Manager) IssueToken(userID, email string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := sessionClaims{
		UserID:           userID,
		Email:            email,
		SessionExpiresAt: expiresAt,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expiresAt, nil
}

// ParseToken verifies signature, algorithm and expiry.
func (m *Manager) ParseToken(raw string) (*Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("session token has no user")
	}
	return &Session{UserID: claims.UserID, Email: claims.Email, ExpiresAt: claims.SessionExpiresAt}, nil
}

func (m *Manager) CreateSession(cookies CookieStore, userID, email string) error {
	token, expiresAt, err := m.IssueToken(userID, email)
	if err != nil {
		return err
	}
	opts := m.cookieOptions()
	opts.Expires = expiresAt
	cookies.Set(m.cookieName, token, opts)
	m.logger.Debug("auth.session_created", "user_id", userID)
	return nil
}

// GetSession returns nil when the cookie is missing or does not verify.
func (m *Manager) GetSession(cookies CookieStore) *Session {
	raw, ok := cookies.Get(m.cookieName)
	if !ok || raw == "" {
		return nil
	}
	session, err := m.ParseToken(raw)
	if err != nil {
		m.logger.Debug("auth.session_rejected", "error", err.Error())
		return nil
	}
	return session
}

func (m *Manager) DeleteSession(cookies CookieStore) {
	cookies.Delete(m.cookieName, m.cookieOptions())
}

func (m *Manager) cookieOptions() CookieOptions {
	return CookieOptions{
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

// VerifyRequest reads the session cookie straight off a request.
func (m *Manager) VerifyRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := m.ParseToken(cookie.Value)
	if err != nil {
		return nil
	}
	return session
}
