package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/store"
)

const DefaultMinPasswordLength = 8

// Result is what sign-in style actions report back to the caller.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Users interface {
	CreateUser(ctx context.Context, email, passwordHash string) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByID(ctx context.Context, id string) (store.User, error)
}

type Service struct {
	users       Users
	sessions    *auth.Manager
	minPassword int
	logger      *slog.Logger
}

type Option func(*Service)

func WithMinPasswordLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPassword = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(users Users, sessions *auth.Manager, opts ...Option) *Service {
	s := &Service{
		users:       users,
		sessions:    sessions,
		minPassword: DefaultMinPasswordLength,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SignUp(ctx context.Context, cookies auth.CookieStore, email, password string) (Result, error) {
	email = normalizeEmail(email)
	if msg := s.validate(email, password); msg != "" {
		return Result{Error: msg}, nil
	}
	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return Result{Error: "Email already registered"}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Result{}, err
	}
	user, err := s.users.CreateUser(ctx, email, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		return Result{Error: "Email already registered"}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.sessions.CreateSession(cookies, user.ID, user.Email); err != nil {
		return Result{}, err
	}
	s.logger.Info("account.signed_up", "user_id", user.ID)
	return Result{Success: true}, nil
}

func (s *Service) SignIn(ctx context.Context, cookies auth.CookieStore, email, password string) (Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Result{Error: "Email and password are required"}, nil
	}
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Info("account.signin_failed", "reason", "unknown_email")
		return Result{Error: "Invalid credentials"}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		s.logger.Info("account.signin_failed", "reason", "password_mismatch", "user_id", user.ID)
		return Result{Error: "Invalid credentials"}, nil
	}
	if err := s.sessions.CreateSession(cookies, user.ID, user.Email); err != nil {
		return Result{}, err
	}
	s.logger.Info("account.signed_in", "user_id", user.ID)
	return Result{Success: true}, nil
}

func (s *Service) SignOut(cookies auth.CookieStore) {
	s.sessions.DeleteSession(cookies)
}

// CurrentUser returns nil when there is no valid session or the user is gone.
func (s *Service) CurrentUser(ctx context.Context, cookies auth.CookieStore) (*User, error) {
	session := s.sessions.GetSession(cookies)
	if session == nil {
		return nil, nil
	}
	user, err := s.users.UserByID(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &User{ID: user.ID, Email: user.Email}, nil
}

func (s *Service) validate(email, password string) string {
	if email == "" || password == "" {
		return "Email and password are required"
	}
	if !validEmail(email) {
		return "Invalid email address"
	}
	if len(password) < s.minPassword {
		return fmt.Sprintf("Password must be at least %d characters", s.minPassword)
	}
	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
