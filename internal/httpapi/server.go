// Package httpapi is the HTTP surface of the app: auth, projects, anonymous
// work and generation.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jivzik/uigen/internal/account"
	"github.com/jivzik/uigen/internal/anonwork"
	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/chat"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/metrics"
	"github.com/jivzik/uigen/internal/projects"
)

const DefaultMaxBodyBytes = 8 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Sessions     *auth.Manager
	Accounts     *account.Service
	Projects     *projects.Service
	AnonWork     *anonwork.Store
	Agent        *chat.Agent
	Health       Pinger
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	MaxBodyBytes int64
}

type Server struct {
	sessions     *auth.Manager
	accounts     *account.Service
	projects     *projects.Service
	anon         *anonwork.Store
	agent        *chat.Agent
	health       Pinger
	metrics      *metrics.Metrics
	logger       *slog.Logger
	maxBodyBytes int64
}

func New(deps Deps) *Server {
	s := &Server{
		sessions:     deps.Sessions,
		accounts:     deps.Accounts,
		projects:     deps.Projects,
		anon:         deps.AnonWork,
		agent:        deps.Agent,
		health:       deps.Health,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		maxBodyBytes: deps.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	return s
}

func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.observe)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealthz)
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/signin", s.handleSignIn)
			r.Post("/signout", s.handleSignOut)
			r.Get("/session", s.handleSession)
		})
		api.Route("/projects", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)
			r.Get("/{projectID}", s.handleGetProject)
			r.Delete("/{projectID}", s.handleDeleteProject)
		})
		api.Route("/anon-work", func(r chi.Router) {
			r.Get("/", s.handleGetAnonWork)
			r.Put("/", s.handlePutAnonWork)
			r.Delete("/", s.handleDeleteAnonWork)
		})
		api.Post("/chat", s.handleChat)
		api.Post("/tool-badge", s.handleToolBadge)
	})
	return router
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, r.Method, status, elapsed)
		s.logger.Info("http.request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type sessionContextKey struct{}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := s.sessions.VerifyRequest(r)
		if session == nil {
			writeError(w, errinfo.Unauthenticated(errinfo.PhaseProject))
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session requireSession verified for r, or nil.
func sessionFrom(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionContextKey{}).(*auth.Session)
	return session
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Error("http.health_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			return false
		}
		writeError(w, errinfo.ValidationFailed("", fmt.Sprintf("invalid JSON body: %v", err)))
		return false
	}
	return true
}

type errorBody struct {
	Error string             `json:"error"`
	Info  *errinfo.ErrorInfo `json:"error_info,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var info *errinfo.ErrorInfo
	if !errors.As(err, &info) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal error"})
		return
	}
	message := info.Detail
	if message == "" {
		message = info.ErrorCode
	}
	writeJSON(w, statusFor(info.ErrorCode), errorBody{Error: message, Info: info})
}

func statusFor(code string) int {
	switch code {
	case errinfo.CodeUnauthenticated, errinfo.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case errinfo.CodeEmailTaken:
		return http.StatusConflict
	case errinfo.CodeValidationFailed:
		return http.StatusBadRequest
	case errinfo.CodeProjectNotFound:
		return http.StatusNotFound
	case errinfo.CodeProviderNotConfigured:
		return http.StatusServiceUnavailable
	case errinfo.CodeProviderAuthFailed, errinfo.CodeProviderUnavailable, errinfo.CodeEgressBlocked:
		return http.StatusBadGateway
	case errinfo.CodeNetworkUnavailable:
		return http.StatusGatewayTimeout
	case errinfo.CodeUserCanceled:
		return http.StatusRequestTimeout
	case errinfo.CodeAgentStepLimit, errinfo.CodeToolFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
