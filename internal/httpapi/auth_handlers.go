package httpapi

import (
	"context"
	"net/http"

	"github.com/jivzik/uigen/internal/account"
	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/postauth"
	"github.com/jivzik/uigen/internal/projects"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	account.Result
	Redirect string `json:"redirect,omitempty"`
}

// accountActions binds the account service to the cookies of one request, so
// the session created by sign-in is visible to the project calls that follow.
type accountActions struct {
	accounts *account.Service
	cookies  auth.CookieStore
}

func (a accountActions) SignIn(ctx context.Context, email, password string) (account.Result, error) {
	return a.accounts.SignIn(ctx, a.cookies, email, password)
}

func (a accountActions) SignUp(ctx context.Context, email, password string) (account.Result, error) {
	return a.accounts.SignUp(ctx, a.cookies, email, password)
}

type projectActions struct {
	projects *projects.Service
	cookies  auth.CookieStore
}

func (p projectActions) List(ctx context.Context) ([]projects.Summary, error) {
	return p.projects.List(ctx, p.cookies)
}

func (p projectActions) Create(ctx context.Context, in projects.CreateInput) (projects.Project, error) {
	return p.projects.Create(ctx, p.cookies, in)
}

type redirectRecorder struct {
	path string
}

func (r *redirectRecorder) Push(path string) { r.path = path }

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.handleCredentials(w, r, errinfo.SubphaseSignUp)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.handleCredentials(w, r, errinfo.SubphaseSignIn)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request, kind string) {
	var req credentials
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.logger.Debug("http.auth_request", "kind", kind, "payload", logging.RedactAny(map[string]any{
		"email":    req.Email,
		"password": req.Password,
	}))

	cookies := auth.NewRequestCookies(w, r)
	redirect := &redirectRecorder{}
	flow := postauth.New(
		accountActions{accounts: s.accounts, cookies: cookies},
		s.anon.Tracker(cookies),
		projectActions{projects: s.projects, cookies: cookies},
		redirect,
		postauth.WithLogger(s.logger),
	)

	var (
		result account.Result
		err    error
	)
	if kind == errinfo.SubphaseSignUp {
		result, err = flow.SignUp(r.Context(), req.Email, req.Password)
	} else {
		result, err = flow.SignIn(r.Context(), req.Email, req.Password)
	}
	if err != nil {
		s.logger.Error("http.auth_failed", "kind", kind, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Result: result, Redirect: redirect.path})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.accounts.SignOut(auth.NewRequestCookies(w, r))
	writeJSON(w, http.StatusOK, account.Result{Success: true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.CurrentUser(r.Context(), auth.NewRequestCookies(w, r))
	if err != nil {
		s.logger.Error("http.session_lookup_failed", "error", err)
		writeError(w, errinfo.StorageFailed(errinfo.PhaseAuth, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
