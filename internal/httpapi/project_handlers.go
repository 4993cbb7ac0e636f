package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jivzik/uigen/internal/account"
	"github.com/jivzik/uigen/internal/anonwork"
	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/projects"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.projects.List(r.Context(), auth.NewRequestCookies(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projects.CreateInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	project, err := s.projects.Create(r.Context(), auth.NewRequestCookies(w, r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("http.project_created", "project_id", project.ID, "user_id", sessionFrom(r).UserID)
	writeJSON(w, http.StatusCreated, map[string]any{"project": project})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.projects.Get(r.Context(), auth.NewRequestCookies(w, r), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	if err := s.projects.Delete(r.Context(), auth.NewRequestCookies(w, r), id); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("http.project_deleted", "project_id", id, "user_id", sessionFrom(r).UserID)
	writeJSON(w, http.StatusOK, account.Result{Success: true})
}

func (s *Server) handleGetAnonWork(w http.ResponseWriter, r *http.Request) {
	work, err := s.anon.Tracker(auth.NewRequestCookies(w, r)).Get()
	if err != nil {
		writeError(w, errinfo.StorageFailed(errinfo.PhaseAnon, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work": work})
}

func (s *Server) handlePutAnonWork(w http.ResponseWriter, r *http.Request) {
	var work anonwork.Work
	if !s.decodeJSON(w, r, &work) {
		return
	}
	cookies := auth.NewRequestCookies(w, r)
	id := s.anon.EnsureVisitorID(cookies)
	if err := s.anon.Save(id, work); err != nil {
		writeError(w, errinfo.StorageFailed(errinfo.PhaseAnon, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, account.Result{Success: true})
}

func (s *Server) handleDeleteAnonWork(w http.ResponseWriter, r *http.Request) {
	if err := s.anon.Tracker(auth.NewRequestCookies(w, r)).Clear(); err != nil {
		writeError(w, errinfo.StorageFailed(errinfo.PhaseAnon, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, account.Result{Success: true})
}
