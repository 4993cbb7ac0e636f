package httpapi

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/jivzik/uigen/internal/anonwork"
	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/chat"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/toolmsg"
	"github.com/jivzik/uigen/internal/vfs"
)

type chatRequest struct {
	Messages  []llm.Message `json:"messages"`
	Files     vfs.Snapshot  `json:"files"`
	ProjectID string        `json:"projectId,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	cookies := auth.NewRequestCookies(w, r)
	session := s.sessions.GetSession(cookies)
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID != "" {
		if _, err := s.projects.Get(ctx, cookies, projectID); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := s.agent.Run(ctx, chat.Request{Messages: req.Messages, Files: req.Files})
	if err != nil {
		s.logger.Warn("http.chat_failed", "project_id", projectID, "error", err)
		writeError(w, err)
		return
	}
	history := append(append([]llm.Message(nil), req.Messages...), result.Message)

	switch {
	case projectID != "":
		if err := s.projects.SaveContent(ctx, cookies, projectID, history, result.Files); err != nil {
			s.logger.Error("http.chat_save_failed", "project_id", projectID, "error", err)
			writeError(w, err)
			return
		}
	case session == nil:
		id := s.anon.EnsureVisitorID(cookies)
		if err := s.anon.Save(id, anonwork.Work{Messages: history, FileSystemData: result.Files}); err != nil {
			s.logger.Warn("http.anon_work_save_failed", "error", err)
		}
	}
	s.logger.Info("http.chat_complete", "project_id", projectID, "steps", result.Steps,
		"stop_reason", result.StopReason, "tools", chat.ToolNames(result.Message), "changed_files", len(result.Changes))
	writeJSON(w, http.StatusOK, result)
}

type badgeRequest struct {
	ToolInvocation llm.ToolInvocation `json:"toolInvocation"`
}

type badgeResponse struct {
	toolmsg.Badge
	Label string        `json:"label"`
	HTML  template.HTML `json:"html"`
}

func (s *Server) handleToolBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.ToolInvocation.ToolName == "" {
		writeError(w, errinfo.ValidationFailed(errinfo.PhaseChat, "toolInvocation.toolName is required"))
		return
	}
	html, err := toolmsg.RenderHTML(req.ToolInvocation)
	if err != nil {
		writeError(w, err)
		return
	}
	badge := toolmsg.BadgeFor(req.ToolInvocation)
	writeJSON(w, http.StatusOK, badgeResponse{Badge: badge, Label: badge.Label(), HTML: html})
}
