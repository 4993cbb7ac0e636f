// Package projects exposes project actions scoped to the caller's session.
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/store"
	"github.com/jivzik/uigen/internal/vfs"
)

type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	UserID    string        `json:"userId,omitempty"`
	Messages  []llm.Message `json:"messages"`
	Data      vfs.Snapshot  `json:"data"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Summary is the list view of a project.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateInput struct {
	Name     string        `json:"name"`
	Messages []llm.Message `json:"messages"`
	Data     vfs.Snapshot  `json:"data"`
}

type Store interface {
	CreateProject(ctx context.Context, userID, name, messages, data string) (store.Project, error)
	ProjectsForUser(ctx context.Context, userID string) ([]store.Project, error)
	Project(ctx context.Context, id, userID string) (store.Project, error)
	UpdateProjectContent(ctx context.Context, id, userID, messages, data string) error
	DeleteProject(ctx context.Context, id, userID string) error
}

type Service struct {
	store    Store
	sessions *auth.Manager
	logger   *slog.Logger
}

func NewService(st Store, sessions *auth.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{store: st, sessions: sessions, logger: logger}
}

// List returns the caller's projects, most recently created first.
func (s *Service) List(ctx context.Context, cookies auth.CookieStore) ([]Summary, error) {
	session, err := s.session(cookies)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ProjectsForUser(ctx, session.UserID)
	if err != nil {
		return nil, s.storageFailed("list", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt})
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, cookies auth.CookieStore, in CreateInput) (Project, error) {
	session, err := s.session(cookies)
	if err != nil {
		return Project{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Project{}, errinfo.ValidationFailed(errinfo.PhaseProject, "project name is required")
	}
	messages, data, err := encode(in.Messages, in.Data)
	if err != nil {
		return Project{}, errinfo.ValidationFailed(errinfo.PhaseProject, err.Error())
	}
	row, err := s.store.CreateProject(ctx, session.UserID, name, messages, data)
	if err != nil {
		return Project{}, s.storageFailed("create", err)
	}
	s.logger.Info("projects.created", "project_id", row.ID, "user_id", session.UserID)
	return decode(row)
}

func (s *Service) Get(ctx context.Context, cookies auth.CookieStore, id string) (Project, error) {
	session, err := s.session(cookies)
	if err != nil {
		return Project{}, err
	}
	row, err := s.store.Project(ctx, id, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Project{}, errinfo.ProjectNotFound(id)
	}
	if err != nil {
		return Project{}, s.storageFailed("get", err)
	}
	return decode(row)
}

func (s *Service) Delete(ctx context.Context, cookies auth.CookieStore, id string) error {
	session, err := s.session(cookies)
	if err != nil {
		return err
	}
	err = s.store.DeleteProject(ctx, id, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return errinfo.ProjectNotFound(id)
	}
	if err != nil {
		return s.storageFailed("delete", err)
	}
	s.logger.Info("projects.deleted", "project_id", id, "user_id", session.UserID)
	return nil
}

// SaveContent replaces the conversation and file tree of an owned project.
func (s *Service) SaveContent(ctx context.Context, cookies auth.CookieStore, id string, messages []llm.Message, data vfs.Snapshot) error {
	session, err := s.session(cookies)
	if err != nil {
		return err
	}
	rawMessages, rawData, err := encode(messages, data)
	if err != nil {
		return errinfo.ValidationFailed(errinfo.PhaseProject, err.Error())
	}
	err = s.store.UpdateProjectContent(ctx, id, session.UserID, rawMessages, rawData)
	if errors.Is(err, store.ErrNotFound) {
		return errinfo.ProjectNotFound(id)
	}
	if err != nil {
		return s.storageFailed("save", err)
	}
	return nil
}

func (s *Service) session(cookies auth.CookieStore) (*auth.Session, error) {
	session := s.sessions.GetSession(cookies)
	if session == nil {
		return nil, errinfo.Unauthenticated(errinfo.PhaseProject)
	}
	return session, nil
}

func (s *Service) storageFailed(op string, err error) error {
	s.logger.Error("projects.storage_failed", "op", op, "error", err)
	return errinfo.StorageFailed(errinfo.PhaseProject, err.Error())
}

func encode(messages []llm.Message, data vfs.Snapshot) (string, string, error) {
	if messages == nil {
		messages = []llm.Message{}
	}
	if data == nil {
		data = vfs.Snapshot{}
	}
	rawMessages, err := json.Marshal(messages)
	if err != nil {
		return "", "", fmt.Errorf("encode messages: %w", err)
	}
	rawData, err := json.Marshal(data)
	if err != nil {
		return "", "", fmt.Errorf("encode data: %w", err)
	}
	return string(rawMessages), string(rawData), nil
}

func decode(row store.Project) (Project, error) {
	project := Project{
		ID:        row.ID,
		Name:      row.Name,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Messages:  []llm.Message{},
		Data:      vfs.Snapshot{},
	}
	if err := json.Unmarshal([]byte(row.Messages), &project.Messages); err != nil {
		return Project{}, fmt.Errorf("decode messages of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Data), &project.Data); err != nil {
		return Project{}, fmt.Errorf("decode data of %s: %w", row.ID, err)
	}
	return project, nil
}
