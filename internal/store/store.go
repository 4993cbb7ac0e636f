package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound   = errors.New("store: not found")
	ErrEmailTaken = errors.New("store: email already registered")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
	messages TEXT NOT NULL DEFAULT '[]',
	data TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id, created_at);
`

type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project keeps messages and data as the JSON text they were saved with.
type Project struct {
	ID        string
	Name      string
	UserID    string
	Messages  string
	Data      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates the database file and its parent directory when missing.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	now := s.now().UTC()
	user := User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Password, now.UnixNano(), now.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, created_at, updated_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, created_at, updated_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) CreateProject(ctx context.Context, userID, name, messages, data string) (Project, error) {
	now := s.now().UTC()
	if messages == "" {
		messages = "[]"
	}
	if data == "" {
		data = "{}"
	}
	project := Project{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		Messages:  messages,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, user_id, messages, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, nullable(userID), project.Messages, project.Data, now.UnixNano(), now.UnixNano())
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

// ProjectsForUser returns the user's projects, newest first. Projects created
// in the same instant keep reverse insertion order.
func (s *Store) ProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id, messages, data, created_at, updated_at FROM projects
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// Project looks a project up by id, scoped to its owner.
func (s *Store) Project(ctx context.Context, id, userID string) (Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, messages, data, created_at, updated_at FROM projects
		 WHERE id = ? AND user_id = ?`, id, userID)
	return scanProject(row)
}

func (s *Store) UpdateProjectContent(ctx context.Context, id, userID, messages, data string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET messages = ?, data = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		messages, data, s.now().UTC().UnixNano(), id, userID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteProject(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var (
		user             User
		created, updated int64
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = time.Unix(0, created).UTC()
	user.UpdatedAt = time.Unix(0, updated).UTC()
	return user, nil
}

func scanProject(row scanner) (Project, error) {
	var (
		project          Project
		userID           sql.NullString
		created, updated int64
	)
	if err := row.Scan(&project.ID, &project.Name, &userID, &project.Messages, &project.Data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("scan project: %w", err)
	}
	project.UserID = userID.String
	project.CreatedAt = time.Unix(0, created).UTC()
	project.UpdatedAt = time.Unix(0, updated).UTC()
	return project, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
