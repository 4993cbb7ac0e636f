// Package anonwork keeps the work of visitors who have not signed in yet so it
// can be turned into a project after they do.
package anonwork

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/vfs"
)

const (
	DefaultCookieName = "uigen-anon"
	cookieTTL         = 30 * 24 * time.Hour
)

type Work struct {
	Messages       []llm.Message `json:"messages"`
	FileSystemData vfs.Snapshot  `json:"fileSystemData"`
}

// Empty reports whether there is nothing worth keeping.
func (w Work) Empty() bool {
	if len(w.Messages) > 0 {
		return false
	}
	for p := range w.FileSystemData {
		if p != "/" {
			return false
		}
	}
	return true
}

// Tracker is the anonymous work of one visitor.
type Tracker interface {
	Get() (*Work, error)
	Set(work Work) error
	Clear() error
}

// Store persists anonymous work as one JSON file per visitor id.
type Store struct {
	dir        string
	cookieName string
	secure     bool
	now        func() time.Time
	mu         sync.Mutex
}

type Option func(*Store)

func WithCookieName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.cookieName = name
		}
	}
}

func WithSecureCookies(secure bool) Option {
	return func(s *Store) { s.secure = secure }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, cookieName: DefaultCookieName, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VisitorID returns the id carried by the visitor cookie, if any.
func (s *Store) VisitorID(cookies auth.CookieStore) (string, bool) {
	raw, ok := cookies.Get(s.cookieName)
	if !ok {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// EnsureVisitorID returns the visitor id, issuing a new cookie when missing.
func (s *Store) EnsureVisitorID(cookies auth.CookieStore) string {
	if id, ok := s.VisitorID(cookies); ok {
		return id
	}
	id := uuid.NewString()
	cookies.Set(s.cookieName, id, auth.CookieOptions{
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		Expires:  s.now().Add(cookieTTL),
	})
	return id
}

// Tracker binds the store to the visitor of the given cookies. Visitors
// without a cookie get a tracker that holds nothing.
func (s *Store) Tracker(cookies auth.CookieStore) Tracker {
	id, ok := s.VisitorID(cookies)
	if !ok {
		return nopTracker{}
	}
	return &visitorTracker{store: s, id: id}
}

func (s *Store) Load(id string) (*Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var work Work
	if err := readJSON(s.path(id), &work); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read anonymous work: %w", err)
	}
	return &work, nil
}

// Save stores the work, or removes any stored work when it is empty.
func (s *Store) Save(id string, work Work) error {
	if work.Empty() {
		return s.Clear(id)
	}
	if work.Messages == nil {
		work.Messages = []llm.Message{}
	}
	if work.FileSystemData == nil {
		work.FileSystemData = vfs.Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.path(id), work); err != nil {
		return fmt.Errorf("write anonymous work: %w", err)
	}
	return nil
}

func (s *Store) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear anonymous work: %w", err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

type visitorTracker struct {
	store *Store
	id    string
}

func (t *visitorTracker) Get() (*Work, error) { return t.store.Load(t.id) }

func (t *visitorTracker) Set(work Work) error { return t.store.Save(t.id, work) }

func (t *visitorTracker) Clear() error { return t.store.Clear(t.id) }

type nopTracker struct{}

func (nopTracker) Get() (*Work, error) { return nil, nil }

func (nopTracker) Set(Work) error { return nil }

func (nopTracker) Clear() error { return nil }

func readJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func writeJSON(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
