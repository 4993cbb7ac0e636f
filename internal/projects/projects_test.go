package projects

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/store"
	"github.com/jivzik/uigen/internal/vfs"
)

type memCookies map[string]string

func (m memCookies) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m memCookies) Set(name, value string, _ auth.CookieOptions) { m[name] = value }

func (m memCookies) Delete(name string, _ auth.CookieOptions) { delete(m, name) }

type fixture struct {
	svc      *Service
	db       *store.Store
	sessions *auth.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "uigen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sessions, err := auth.NewManager([]byte("test-key"))
	require.NoError(t, err)
	return fixture{svc: NewService(db, sessions, nil), db: db, sessions: sessions}
}

func (f fixture) signedIn(t *testing.T, email string) memCookies {
	t.Helper()
	user, err := f.db.CreateUser(context.Background(), email, "hash")
	require.NoError(t, err)
	cookies := memCookies{}
	require.NoError(t, f.sessions.CreateSession(cookies, user.ID, user.Email))
	return cookies
}

func errorCode(err error) string {
	var info *errinfo.ErrorInfo
	if errors.As(err, &info) {
		return info.ErrorCode
	}
	return ""
}

func TestRequiresSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anon := memCookies{}

	_, err := f.svc.List(ctx, anon)
	assert.Equal(t, errinfo.CodeUnauthenticated, errorCode(err))
	_, err = f.svc.Create(ctx, anon, CreateInput{Name: "x"})
	assert.Equal(t, errinfo.CodeUnauthenticated, errorCode(err))
	_, err = f.svc.Get(ctx, anon, "id")
	assert.Equal(t, errinfo.CodeUnauthenticated, errorCode(err))
	assert.Equal(t, errinfo.CodeUnauthenticated, errorCode(f.svc.Delete(ctx, anon, "id")))
	assert.Equal(t, errinfo.CodeUnauthenticated, errorCode(f.svc.SaveContent(ctx, anon, "id", nil, nil)))
}

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cookies := f.signedIn(t, "a@example.com")

	messages := []llm.Message{
		{ID: "1", Role: llm.RoleUser, Content: "Make a button"},
		{ID: "2", Role: llm.RoleAssistant, ToolInvocations: []llm.ToolInvocation{{
			ToolCallID: "call_1", ToolName: "str_replace_editor", State: llm.StateResult,
			Args: map[string]any{"command": "create", "path": "/App.jsx"}, Result: "File created: /App.jsx",
		}}},
	}
	data := vfs.Snapshot{"/App.jsx": {Type: vfs.TypeFile, Content: "export default () => null"}}

	created, err := f.svc.Create(ctx, cookies, CreateInput{Name: "  Button  ", Messages: messages, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Button", created.Name)

	got, err := f.svc.Get(ctx, cookies, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(messages, got.Messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(data, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	list, err := f.svc.List(ctx, cookies)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestEmptyContentDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cookies := f.signedIn(t, "a@example.com")

	created, err := f.svc.Create(ctx, cookies, CreateInput{Name: "New Design #1"})
	require.NoError(t, err)
	assert.NotNil(t, created.Messages)
	assert.Empty(t, created.Messages)
	assert.NotNil(t, created.Data)
	assert.Empty(t, created.Data)

	_, err = f.svc.Create(ctx, cookies, CreateInput{Name: "   "})
	assert.Equal(t, errinfo.CodeValidationFailed, errorCode(err))
}

func TestForeignProjectsAreHidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signedIn(t, "owner@example.com")
	other := f.signedIn(t, "other@example.com")

	created, err := f.svc.Create(ctx, owner, CreateInput{Name: "secret"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, other, created.ID)
	assert.Equal(t, errinfo.CodeProjectNotFound, errorCode(err))
	assert.Equal(t, errinfo.CodeProjectNotFound, errorCode(f.svc.Delete(ctx, other, created.ID)))
	assert.Equal(t, errinfo.CodeProjectNotFound, errorCode(f.svc.SaveContent(ctx, other, created.ID, nil, nil)))

	list, err := f.svc.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveContentAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cookies := f.signedIn(t, "a@example.com")
	created, err := f.svc.Create(ctx, cookies, CreateInput{Name: "p"})
	require.NoError(t, err)

	messages := []llm.Message{{ID: "1", Role: llm.RoleUser, Content: "hi"}}
	data := vfs.Snapshot{"/components": {Type: vfs.TypeDirectory}}
	require.NoError(t, f.svc.SaveContent(ctx, cookies, created.ID, messages, data))

	got, err := f.svc.Get(ctx, cookies, created.ID)
	require.NoError(t, err)
	assert.Equal(t, messages, got.Messages)
	assert.Equal(t, data, got.Data)

	require.NoError(t, f.svc.Delete(ctx, cookies, created.ID))
	_, err = f.svc.Get(ctx, cookies, created.ID)
	assert.Equal(t, errinfo.CodeProjectNotFound, errorCode(err))
}
