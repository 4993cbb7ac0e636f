package postauth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jivzik/uigen/internal/account"
	"github.com/jivzik/uigen/internal/anonwork"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/projects"
	"github.com/jivzik/uigen/internal/vfs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeActions struct {
	mu     sync.Mutex
	result account.Result
	err    error
	block  chan struct{}
	calls  []string
}

func (a *fakeActions) do(kind, email string) (account.Result, error) {
	a.mu.Lock()
	a.calls = append(a.calls, kind+":"+email)
	block := a.block
	a.mu.Unlock()
	if block != nil {
		<-block
	}
	return a.result, a.err
}

func (a *fakeActions) SignIn(_ context.Context, email, _ string) (account.Result, error) {
	return a.do("signin", email)
}

func (a *fakeActions) SignUp(_ context.Context, email, _ string) (account.Result, error) {
	return a.do("signup", email)
}

type fakeTracker struct {
	work    *anonwork.Work
	cleared int
}

func (t *fakeTracker) Get() (*anonwork.Work, error) { return t.work, nil }

func (t *fakeTracker) Set(w anonwork.Work) error {
	t.work = &w
	return nil
}

func (t *fakeTracker) Clear() error {
	t.cleared++
	return nil
}

type fakeProjects struct {
	list      []projects.Summary
	createdID string
	created   []projects.CreateInput
	listed    int
}

func (p *fakeProjects) List(context.Context) ([]projects.Summary, error) {
	p.listed++
	return p.list, nil
}

func (p *fakeProjects) Create(_ context.Context, in projects.CreateInput) (projects.Project, error) {
	p.created = append(p.created, in)
	return projects.Project{ID: p.createdID, Name: in.Name}, nil
}

type fakeNavigator struct{ pushed []string }

func (n *fakeNavigator) Push(path string) { n.pushed = append(n.pushed, path) }

type harness struct {
	actions   *fakeActions
	tracker   *fakeTracker
	projects  *fakeProjects
	navigator *fakeNavigator
	flow      *Flow
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		actions:   &fakeActions{result: account.Result{Success: true}},
		tracker:   &fakeTracker{},
		projects:  &fakeProjects{},
		navigator: &fakeNavigator{},
	}
	h.flow = New(h.actions, h.tracker, h.projects, h.navigator, opts...)
	return h
}

func TestNotLoadingInitially(t *testing.T) {
	assert.False(t, newHarness().flow.IsLoading())
}

func TestLoadingWhileActionRuns(t *testing.T) {
	for _, kind := range []string{"signin", "signup"} {
		h := newHarness()
		h.actions.result = account.Result{Success: false}
		h.actions.block = make(chan struct{})

		done := make(chan struct{})
		go func() {
			defer close(done)
			if kind == "signin" {
				_, _ = h.flow.SignIn(context.Background(), "test@example.com", "password")
			} else {
				_, _ = h.flow.SignUp(context.Background(), "test@example.com", "password")
			}
		}()

		require.Eventually(t, h.flow.IsLoading, time.Second, time.Millisecond, kind)
		close(h.actions.block)
		<-done
		assert.False(t, h.flow.IsLoading(), kind)
	}
}

func TestFailureReturnsActionResult(t *testing.T) {
	h := newHarness()
	h.actions.result = account.Result{Success: false, Error: "Invalid credentials"}

	res, err := h.flow.SignIn(context.Background(), "test@example.com", "wrongpassword")
	require.NoError(t, err)
	assert.Equal(t, account.Result{Error: "Invalid credentials"}, res)
	assert.Empty(t, h.navigator.pushed)

	h.actions.result = account.Result{Success: false, Error: "Email already registered"}
	res, err = h.flow.SignUp(context.Background(), "existing@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "Email already registered", res.Error)
	assert.Empty(t, h.navigator.pushed)
}

func TestAnonWorkBecomesProject(t *testing.T) {
	clock := time.Date(2026, 5, 4, 15, 4, 5, 0, time.Local)
	h := newHarness(WithClock(func() time.Time { return clock }))
	messages := []llm.Message{{ID: "1", Role: llm.RoleUser, Content: "Hello"}}
	data := vfs.Snapshot{"/App.jsx": {Type: vfs.TypeFile, Content: "test"}}
	h.tracker.work = &anonwork.Work{Messages: messages, FileSystemData: data}
	h.projects.list = []projects.Summary{{ID: "existing"}}
	h.projects.createdID = "new-project-123"

	_, err := h.flow.SignIn(context.Background(), "test@example.com", "password")
	require.NoError(t, err)

	want := []projects.CreateInput{{Name: "Design from 3:04:05 PM", Messages: messages, Data: data}}
	if diff := cmp.Diff(want, h.projects.created); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, h.tracker.cleared)
	assert.Equal(t, 0, h.projects.listed)
	assert.Equal(t, []string{"/new-project-123"}, h.navigator.pushed)
}

func TestMostRecentProjectWithoutAnonWork(t *testing.T) {
	h := newHarness()
	h.projects.list = []projects.Summary{{ID: "project-1"}, {ID: "project-2"}}

	_, err := h.flow.SignIn(context.Background(), "test@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, []string{"/project-1"}, h.navigator.pushed)
	assert.Empty(t, h.projects.created)
	assert.Equal(t, 0, h.tracker.cleared)
}

func TestEmptyAnonMessagesAreSkipped(t *testing.T) {
	h := newHarness()
	h.tracker.work = &anonwork.Work{Messages: []llm.Message{}, FileSystemData: vfs.Snapshot{}}
	h.projects.list = []projects.Summary{{ID: "existing-project"}}

	_, err := h.flow.SignIn(context.Background(), "test@example.com", "password")
	require.NoError(t, err)
	assert.Empty(t, h.projects.created)
	assert.Equal(t, []string{"/existing-project"}, h.navigator.pushed)
}

func TestNewDesignWhenNoProjects(t *testing.T) {
	h := newHarness()
	h.projects.createdID = "brand-new-project"

	_, err := h.flow.SignUp(context.Background(), "new@example.com", "password")
	require.NoError(t, err)
	require.Len(t, h.projects.created, 1)
	created := h.projects.created[0]
	assert.Regexp(t, regexp.MustCompile(`^New Design #\d+$`), created.Name)
	assert.NotNil(t, created.Messages)
	assert.Empty(t, created.Messages)
	assert.NotNil(t, created.Data)
	assert.Empty(t, created.Data)
	assert.Equal(t, []string{"/brand-new-project"}, h.navigator.pushed)
}

func TestNewDesignNumberComesFromRand(t *testing.T) {
	h := newHarness(WithRand(func(n int) int {
		if n != 100000 {
			t.Errorf("unexpected bound %d", n)
		}
		return 42
	}))
	h.projects.createdID = "p"
	_, err := h.flow.SignIn(context.Background(), "a@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "New Design #42", h.projects.created[0].Name)
}

func TestLoadingClearedWhenActionErrors(t *testing.T) {
	h := newHarness()
	h.actions.err = errors.New("Network error")

	_, err := h.flow.SignIn(context.Background(), "test@example.com", "password")
	require.Error(t, err)
	assert.False(t, h.flow.IsLoading())

	h.actions.err = errors.New("Server error")
	_, err = h.flow.SignUp(context.Background(), "test@example.com", "password")
	require.Error(t, err)
	assert.False(t, h.flow.IsLoading())
	assert.Empty(t, h.navigator.pushed)
}

func TestConcurrentCalls(t *testing.T) {
	h := newHarness()
	h.actions.result = account.Result{Success: false}

	var wg sync.WaitGroup
	for _, email := range []string{"test1@example.com", "test2@example.com"} {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, _ = h.flow.SignIn(context.Background(), email, "pass")
		}(email)
	}
	wg.Wait()

	assert.Len(t, h.actions.calls, 2)
	for _, call := range h.actions.calls {
		assert.True(t, strings.HasPrefix(call, "signin:"))
	}
	assert.False(t, h.flow.IsLoading())
}
