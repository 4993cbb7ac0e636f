// Package postauth decides where a visitor lands after signing in or up.
package postauth

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jivzik/uigen/internal/account"
	"github.com/jivzik/uigen/internal/anonwork"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/projects"
	"github.com/jivzik/uigen/internal/vfs"
)

type Actions interface {
	SignIn(ctx context.Context, email, password string) (account.Result, error)
	SignUp(ctx context.Context, email, password string) (account.Result, error)
}

type Projects interface {
	List(ctx context.Context) ([]projects.Summary, error)
	Create(ctx context.Context, in projects.CreateInput) (projects.Project, error)
}

type Navigator interface {
	Push(path string)
}

type Flow struct {
	actions   Actions
	tracker   anonwork.Tracker
	projects  Projects
	navigator Navigator
	logger    *slog.Logger
	now       func() time.Time
	intn      func(n int) int
	inFlight  atomic.Int32
}

type Option func(*Flow)

func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithRand replaces the source used to number fresh designs.
func WithRand(intn func(n int) int) Option {
	return func(f *Flow) {
		if intn != nil {
			f.intn = intn
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func New(actions Actions, tracker anonwork.Tracker, projects Projects, navigator Navigator, opts ...Option) *Flow {
	f := &Flow{
		actions:   actions,
		tracker:   tracker,
		projects:  projects,
		navigator: navigator,
		logger:    logging.Nop(),
		now:       time.Now,
		intn:      rand.IntN,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsLoading reports whether a sign-in or sign-up is still running.
func (f *Flow) IsLoading() bool {
	return f.inFlight.Load() > 0
}

func (f *Flow) SignIn(ctx context.Context, email, password string) (account.Result, error) {
	return f.run(ctx, "signin", func() (account.Result, error) {
		return f.actions.SignIn(ctx, email, password)
	})
}

func (f *Flow) SignUp(ctx context.Context, email, password string) (account.Result, error) {
	return f.run(ctx, "signup", func() (account.Result, error) {
		return f.actions.SignUp(ctx, email, password)
	})
}

func (f *Flow) run(ctx context.Context, kind string, action func() (account.Result, error)) (account.Result, error) {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	result, err := action()
	if err != nil {
		return result, err
	}
	if !result.Success {
		return result, nil
	}
	if err := f.afterSignIn(ctx); err != nil {
		f.logger.Error("postauth.redirect_failed", "kind", kind, "error", err)
		return result, err
	}
	return result, nil
}

func (f *Flow) afterSignIn(ctx context.Context) error {
	work, err := f.tracker.Get()
	if err != nil {
		return fmt.Errorf("load anonymous work: %w", err)
	}
	if work != nil && len(work.Messages) > 0 {
		project, err := f.projects.Create(ctx, projects.CreateInput{
			Name:     "Design from " + f.now().Format("3:04:05 PM"),
			Messages: work.Messages,
			Data:     work.FileSystemData,
		})
		if err != nil {
			return err
		}
		if err := f.tracker.Clear(); err != nil {
			f.logger.Warn("postauth.clear_anon_failed", "error", err)
		}
		f.logger.Info("postauth.claimed_anon_work", "project_id", project.ID)
		f.navigator.Push("/" + project.ID)
		return nil
	}

	list, err := f.projects.List(ctx)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		f.navigator.Push("/" + list[0].ID)
		return nil
	}

	project, err := f.projects.Create(ctx, projects.CreateInput{
		Name:     fmt.Sprintf("New Design #%d", f.intn(100000)),
		Messages: []llm.Message{},
		Data:     vfs.Snapshot{},
	})
	if err != nil {
		return err
	}
	f.navigator.Push("/" + project.ID)
	return nil
}
