package gitrepo

import (
	"context"
	"strconv"
	"sync"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/command"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
)

const (
	KindStatus = "git_status"
	KindBranch = "git_branch"
	KindFetch  = "git_fetch"

	StateClean signal.State = "branch clean"
	StateDirty signal.State = "branch dirty"

	StateMainBranch    signal.State = "main branch"
	StateFeatureBranch signal.State = "feature branch"

	StateUpToDate signal.State = "up to date"
	StateAhead    signal.State = "ahead"
	StateBehind   signal.State = "behind"
	StateDetached signal.State = "detached"

	defaultMainBranch = "main"
)

// Factories returns the registry factories of the git kinds, sharing runner.
func Factories(runner command.Runner) map[string]registry.Factory {
	return map[string]registry.Factory{
		KindStatus: func(spec registry.Spec) (signal.Resolver, error) {
			repo, err := repoFromParams(spec, runner)
			if err != nil {
				return nil, err
			}
			return NewStatus(spec.Name, repo), nil
		},
		KindBranch: func(spec registry.Spec) (signal.Resolver, error) {
			repo, err := repoFromParams(spec, runner)
			if err != nil {
				return nil, err
			}
			mainBranch, err := params.OptionalString(spec.Params, "main_branch", defaultMainBranch)
			if err != nil {
				return nil, err
			}
			return NewBranch(spec.Name, repo, mainBranch), nil
		},
		KindFetch: func(spec registry.Spec) (signal.Resolver, error) {
			repo, err := repoFromParams(spec, runner)
			if err != nil {
				return nil, err
			}
			return NewFetch(spec.Name, repo), nil
		},
	}
}

func repoFromParams(spec registry.Spec, runner command.Runner) (*Repo, error) {
	path, err := params.String(spec.Params, "path")
	if err != nil {
		return nil, err
	}
	return NewRepo(path, runner), nil
}

// Status is dirty while tracked files have uncommitted changes.
type Status struct {
	name     string
	repo     *Repo
	colors   signal.Table
	messages signal.Table
}

func NewStatus(name string, repo *Repo) *Status {
	return &Status{
		name: name,
		repo: repo,
		colors: signal.Table{
			StateClean: signal.ColorLightBlue,
			StateDirty: signal.ColorPurple,
		},
		messages: signal.Table{
			StateClean: name + " is clean",
			StateDirty: name + " is dirty",
		},
	}
}

func (s *Status) ResolveState(ctx context.Context) (signal.State, error) {
	dirty, err := s.repo.Dirty(ctx)
	if err != nil {
		return "", err
	}
	if dirty {
		return StateDirty, nil
	}
	return StateClean, nil
}

func (s *Status) ResolveColor(state signal.State) (string, error) {
	return s.colors.Color(s.name, state)
}

func (s *Status) ResolveMessage(state signal.State) (string, error) {
	return s.messages.Message(s.name, state)
}

// Branch tells the main branch apart from any other checkout. A detached HEAD
// counts as a feature branch.
type Branch struct {
	name   string
	main   string
	repo   *Repo
	colors signal.Table

	mu      sync.Mutex
	current string
}

func NewBranch(name string, repo *Repo, mainBranch string) *Branch {
	return &Branch{
		name: name,
		main: mainBranch,
		repo: repo,
		colors: signal.Table{
			StateMainBranch:    signal.ColorLightBlue,
			StateFeatureBranch: signal.ColorPurple,
		},
	}
}

func (b *Branch) ResolveState(ctx context.Context) (signal.State, error) {
	branch, detached, err := b.repo.Branch(ctx)
	if err != nil {
		return "", err
	}
	if detached {
		branch = "detached HEAD"
	}
	b.mu.Lock()
	b.current = branch
	b.mu.Unlock()
	if !detached && branch == b.main {
		return StateMainBranch, nil
	}
	return StateFeatureBranch, nil
}

func (b *Branch) ResolveColor(state signal.State) (string, error) {
	return b.colors.Color(b.name, state)
}

func (b *Branch) ResolveMessage(state signal.State) (string, error) {
	b.mu.Lock()
	current := b.current
	b.mu.Unlock()
	return signal.Table{
		StateMainBranch:    b.name + " is on the main branch: " + current,
		StateFeatureBranch: b.name + " is on the feature branch: " + current,
	}.Message(b.name, state)
}

// Fetch fetches the default remote and compares the active branch with its
// upstream. The state follows the sign of ahead minus behind.
type Fetch struct {
	name   string
	repo   *Repo
	colors signal.Table

	mu   sync.Mutex
	away int
}

func NewFetch(name string, repo *Repo) *Fetch {
	return &Fetch{
		name: name,
		repo: repo,
		colors: signal.Table{
			StateUpToDate: signal.ColorLightBlue,
			StateAhead:    signal.ColorOrange,
			StateBehind:   signal.ColorPurple,
			StateDetached: signal.ColorRed,
		},
	}
}

func (f *Fetch) ResolveState(ctx context.Context) (signal.State, error) {
	_, detached, err := f.repo.Branch(ctx)
	if err != nil {
		return "", err
	}
	if detached {
		return StateDetached, nil
	}
	if err := f.repo.Fetch(ctx); err != nil {
		return "", err
	}
	ahead, behind, err := f.repo.Divergence(ctx)
	if err != nil {
		return "", err
	}
	away := ahead - behind
	f.mu.Lock()
	f.away = away
	f.mu.Unlock()
	switch {
	case away > 0:
		return StateAhead, nil
	case away < 0:
		return StateBehind, nil
	default:
		return StateUpToDate, nil
	}
}

func (f *Fetch) ResolveColor(state signal.State) (string, error) {
	return f.colors.Color(f.name, state)
}

func (f *Fetch) ResolveMessage(state signal.State) (string, error) {
	f.mu.Lock()
	away := f.away
	f.mu.Unlock()
	return signal.Table{
		StateUpToDate: f.name + " is up to date on the current branch",
		StateAhead:    f.name + " is ahead by " + strconv.Itoa(away) + " commits on the current branch",
		StateBehind:   f.name + " is behind by " + strconv.Itoa(-away) + " commits on the current branch",
		StateDetached: f.name + " has a detached head",
	}.Message(f.name, state)
}
