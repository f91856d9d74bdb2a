package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

type fakeGateway struct {
	mu       sync.Mutex
	signals  signal.Snapshot
	sets     []signal.Signal
	deletes  []string
	fetchErr error
	setErr   error
	fetches  int
}

func newFakeGateway(existing ...signal.Signal) *fakeGateway {
	g := &fakeGateway{signals: signal.Snapshot{}}
	for _, item := range existing {
		g.signals[item.ZoneID] = item
	}
	return g
}

func (g *fakeGateway) FetchAll(ctx context.Context) (signal.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	out := signal.Snapshot{}
	for zone, item := range g.signals {
		out[zone] = item
	}
	return out, nil
}

func (g *fakeGateway) Set(ctx context.Context, s signal.Signal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.setErr != nil {
		return g.setErr
	}
	g.sets = append(g.sets, s)
	g.signals[s.ZoneID] = s
	return nil
}

func (g *fakeGateway) Delete(ctx context.Context, zoneID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes = append(g.deletes, zoneID)
	delete(g.signals, zoneID)
	return nil
}

func (g *fakeGateway) writes() []signal.Signal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]signal.Signal(nil), g.sets...)
}

func (g *fakeGateway) deleted() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deletes...)
}

type staticResolver struct {
	state      signal.State
	colors     signal.Table
	messages   signal.Table
	stateErr   error
	panicValue any
}

func (r staticResolver) ResolveState(ctx context.Context) (signal.State, error) {
	if r.panicValue != nil {
		panic(r.panicValue)
	}
	if r.stateErr != nil {
		return "", r.stateErr
	}
	return r.state, nil
}

func (r staticResolver) ResolveColor(state signal.State) (string, error) {
	return r.colors.Color("X", state)
}

func (r staticResolver) ResolveMessage(state signal.State) (string, error) {
	return r.messages.Message("X", state)
}

func runningResolver() staticResolver {
	return staticResolver{
		state:    "ON",
		colors:   signal.Table{"ON": signal.ColorLightGreen},
		messages: signal.Table{"ON": "X is running"},
	}
}

// blockingResolver holds every ResolveState call until release is closed.
type blockingResolver struct {
	mu       sync.Mutex
	active   int
	maxSeen  int
	calls    int
	release  chan struct{}
	started  chan struct{}
	resolved staticResolver
}

func newBlockingResolver() *blockingResolver {
	return &blockingResolver{
		release:  make(chan struct{}),
		started:  make(chan struct{}, 16),
		resolved: runningResolver(),
	}
}

func (r *blockingResolver) ResolveState(ctx context.Context) (signal.State, error) {
	r.mu.Lock()
	r.active++
	r.calls++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()
	select {
	case r.started <- struct{}{}:
	default:
	}

	<-r.release

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return r.resolved.ResolveState(ctx)
}

func (r *blockingResolver) ResolveColor(state signal.State) (string, error) {
	return r.resolved.ResolveColor(state)
}

func (r *blockingResolver) ResolveMessage(state signal.State) (string, error) {
	return r.resolved.ResolveMessage(state)
}

func (r *blockingResolver) counts() (calls int, maxSeen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.maxSeen
}

type recordingObserver struct {
	mu      sync.Mutex
	results []Result
}

func (o *recordingObserver) Observe(result Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
