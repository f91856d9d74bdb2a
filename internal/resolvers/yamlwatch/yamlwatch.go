// Package yamlwatch signals when a value inside a remote YAML document changes.
package yamlwatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
	"github.com/micro-ha/q5-assistants/internal/resolvers/webclient"
)

const (
	Kind = "yaml_watch"

	StateRead   signal.State = "read version"
	StateUnread signal.State = "unread version"
)

var ErrKeyPath = errors.New("key path does not lead to a scalar value")

// Resolver keeps a changed value "unread" for the notification window.
// The first value observed is treated as already read.
type Resolver struct {
	name   string
	url    string
	keys   []string
	window time.Duration
	client *webclient.Client
	now    func() time.Time

	mu        sync.Mutex
	value     string
	seen      bool
	changedAt time.Time
}

// New builds a resolver from params: url, keys, notify (minutes or duration).
func New(spec registry.Spec) (signal.Resolver, error) {
	url, err := params.String(spec.Params, "url")
	if err != nil {
		return nil, err
	}
	keys, err := params.Strings(spec.Params, "keys")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("param %q must list at least one key", "keys")
	}
	window, err := params.OptionalDuration(spec.Params, "notify", time.Minute, time.Hour)
	if err != nil {
		return nil, err
	}
	timeout, err := params.OptionalDuration(spec.Params, "timeout", time.Second, 0)
	if err != nil {
		return nil, err
	}
	return NewResolver(spec.Name, url, keys, window, webclient.New("", "", timeout)), nil
}

func NewResolver(name, url string, keys []string, window time.Duration, client *webclient.Client) *Resolver {
	return &Resolver{
		name:   name,
		url:    url,
		keys:   keys,
		window: window,
		client: client,
		now:    time.Now,
	}
}

func (r *Resolver) ResolveState(ctx context.Context) (signal.State, error) {
	body, err := r.client.Get(ctx, r.url)
	if err != nil {
		return "", err
	}
	current, err := Lookup(body, r.keys)
	if err != nil {
		return "", err
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !r.seen:
		r.seen = true
		r.value = current
		r.changedAt = now.Add(-r.window)
		return StateRead, nil
	case current != r.value:
		r.value = current
		r.changedAt = now
		return StateUnread, nil
	case now.Sub(r.changedAt) > r.window:
		return StateRead, nil
	default:
		return StateUnread, nil
	}
}

// Lookup walks keys through nested mappings of doc and returns the scalar at the end.
func Lookup(doc []byte, keys []string) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return "", fmt.Errorf("parse yaml: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for i, key := range keys {
		if node.Kind != yaml.MappingNode {
			return "", fmt.Errorf("%w: %q is not a mapping", ErrKeyPath, strings.Join(keys[:i], "."))
		}
		next := mappingValue(node, key)
		if next == nil {
			return "", fmt.Errorf("%w: %q not found", ErrKeyPath, strings.Join(keys[:i+1], "."))
		}
		node = next
	}
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %q", ErrKeyPath, strings.Join(keys, "."))
	}
	return node.Value, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			value := node.Content[i+1]
			if value.Kind == yaml.AliasNode && value.Alias != nil {
				return value.Alias
			}
			return value
		}
	}
	return nil
}

var colors = signal.Table{
	StateRead:   signal.ColorLightBlue,
	StateUnread: signal.ColorPurple,
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	r.mu.Lock()
	value := r.value
	r.mu.Unlock()
	return signal.Table{
		StateRead:   "Value at " + r.url + " remains at " + value,
		StateUnread: "Value at " + r.url + " has changed to " + value,
	}.Message(r.name, state)
}
