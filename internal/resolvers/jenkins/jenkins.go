// Package jenkins signals the result of the last build of a Jenkins job.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
	"github.com/micro-ha/q5-assistants/internal/resolvers/webclient"
)

const Kind = "jenkins"

const (
	StateSuccess  signal.State = "SUCCESS"
	StateFailure  signal.State = "FAILURE"
	StateUnstable signal.State = "UNSTABLE"
)

var ErrBuildRunning = errors.New("last build has no result yet")

// Resolver reads /job/<job>/lastBuild/api/json. The build result is the state.
type Resolver struct {
	name     string
	endpoint string
	client   *webclient.Client
}

// New builds a jenkins resolver from params: server_url, job, and optional
// username, token, timeout.
func New(spec registry.Spec) (signal.Resolver, error) {
	serverURL, err := params.String(spec.Params, "server_url")
	if err != nil {
		return nil, err
	}
	job, err := params.String(spec.Params, "job")
	if err != nil {
		return nil, err
	}
	username, err := params.OptionalString(spec.Params, "username", "")
	if err != nil {
		return nil, err
	}
	token, err := params.OptionalString(spec.Params, "token", "")
	if err != nil {
		return nil, err
	}
	timeout, err := params.OptionalDuration(spec.Params, "timeout", time.Second, 0)
	if err != nil {
		return nil, err
	}
	return NewResolver(spec.Name, serverURL, job, webclient.New(username, token, timeout)), nil
}

func NewResolver(name, serverURL, job string, client *webclient.Client) *Resolver {
	var path strings.Builder
	// Folder jobs are written a/b and map to /job/a/job/b.
	for _, part := range strings.Split(strings.Trim(job, "/"), "/") {
		path.WriteString("/job/")
		path.WriteString(url.PathEscape(part))
	}
	return &Resolver{
		name:     name,
		endpoint: strings.TrimSuffix(serverURL, "/") + path.String() + "/lastBuild/api/json",
		client:   client,
	}
}

type buildInfo struct {
	Number   int     `json:"number"`
	Result   *string `json:"result"`
	Building bool    `json:"building"`
}

func (r *Resolver) ResolveState(ctx context.Context) (signal.State, error) {
	body, err := r.client.Get(ctx, r.endpoint)
	if err != nil {
		return "", err
	}
	var info buildInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode build info: %w", err)
	}
	if info.Result == nil {
		return "", fmt.Errorf("build #%d: %w", info.Number, ErrBuildRunning)
	}
	return signal.State(*info.Result), nil
}

var colors = signal.Table{
	StateSuccess:  signal.ColorLightGreen,
	StateFailure:  signal.ColorRed,
	StateUnstable: signal.ColorYellow,
}

var outcomes = signal.Table{
	StateSuccess:  "was successful",
	StateFailure:  "failed",
	StateUnstable: "was unstable",
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	outcome, err := outcomes.Message(r.name, state)
	if err != nil {
		return "", err
	}
	return r.name + ": the last build " + outcome, nil
}
