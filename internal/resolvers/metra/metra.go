// Package metra signals service alerts published for one Metra route.
package metra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
	"github.com/micro-ha/q5-assistants/internal/resolvers/webclient"
)

const (
	Kind = "metra"

	DefaultAlertsURL = "https://gtfsapi.metrarail.com/gtfs/alerts"

	StateRead   signal.State = "read alert"
	StateUnread signal.State = "unread alert"
)

var ErrMalformedFeed = errors.New("alerts response was not as expected")

// Resolver counts non-deleted alerts whose informed entities reference the route.
type Resolver struct {
	name    string
	routeID string
	feedURL string
	client  *webclient.Client

	mu    sync.Mutex
	count int
}

// New builds a metra resolver from params: access_key, secret_key, route_id and optional url.
func New(spec registry.Spec) (signal.Resolver, error) {
	accessKey, err := params.String(spec.Params, "access_key")
	if err != nil {
		return nil, err
	}
	secretKey, err := params.String(spec.Params, "secret_key")
	if err != nil {
		return nil, err
	}
	routeID, err := params.String(spec.Params, "route_id")
	if err != nil {
		return nil, err
	}
	feedURL, err := params.OptionalString(spec.Params, "url", DefaultAlertsURL)
	if err != nil {
		return nil, err
	}
	timeout, err := params.OptionalDuration(spec.Params, "timeout", time.Second, 0)
	if err != nil {
		return nil, err
	}
	return NewResolver(spec.Name, routeID, feedURL, webclient.New(accessKey, secretKey, timeout)), nil
}

func NewResolver(name, routeID, feedURL string, client *webclient.Client) *Resolver {
	return &Resolver{name: name, routeID: routeID, feedURL: feedURL, client: client}
}

type informedEntity struct {
	RouteID *string `json:"route_id"`
	Trip    *struct {
		RouteID *string `json:"route_id"`
	} `json:"trip"`
}

type feedEntry struct {
	IsDeleted *bool `json:"is_deleted"`
	Alert     *struct {
		InformedEntity *[]informedEntity `json:"informed_entity"`
	} `json:"alert"`
}

func (r *Resolver) ResolveState(ctx context.Context) (signal.State, error) {
	body, err := r.client.Get(ctx, r.feedURL)
	if err != nil {
		return "", err
	}
	count, err := CountAlerts(body, r.routeID)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.count = count
	r.mu.Unlock()
	if count > 0 {
		return StateUnread, nil
	}
	return StateRead, nil
}

// CountAlerts counts informed entities of live alerts that reference routeID,
// either directly or through a trip.
func CountAlerts(body []byte, routeID string) (int, error) {
	var entries []feedEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	total := 0
	for i, entry := range entries {
		if entry.IsDeleted == nil || entry.Alert == nil || entry.Alert.InformedEntity == nil {
			return 0, fmt.Errorf("%w: entry %d lacks is_deleted or alert.informed_entity", ErrMalformedFeed, i)
		}
		if *entry.IsDeleted {
			continue
		}
		for _, informed := range *entry.Alert.InformedEntity {
			switch {
			case informed.RouteID != nil && *informed.RouteID == routeID:
				total++
			case informed.Trip != nil && informed.Trip.RouteID != nil && *informed.Trip.RouteID == routeID:
				total++
			}
		}
	}
	return total, nil
}

var colors = signal.Table{
	StateRead:   signal.ColorLightBlue,
	StateUnread: signal.ColorYellow,
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	r.mu.Lock()
	count := r.count
	r.mu.Unlock()

	unread := fmt.Sprintf("There are %d new alerts on %s", count, r.routeID)
	if count == 1 {
		unread = "There is 1 new alert on " + r.routeID
	}
	return signal.Table{
		StateRead:   "There are no new alerts on " + r.routeID,
		StateUnread: unread,
	}.Message(r.name, state)
}
