package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/kitchensync/internal/model"
)

//go:generate mockgen -destination=./mocks/source_mock.go -package=mocks github.com/roach88/kitchensync/internal/client Source

// Source reads whole collections for cache bootstrap.
// Implemented by *RESTSource.
type Source interface {
	Categories(ctx context.Context) ([]model.Category, error)
	Products(ctx context.Context) ([]model.Product, error)
	Stations(ctx context.Context) ([]model.Station, error)
	Events(ctx context.Context) ([]model.Event, error)
	Orders(ctx context.Context) ([]model.Order, error)
	OrderItems(ctx context.Context) ([]model.OrderItem, error)
	Settings(ctx context.Context) ([]model.Settings, error)
}

// RESTSource reads collections from the server's read-all routes.
type RESTSource struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewRESTSource creates a source for the server at baseURL. A nil client
// uses http.DefaultClient.
func NewRESTSource(baseURL, token string, hc *http.Client) (*RESTSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &RESTSource{base: u, token: token, http: hc}, nil
}

func (s *RESTSource) Categories(ctx context.Context) ([]model.Category, error) {
	return getJSON[[]model.Category](ctx, s, "/api/categories")
}

func (s *RESTSource) Products(ctx context.Context) ([]model.Product, error) {
	return getJSON[[]model.Product](ctx, s, "/api/products")
}

func (s *RESTSource) Stations(ctx context.Context) ([]model.Station, error) {
	return getJSON[[]model.Station](ctx, s, "/api/stations")
}

func (s *RESTSource) Events(ctx context.Context) ([]model.Event, error) {
	return getJSON[[]model.Event](ctx, s, "/api/events")
}

func (s *RESTSource) Orders(ctx context.Context) ([]model.Order, error) {
	return getJSON[[]model.Order](ctx, s, "/api/orders")
}

func (s *RESTSource) OrderItems(ctx context.Context) ([]model.OrderItem, error) {
	return getJSON[[]model.OrderItem](ctx, s, "/api/order-items")
}

// Settings returns the singleton as a one-element collection.
func (s *RESTSource) Settings(ctx context.Context) ([]model.Settings, error) {
	settings, err := getJSON[model.Settings](ctx, s, "/api/settings")
	if err != nil {
		return nil, err
	}
	return []model.Settings{settings}, nil
}

func getJSON[T any](ctx context.Context, s *RESTSource, path string) (T, error) {
	var out T
	u := s.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return out, fmt.Errorf("GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return out, fmt.Errorf("GET %s: %s %s", path, resp.Status, strings.TrimSpace(body.Error+" "+body.Details))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return out, nil
}

// websocketURL maps the server base URL onto the bridge endpoint.
func websocketURL(base *url.URL, types []model.EntityType) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u = *u.JoinPath("/ws")
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		q := u.Query()
		q.Set("types", strings.Join(names, ","))
		u.RawQuery = q.Encode()
	}
	return u.String()
}
