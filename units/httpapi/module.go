// Package httpapi provides a built-in unit wrapping a shared HTTP client
// for other units and dispatchers to issue requests through.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// maxResponseBytes caps how much of a response body a capability call
// returns.
const maxResponseBytes = 1 << 20

// API is the unit instance backing the "httpapi" factory.
type API struct {
	baseURL string
	client  *http.Client
}

// New builds the unit from its spec. Config keys: "base_url" (required),
// "timeout" (duration string, default 30s).
func New(_ context.Context, spec *unit.Spec) (unit.Unit, error) {
	baseURL := spec.ConfigString("base_url", "")
	if baseURL == "" {
		return nil, fmt.Errorf("unit '%s': config key 'base_url' is required", spec.Name)
	}

	client := &http.Client{
		Timeout: spec.ConfigDuration("timeout", 30*time.Second),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

// Load implements unit.Unit.
func (a *API) Load(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("HTTP client ready.", "base_url", a.baseURL)
	return nil
}

// Unload implements unit.Unit. Idle connections are released; in-flight
// requests finish on their own timeout.
func (a *API) Unload(context.Context) error {
	a.client.CloseIdleConnections()
	return nil
}

// Capabilities implements unit.Unit.
func (a *API) Capabilities() []unit.Capability {
	return []unit.Capability{
		{
			Name:        "get",
			Description: "GET a path relative to the configured base URL.",
			Handler:     a.get,
		},
		{
			Name:        "post",
			Description: "POST a body to a path relative to the configured base URL.",
			Handler:     a.post,
		},
	}
}

// Describe implements unit.Describer.
func (a *API) Describe() unit.Metadata {
	return unit.Metadata{Version: "1.0.0", Description: "shared HTTP client"}
}

// Response is the capability result for both verbs.
type Response struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (a *API) get(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url(path), nil)
	if err != nil {
		return nil, err
	}
	return a.do(req)
}

func (a *API) post(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	body, _ := args["body"].(string)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url(path), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	if contentType, ok := args["content_type"].(string); ok {
		req.Header.Set("Content-Type", contentType)
	}
	return a.do(req)
}

func (a *API) url(path string) string {
	if path == "" {
		return a.baseURL
	}
	return a.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (a *API) do(req *http.Request) (*Response, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	return &Response{Status: resp.StatusCode, Body: string(body)}, nil
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory("httpapi", New)
}
