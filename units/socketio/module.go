// Package socketio provides a built-in unit holding a persistent
// Socket.IO client connection.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Client is the unit instance backing the "socketio" factory. The
// connection is established during Load so the loader's timeout and retry
// policy govern it.
type Client struct {
	rawURL             string
	namespace          string
	insecureSkipVerify bool

	io *socket.Socket
}

// New builds the unit from its spec. Config keys: "url" (required),
// "namespace", "insecure_skip_verify".
func New(_ context.Context, spec *unit.Spec) (unit.Unit, error) {
	rawURL := spec.ConfigString("url", "")
	if rawURL == "" {
		return nil, fmt.Errorf("unit '%s': config key 'url' is required", spec.Name)
	}
	return &Client{
		rawURL:             rawURL,
		namespace:          spec.ConfigString("namespace", ""),
		insecureSkipVerify: spec.ConfigBool("insecure_skip_verify", false),
	}, nil
}

// Load implements unit.Unit. It blocks until the connection is
// established or the context expires.
func (c *Client) Load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("url", c.rawURL)
	logger.Info("Connecting socket.io client...")

	parsedURL, err := url.Parse(c.rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if c.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(c.namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- errs[0].(error)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
		c.io = io
		return nil
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("socket.io connection interrupted: %w", ctx.Err())
	}
}

// Unload implements unit.Unit.
func (c *Client) Unload(context.Context) error {
	if c.io != nil {
		c.io.Disconnect()
		c.io = nil
	}
	return nil
}

// Capabilities implements unit.Unit.
func (c *Client) Capabilities() []unit.Capability {
	return []unit.Capability{
		{
			Name:        "emit",
			Description: "Emit an event with an optional payload.",
			Handler:     c.emit,
		},
	}
}

// Describe implements unit.Describer.
func (c *Client) Describe() unit.Metadata {
	return unit.Metadata{Version: "1.0.0", Description: "persistent socket.io connection"}
}

func (c *Client) emit(_ context.Context, args map[string]any) (any, error) {
	if c.io == nil {
		return nil, fmt.Errorf("socket.io client is not connected")
	}
	event, _ := args["event"].(string)
	if event == "" {
		return nil, fmt.Errorf("argument 'event' is required")
	}
	if payload, ok := args["payload"]; ok {
		return nil, c.io.Emit(event, payload)
	}
	return nil, c.io.Emit(event)
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory("socketio", New)
}
