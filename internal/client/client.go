package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/roach88/kitchensync/internal/model"
)

// Options configures a Client.
type Options struct {
	// ServerURL is the http(s) base URL of the server.
	ServerURL string

	// Token is sent as a bearer token on every request.
	Token string

	// Types limits the mirrored entity types. Empty means all.
	Types []model.EntityType

	// HTTPClient is used for REST and the WebSocket handshake.
	HTTPClient *http.Client

	// BootstrapWorkers bounds concurrent read-all requests.
	BootstrapWorkers int

	// OnEnvelope, when set, is called from the consumer goroutine after
	// each envelope is applied.
	OnEnvelope func(model.Envelope)
}

// Client keeps a Mirror in sync with a server.
type Client struct {
	opts   Options
	base   *url.URL
	source Source
	mirror *Mirror
	logger *slog.Logger
}

// New creates a client. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := NewRESTSource(opts.ServerURL, opts.Token, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	if len(opts.Types) == 0 {
		opts.Types = model.EntityTypes
	}
	return &Client{
		opts:   opts,
		base:   src.base,
		source: src,
		mirror: NewMirror(logger),
		logger: logger,
	}, nil
}

// Mirror returns the client's caches.
func (c *Client) Mirror() *Mirror {
	return c.mirror
}

// Run dials the bridge, bootstraps the mirror, and applies envelopes until
// ctx is cancelled or the connection drops. ready, when non-nil, is called
// once bootstrap has finished (successfully or not).
//
// A bootstrap failure is logged and the affected caches stay empty; Run
// keeps consuming. Cancelling ctx returns nil.
func (c *Client) Run(ctx context.Context, ready func()) error {
	wsURL := websocketURL(c.base, c.opts.Types)
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	// Subscribe before bootstrap so no change falls between the read-all
	// and the subscription.
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: c.opts.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.CloseNow()
	c.logger.Info("connected", "url", wsURL)

	consumed := make(chan error, 1)
	go func() {
		consumed <- c.consume(ctx, conn)
	}()

	if err := c.mirror.Bootstrap(ctx, c.source, c.opts.BootstrapWorkers, c.opts.Types...); err != nil {
		c.logger.Error("bootstrap incomplete", "error", err)
	}
	if ready != nil {
		ready()
	}

	err = <-consumed
	if ctx.Err() != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
	return err
}

// consume is the single writer of the mirror's live updates.
func (c *Client) consume(ctx context.Context, conn *websocket.Conn) error {
	for {
		var env model.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return errors.New("server closed the connection")
			}
			return fmt.Errorf("read envelope: %w", err)
		}

		// Log and continue.
		if err := c.mirror.Apply(env); err != nil {
			c.logger.Warn("envelope skipped",
				"entity_type", env.EntityType,
				"operation", env.Operation,
				"error", err,
			)
			continue
		}
		if c.opts.OnEnvelope != nil {
			c.opts.OnEnvelope(env)
		}
	}
}
