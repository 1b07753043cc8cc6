// Package bridge forwards bus envelopes to WebSocket clients.
//
// Each connection owns one bus subscription covering the entity types named
// in the "types" query parameter (default: all). Envelopes are written as
// JSON text frames, one per envelope, in subscription order. The stream is
// one-way: a client that sends a data frame is disconnected with a policy
// violation close.
//
// Nothing is resent after a reconnect. A reconnecting client must dial
// first and then bootstrap its caches again.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/roach88/kitchensync/internal/bus"
	"github.com/roach88/kitchensync/internal/model"
)

// Subscriber hands out bus subscriptions. Implemented by *bus.Bus.
type Subscriber interface {
	Subscribe(types ...model.EntityType) *bus.Subscription
}

// Bridge is an http.Handler that upgrades requests to WebSocket
// connections fed from the bus.
type Bridge struct {
	bus          Subscriber
	logger       *slog.Logger
	accept       websocket.AcceptOptions
	writeTimeout time.Duration

	connections atomic.Int64
	nextConn    atomic.Uint64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithOriginPatterns allows cross-origin browser clients matching the
// given host patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(br *Bridge) {
		br.accept.OriginPatterns = append(br.accept.OriginPatterns, patterns...)
	}
}

// WithWriteTimeout bounds each frame write. Zero (the default) means no
// timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(br *Bridge) {
		br.writeTimeout = d
	}
}

// New creates a bridge over b. A nil logger uses slog.Default().
func New(b Subscriber, logger *slog.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	br := &Bridge{bus: b, logger: logger}
	for _, opt := range opts {
		opt(br)
	}
	return br
}

// Connections returns the number of open client connections.
func (br *Bridge) Connections() int64 {
	return br.connections.Load()
}

// ServeHTTP implements http.Handler.
//
// The subscription is registered before the upgrade completes, so every
// envelope published after the client's dial returns is delivered.
func (br *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types, err := model.ParseEntityTypes(r.URL.Query().Get("types"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	sub := br.bus.Subscribe(types...)
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &br.accept)
	if err != nil {
		// Accept has already written the HTTP error response.
		br.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	id := br.nextConn.Add(1)
	logger := br.logger.With("conn", id, "subscription", sub.ID())
	br.connections.Add(1)
	released := false
	release := func() {
		if !released {
			released = true
			sub.Close()
			br.connections.Add(-1)
		}
	}
	defer release()

	logger.Info("client connected", "remote_addr", r.RemoteAddr, "entity_types", types)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	readDone := make(chan error, 1)
	go br.read(ctx, cancel, conn, readDone)

	err = br.forward(ctx, conn, sub)
	// Unsubscribe before the close handshake, which can take seconds.
	release()

	var readErr error
	clientSent := false
	select {
	case readErr = <-readDone:
		clientSent = readErr == nil
	default:
	}

	switch {
	case r.Context().Err() != nil:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		logger.Info("client disconnected", "reason", "server shutdown")
	case clientSent:
		conn.Close(websocket.StatusPolicyViolation, "unexpected data message")
		logger.Info("client disconnected", "reason", "data frame received")
	case readErr != nil:
		conn.CloseNow()
		logger.Info("client disconnected", "reason", "client closed")
	default:
		conn.CloseNow()
		logger.Warn("client dropped", "error", err)
	}
}

// read waits for the first client frame. A data frame (nil error) or a read
// error both end the connection; cancel runs after the result is sent.
func (br *Bridge) read(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, done chan<- error) {
	defer cancel()
	_, _, err := conn.Read(ctx)
	done <- err
}

// forward writes envelopes until the subscription or connection ends.
func (br *Bridge) forward(ctx context.Context, conn *websocket.Conn, sub *bus.Subscription) error {
	for {
		env, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return err
			}
			return ctx.Err()
		}

		if err := br.write(ctx, conn, env); err != nil {
			return err
		}
	}
}

func (br *Bridge) write(ctx context.Context, conn *websocket.Conn, env model.Envelope) error {
	if br.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, br.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, env)
}
