package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/kitchensync/internal/client"
	"github.com/roach88/kitchensync/internal/model"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Server  string
	Token   string
	Types   string
	Station string
	Workers int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mirror a server and print its changes",
		Long: `Connect to a kitchensync server as a client.

watch subscribes to the change stream, bootstraps a local mirror over REST,
and prints every change it applies. With --station it prints that station's
work queue after bootstrap and after every change instead.

Example:
  kitchensync watch --server http://localhost:8080
  kitchensync watch --types Order,OrderItem --format json
  kitchensync watch --station grill-line --token $KITCHENSYNC_TOKEN`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.Token, "token", os.Getenv("KITCHENSYNC_TOKEN"), "bearer token")
	cmd.Flags().StringVar(&opts.Types, "types", "", "comma-separated entity types to mirror (default all)")
	cmd.Flags().StringVar(&opts.Station, "station", "", "print this station's queue instead of changes")
	cmd.Flags().IntVar(&opts.Workers, "workers", client.DefaultBootstrapWorkers, "concurrent bootstrap requests")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	_, logger, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	types, err := model.ParseEntityTypes(opts.Types)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --types", err)
	}

	p := &watchPrinter{w: cmd.OutOrStdout(), json: opts.Format == "json"}
	var c *client.Client
	showQueue := func() {}
	if opts.Station != "" {
		// The queue joins items with their orders and products.
		types = []model.EntityType{model.EntityStation, model.EntityProduct, model.EntityOrder, model.EntityOrderItem}
		showQueue = func() { p.queue(c.Mirror(), opts.Station) }
	}

	c, err = client.New(client.Options{
		ServerURL:        opts.Server,
		Token:            opts.Token,
		Types:            types,
		BootstrapWorkers: opts.Workers,
		OnEnvelope: func(env model.Envelope) {
			if opts.Station != "" {
				showQueue()
				return
			}
			p.envelope(env)
		},
	}, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --server", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Run(ctx, showQueue); err != nil {
		return failWith(ExitFailure, ErrCodeServer, "watch stopped", err)
	}
	return nil
}

// watchPrinter serializes output from the consumer and bootstrap goroutines.
type watchPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func (p *watchPrinter) envelope(env model.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		_ = json.NewEncoder(p.w).Encode(env)
		return
	}
	fmt.Fprintf(p.w, "%-6s %-9s %s\n", env.Operation, env.EntityType, env.Payload)
}

type queueLine struct {
	Order    int64        `json:"order"`
	ItemID   string       `json:"item_id"`
	Product  string       `json:"product"`
	Quantity int64        `json:"quantity"`
	Status   model.Status `json:"status"`
}

func (p *watchPrinter) queue(m *client.Mirror, stationID string) {
	entries, ok := m.StationQueue(stationID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		lines := make([]queueLine, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, queueLine{
				Order:    e.Order.SequentialID,
				ItemID:   e.Item.ID,
				Product:  e.Product.Name,
				Quantity: e.Item.Quantity,
				Status:   e.Item.Status,
			})
		}
		_ = json.NewEncoder(p.w).Encode(map[string]any{"station": stationID, "known": ok, "queue": lines})
		return
	}

	if !ok {
		fmt.Fprintf(p.w, "station %s: unknown\n", stationID)
		return
	}
	fmt.Fprintf(p.w, "station %s: %d waiting\n", stationID, len(entries))
	for _, e := range entries {
		fmt.Fprintf(p.w, "  #%-4d %dx %s [%s]\n", e.Order.SequentialID, e.Item.Quantity, e.Product.Name, e.Item.Status)
	}
}
