package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/bus"
	"github.com/roach88/kitchensync/internal/model"
	"github.com/roach88/kitchensync/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testEngine bundles an engine with a subscription that records every
// envelope it publishes.
type testEngine struct {
	*Engine
	store *store.Store
	sub   *bus.Subscription
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	return newTestEngineWithStore(t, nil)
}

// newTestEngineWithStore wraps the real store with wrap when non-nil.
func newTestEngineWithStore(t *testing.T, wrap func(Store) Store) *testEngine {
	t.Helper()
	s := setupTestStore(t)
	b := bus.New(nil)
	sub := b.Subscribe()
	t.Cleanup(sub.Close)

	var backing Store = s
	if wrap != nil {
		backing = wrap(s)
	}
	return &testEngine{
		Engine: New(backing, b, NewSequenceGenerator("id")),
		store:  s,
		sub:    sub,
	}
}

// drain returns every envelope published since the last drain.
func (te *testEngine) drain() []model.Envelope {
	var out []model.Envelope
	for {
		env, ok := te.sub.TryNext()
		if !ok {
			return out
		}
		out = append(out, env)
	}
}

type published struct {
	Type model.EntityType
	Op   model.Operation
}

func summarize(envs []model.Envelope) []published {
	out := make([]published, len(envs))
	for i, env := range envs {
		out[i] = published{Type: env.EntityType, Op: env.Operation}
	}
	return out
}

// seedProduct creates a category and an active product at price.
func (te *testEngine) seedProduct(t *testing.T, price int64) model.Product {
	t.Helper()
	ctx := context.Background()
	cat, err := te.CreateCategory(ctx, model.Category{Name: "Mains"})
	require.NoError(t, err)
	p, err := te.CreateProduct(ctx, model.Product{Name: "Burger", CategoryID: cat.ID, Price: price, Active: true})
	require.NoError(t, err)
	te.drain()
	return p
}

func (te *testEngine) order(t *testing.T, id string) model.Order {
	t.Helper()
	o, err := te.store.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o
}
