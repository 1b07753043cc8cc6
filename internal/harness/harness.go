package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kitchensync/internal/bus"
	"github.com/roach88/kitchensync/internal/engine"
	"github.com/roach88/kitchensync/internal/seed"
	"github.com/roach88/kitchensync/internal/store"
	"github.com/roach88/kitchensync/internal/testutil"
)

// Harness holds the engine a scenario runs against.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	sub    *bus.Subscription
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. A returned error means
// the scenario itself could not run (bad catalog, failing setup, malformed
// args); engine outcomes are reported through the Result.
//
// Execution flow:
//  1. Create fresh in-memory database, bus and engine
//  2. Apply the catalog, if any
//  3. Execute setup steps
//  4. Execute flow steps, checking expect clauses and tracing envelopes
//  5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	b := bus.New(logger)
	sub := b.Subscribe()
	defer sub.Close()

	h := &Harness{
		store:  st,
		engine: engine.New(st, b, engine.NewSequenceGenerator("id"), engine.WithLogger(logger)),
		sub:    sub,
		logger: logger,
	}

	ctx := context.Background()

	if scenario.Catalog != "" {
		cat, err := seed.LoadFile(scenario.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		if _, err := seed.Apply(ctx, h.engine, st, cat, logger); err != nil {
			return nil, fmt.Errorf("failed to apply catalog: %w", err)
		}
	}

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	testutil.Drain(sub)

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(ctx, result, scenario.Assertions, st) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSetup runs all setup steps. Any error aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		if _, err := h.invoke(ctx, step); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
	}
	return nil
}

// executeFlow runs flow steps and records the envelopes each one published.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		out, err := h.invoke(ctx, step)
		var ae *argsError
		if errors.As(err, &ae) {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		result.addEnvelopes(i+1, testutil.Drain(h.sub))

		if msg := checkExpect(step, out, err); msg != "" {
			result.AddError(fmt.Sprintf("flow step %d (%s): %s", i+1, step.Action, msg))
		}
	}
	return nil
}

func (h *Harness) invoke(ctx context.Context, step Step) (any, error) {
	run, ok := actions[step.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", step.Action)
	}
	args, err := json.Marshal(step.Args)
	if err != nil {
		return nil, &argsError{action: step.Action, err: err}
	}
	out, err := run(ctx, h.engine, args)
	var ae *argsError
	if errors.As(err, &ae) {
		ae.action = step.Action
	}
	return out, err
}

// checkExpect compares a step outcome with its expect clause. It returns an
// empty string when the outcome matches.
func checkExpect(step Step, out any, err error) string {
	want := ""
	var wantResult map[string]any
	if step.Expect != nil {
		want = step.Expect.Error
		wantResult = step.Expect.Result
	}

	if got := errorKind(err); got != want {
		if err != nil {
			return fmt.Sprintf("expected error %q, got %q: %v", want, got, err)
		}
		return fmt.Sprintf("expected error %q, got success", want)
	}
	if len(wantResult) == 0 {
		return ""
	}

	actual, jerr := toJSONValue(out)
	if jerr != nil {
		return fmt.Sprintf("result not encodable: %v", jerr)
	}
	expected, jerr := toJSONValue(wantResult)
	if jerr != nil {
		return fmt.Sprintf("expected result not encodable: %v", jerr)
	}
	if !subsetMatch(expected, actual) {
		a, _ := json.Marshal(actual)
		e, _ := json.Marshal(expected)
		return fmt.Sprintf("result %s does not match %s", a, e)
	}
	return ""
}
