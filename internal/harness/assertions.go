package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/kitchensync/internal/model"
	"github.com/roach88/kitchensync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] step %d %s %s\n", i+1, event.Step, event.Op(), event.Payload)
	}

	return buf.String()
}

func matchesSelector(event TraceEvent, a Assertion) bool {
	if event.EntityType != a.EntityType {
		return false
	}
	return a.Operation == "" || event.Operation == a.Operation
}

func selectorString(a Assertion) string {
	if a.Operation == "" {
		return string(a.EntityType) + ".*"
	}
	return string(a.EntityType) + "." + string(a.Operation)
}

// assertEnvelopeContains checks that some envelope matches the selector and
// payload subset.
func assertEnvelopeContains(trace []TraceEvent, a Assertion) error {
	expected, err := toJSONValue(a.Payload)
	if err != nil {
		return fmt.Errorf("envelope_contains: payload: %w", err)
	}
	for _, event := range trace {
		if !matchesSelector(event, a) {
			continue
		}
		if a.Payload == nil {
			return nil
		}
		var actual any
		if err := json.Unmarshal(event.Payload, &actual); err != nil {
			continue
		}
		if subsetMatch(expected, actual) {
			return nil
		}
	}

	want := selectorString(a)
	if a.Payload != nil {
		e, _ := json.Marshal(expected)
		want += " with payload " + string(e)
	}
	return &AssertionError{
		Type:     AssertEnvelopeContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEnvelopeOrder checks that the sequence occurs in the trace as a
// subsequence. Intervening envelopes are allowed.
func assertEnvelopeOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Sequence) && event.Op() == a.Sequence[next] {
			next++
		}
	}
	if next == len(a.Sequence) {
		return nil
	}

	matched := "nothing"
	if next > 0 {
		matched = strings.Join(a.Sequence[:next], ", ")
	}
	return &AssertionError{
		Type:     AssertEnvelopeOrder,
		Expected: fmt.Sprintf("envelopes in order: %v", a.Sequence),
		Actual:   fmt.Sprintf("matched %s, then no %s", matched, a.Sequence[next]),
		Trace:    trace,
	}
}

// assertEnvelopeCount checks the exact number of matching envelopes.
func assertEnvelopeCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matchesSelector(event, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEnvelopeCount,
			Expected: fmt.Sprintf("%d %s envelopes", a.Count, selectorString(a)),
			Actual:   fmt.Sprintf("%d envelopes", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState loads the entity from the store and checks the expected
// fields with subset semantics.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	entity, err := loadEntity(ctx, st, a.EntityType, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %q to exist", a.EntityType, a.ID),
			Actual:   err.Error(),
		}
	}

	actual, err := toJSONValue(entity)
	if err != nil {
		return err
	}
	expected, err := toJSONValue(a.Expect)
	if err != nil {
		return err
	}
	if !subsetMatch(expected, actual) {
		got, _ := json.Marshal(actual)
		want, _ := json.Marshal(expected)
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %q matching %s", a.EntityType, a.ID, want),
			Actual:   string(got),
		}
	}
	return nil
}

func loadEntity(ctx context.Context, st *store.Store, t model.EntityType, id string) (any, error) {
	switch t {
	case model.EntityCategory:
		return st.GetCategory(ctx, id)
	case model.EntityProduct:
		return st.GetProduct(ctx, id)
	case model.EntityStation:
		return st.GetStation(ctx, id)
	case model.EntityOrder:
		return st.GetOrder(ctx, id)
	case model.EntityOrderItem:
		return st.GetOrderItem(ctx, id)
	case model.EntitySettings:
		return st.GetSettings(ctx)
	case model.EntityEvent:
		return st.GetEvent(ctx, id)
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

// toJSONValue round-trips v through JSON so YAML values and Go structs
// compare in the same representation.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subsetMatch reports whether actual contains expected. Maps match when
// every expected key matches (extra keys in actual are ignored); a nil
// expected value also matches a missing key. Lists match element-wise and
// must have the same length.
func subsetMatch(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, want := range exp {
			got, exists := act[key]
			if !exists {
				if want == nil {
					continue
				}
				return false
			}
			if !subsetMatch(want, got) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subsetMatch(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return expected == actual
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, st *store.Store) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEnvelopeContains:
			err = assertEnvelopeContains(result.Trace, assertion)
		case AssertEnvelopeOrder:
			err = assertEnvelopeOrder(result.Trace, assertion)
		case AssertEnvelopeCount:
			err = assertEnvelopeCount(result.Trace, assertion)
		case AssertFinalState:
			if st == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a store", i)
			} else {
				err = assertFinalState(ctx, st, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
