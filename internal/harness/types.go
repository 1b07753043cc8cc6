package harness

import (
	"encoding/json"

	"github.com/roach88/kitchensync/internal/model"
)

// TraceEvent is one envelope published while a flow step ran.
type TraceEvent struct {
	// Step is the 1-based index of the flow step that published it.
	Step       int              `json:"step"`
	EntityType model.EntityType `json:"entity_type"`
	Operation  model.Operation  `json:"operation"`
	Payload    json.RawMessage  `json:"payload"`
}

// Op names the event as "EntityType.Operation".
func (e TraceEvent) Op() string {
	return string(e.EntityType) + "." + string(e.Operation)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists flow envelopes in publication order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEnvelopes(step int, envs []model.Envelope) {
	for _, env := range envs {
		r.Trace = append(r.Trace, TraceEvent{
			Step:       step,
			EntityType: env.EntityType,
			Operation:  env.Operation,
			Payload:    env.Payload,
		})
	}
}
