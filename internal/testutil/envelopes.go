package testutil

import (
	"github.com/roach88/kitchensync/internal/bus"
	"github.com/roach88/kitchensync/internal/model"
)

// Drain returns every envelope queued on sub without blocking.
func Drain(sub *bus.Subscription) []model.Envelope {
	var out []model.Envelope
	for {
		env, ok := sub.TryNext()
		if !ok {
			return out
		}
		out = append(out, env)
	}
}

// Op names an envelope as "EntityType.Operation", e.g. "Order.Update".
func Op(env model.Envelope) string {
	return string(env.EntityType) + "." + string(env.Operation)
}

// Ops maps Op over envs.
func Ops(envs []model.Envelope) []string {
	out := make([]string, len(envs))
	for i, env := range envs {
		out[i] = Op(env)
	}
	return out
}
