// Package cache holds client-side mirrors of server collections.
//
// A Cache is filled once by Bootstrap and then kept current by applying
// change envelopes in bus delivery order. Consumers read through a View,
// which has no write methods.
//
// Bootstrap may overlap with live envelopes. While a bootstrap is in
// flight, envelopes are decoded and buffered, then replayed on top of the
// snapshot. Apply semantics make the replay safe when the snapshot already
// reflects a buffered change:
//
//	Add    appends when the id is absent; a duplicate Add is a no-op
//	Update replaces the entry; an unknown id is logged and ignored
//	Delete removes the entry; an unknown id is a silent no-op
package cache
