// Package model defines the entities, change envelopes, and error types
// shared by every kitchensync package.
//
// This package contains types and small pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - prices are int64 minor units (cents)
//   - Entity ids are opaque strings, unique per entity type
//   - All JSON tags use snake_case
//   - Envelopes carry no sequence number or timestamp; ordering is the
//     delivery order of the bus
package model
