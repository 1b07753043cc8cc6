// Package harness runs scenario tests against the mutation engine.
//
// A scenario drives a fresh engine through a list of mutations and checks
// the change envelopes it published and the state it left behind.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: catalog.yaml          # optional seed file, relative to the scenario
//	setup:
//	  - action: create_category
//	    args: { id: grill, name: Grill }
//	flow:
//	  - action: create_order
//	    args: { items: [{ item_id: burger, quantity: 2 }] }
//	    expect:
//	      result: { order: { status: Draft, total_price: 1700 } }
//	  - action: create_product
//	    args: { name: Soup, category_id: nowhere, price: 100 }
//	    expect:
//	      error: validation
//	assertions:
//	  - type: envelope_order
//	    sequence: [Order.Add, OrderItem.Add, Order.Update]
//	  - type: final_state
//	    entity_type: Order
//	    id: id-1
//	    expect: { status: Draft }
//
// # Assertion Types
//
//   - envelope_contains: an envelope with the entity type, operation and
//     payload subset was published
//   - envelope_order: the named envelopes appear in this relative order
//   - envelope_count: exactly count envelopes match the type and operation
//   - final_state: the stored entity matches the expected fields
//
// # Deterministic Runs
//
// Every run uses a fresh in-memory SQLite database and sequential ids
// ("id-1", "id-2", ...), so the envelope trace of a scenario is identical
// across runs and can be compared against a golden file.
//
// Only flow steps are traced. Catalog and setup envelopes are discarded.
package harness
