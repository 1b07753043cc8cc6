package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityType names one logical bus channel.
type EntityType string

const (
	EntityCategory  EntityType = "Category"
	EntityProduct   EntityType = "Product"
	EntityStation   EntityType = "Station"
	EntityOrder     EntityType = "Order"
	EntityOrderItem EntityType = "OrderItem"
	EntitySettings  EntityType = "Settings"
	EntityEvent     EntityType = "Event"
)

// EntityTypes lists every entity type in a stable order.
var EntityTypes = []EntityType{
	EntityCategory,
	EntityProduct,
	EntityStation,
	EntityOrder,
	EntityOrderItem,
	EntitySettings,
	EntityEvent,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if known == t {
			return true
		}
	}
	return false
}

// ParseEntityTypes parses a comma separated list such as "Order,OrderItem".
// An empty list yields every entity type.
func ParseEntityTypes(list string) ([]EntityType, error) {
	if strings.TrimSpace(list) == "" {
		out := make([]EntityType, len(EntityTypes))
		copy(out, EntityTypes)
		return out, nil
	}
	var out []EntityType
	seen := make(map[EntityType]bool)
	for _, part := range strings.Split(list, ",") {
		t := EntityType(strings.TrimSpace(part))
		if !t.Valid() {
			return nil, fmt.Errorf("unknown entity type %q", part)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// Operation is the kind of change an envelope describes.
type Operation string

const (
	OpAdd    Operation = "Add"
	OpUpdate Operation = "Update"
	OpDelete Operation = "Delete"
)

// Valid reports whether op is Add, Update or Delete.
func (op Operation) Valid() bool {
	switch op {
	case OpAdd, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Envelope is a change notification flowing from the server to clients.
//
// Payload is the full entity JSON for Add and Update, and the JSON string
// id for Delete.
type Envelope struct {
	EntityType EntityType      `json:"entity_type"`
	Operation  Operation       `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
}

// Added builds an Add envelope for the entity.
func Added(e Entity) (Envelope, error) {
	return withEntity(OpAdd, e)
}

// Updated builds an Update envelope for the entity.
func Updated(e Entity) (Envelope, error) {
	return withEntity(OpUpdate, e)
}

// Deleted builds a Delete envelope carrying only the id.
func Deleted(t EntityType, id string) (Envelope, error) {
	payload, err := json.Marshal(id)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s delete payload: %w", t, err)
	}
	return Envelope{EntityType: t, Operation: OpDelete, Payload: payload}, nil
}

func withEntity(op Operation, e Entity) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.EntityType(), err)
	}
	return Envelope{EntityType: e.EntityType(), Operation: op, Payload: payload}, nil
}

// DeleteID extracts the id from a Delete envelope.
func (e Envelope) DeleteID() (string, error) {
	if e.Operation != OpDelete {
		return "", fmt.Errorf("%s envelope has no delete id", e.Operation)
	}
	var id string
	if err := json.Unmarshal(e.Payload, &id); err != nil {
		return "", fmt.Errorf("decode %s delete id: %w", e.EntityType, err)
	}
	return id, nil
}

// DecodePayload decodes an Add or Update payload into T.
func DecodePayload[T Entity](e Envelope) (T, error) {
	var v T
	if e.Operation == OpDelete {
		return v, fmt.Errorf("delete envelope carries no %s payload", e.EntityType)
	}
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", e.EntityType, err)
	}
	return v, nil
}

// Validate checks the envelope header. The payload is checked by the
// receiving cache.
func (e Envelope) Validate() error {
	if !e.EntityType.Valid() {
		return fmt.Errorf("unknown entity type %q", e.EntityType)
	}
	if !e.Operation.Valid() {
		return fmt.Errorf("unknown operation %q", e.Operation)
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s %s envelope has empty payload", e.EntityType, e.Operation)
	}
	return nil
}
