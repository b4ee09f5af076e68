// Package event defines the public domain-event vocabulary for a workflow
// run: zero or more progress events followed by exactly one terminal event
// (complete or error). Each event serializes to a single JSON object whose
// "event" field is the discriminant.
package event

import (
	"encoding/json"
	"fmt"
)

// Type identifies the kind of event.
type Type string

const (
	// Progress fires once per completed surfaced step.
	Progress Type = "progress"

	// Complete fires exactly once when the run finishes successfully.
	Complete Type = "complete"

	// Error fires at most once when the run fails. Mutually exclusive
	// with Complete.
	Error Type = "error"
)

// Event is one domain event. Which fields are meaningful depends on Type:
//
//	Progress: Node, Label
//	Complete: Status plus Fields, flattened into the JSON object
//	Error:    Message, Detail
type Event struct {
	Type    Type
	Node    string
	Label   string
	Status  string
	Message string
	Detail  string

	// Fields carries the caller-relevant subset of final workflow state
	// on Complete events. Serialized as additional top-level keys.
	Fields map[string]any
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	return e.Type == Complete || e.Type == Error
}

// reserved keys that Fields entries may not shadow.
var reserved = map[string]bool{
	"event":   true,
	"node":    true,
	"label":   true,
	"status":  true,
	"message": true,
	"detail":  true,
}

// MarshalJSON renders the wire schema:
//
//	{"event":"progress","node":"...","label":"..."}
//	{"event":"complete","status":"...", ...fields}
//	{"event":"error","message":"...","detail":"..."}
func (e Event) MarshalJSON() ([]byte, error) {
	obj := map[string]any{"event": string(e.Type)}

	switch e.Type {
	case Progress:
		obj["node"] = e.Node
		obj["label"] = e.Label
	case Complete:
		obj["status"] = e.Status
		for k, v := range e.Fields {
			if reserved[k] {
				continue
			}
			obj[k] = v
		}
	case Error:
		obj["message"] = e.Message
		if e.Detail != "" {
			obj["detail"] = e.Detail
		}
	default:
		return nil, fmt.Errorf("event: cannot marshal unknown type %q", e.Type)
	}

	return json.Marshal(obj)
}

// UnmarshalJSON parses the wire schema, validating the discriminant.
func (e *Event) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	tag, ok := obj["event"].(string)
	if !ok {
		return fmt.Errorf("event: missing discriminant")
	}

	*e = Event{Type: Type(tag)}
	switch e.Type {
	case Progress:
		e.Node, _ = obj["node"].(string)
		e.Label, _ = obj["label"].(string)
	case Complete:
		e.Status, _ = obj["status"].(string)
		for k, v := range obj {
			if reserved[k] {
				continue
			}
			if e.Fields == nil {
				e.Fields = make(map[string]any)
			}
			e.Fields[k] = v
		}
	case Error:
		e.Message, _ = obj["message"].(string)
		e.Detail, _ = obj["detail"].(string)
	default:
		return fmt.Errorf("event: unknown discriminant %q", tag)
	}
	return nil
}
