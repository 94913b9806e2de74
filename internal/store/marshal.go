package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/ir"
)

// marshalText encodes v as compact JSON TEXT for storage.
// HTML escaping is disabled so formula text like "=A1<B1" is stored as
// written.
func marshalText(what string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	// Encoder adds a trailing newline.
	return strings.TrimSpace(buf.String()), nil
}

func marshalSnapshot(s *engine.Snapshot) (string, error) { return marshalText("snapshot", s) }
func marshalOps(ops []harness.Op) (string, error)         { return marshalText("ops", ops) }
func marshalEvent(ev harness.Event) (string, error)       { return marshalText("event", ev) }

// marshalChanged stores cells in their Sheet{id}!A1 form.
func marshalChanged(cells []ir.CellID) (string, error) {
	if cells == nil {
		cells = []ir.CellID{}
	}
	return marshalText("changed", cells)
}

func unmarshalSnapshot(data string) (*engine.Snapshot, error) {
	var s engine.Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}

func unmarshalOps(data string) ([]harness.Op, error) {
	if data == "" || data == "null" {
		return []harness.Op{}, nil
	}
	var ops []harness.Op
	if err := json.Unmarshal([]byte(data), &ops); err != nil {
		return nil, fmt.Errorf("unmarshal ops: %w", err)
	}
	return ops, nil
}

func unmarshalChanged(data string) ([]ir.CellID, error) {
	if data == "" || data == "[]" {
		return []ir.CellID{}, nil
	}
	var cells []ir.CellID
	if err := json.Unmarshal([]byte(data), &cells); err != nil {
		return nil, fmt.Errorf("unmarshal changed: %w", err)
	}
	return cells, nil
}

func unmarshalEvent(data string) (harness.Event, error) {
	var ev harness.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return ev, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}
