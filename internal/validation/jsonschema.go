package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/wfgraph/pkg/schema"
)

const snapshotSchemaURL = "https://wfgraph.dev/schemas/snapshot.json"

// snapshotSchemaJSON describes a serialized graph snapshot.
const snapshotSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://wfgraph.dev/schemas/snapshot.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "id": { "type": "string" },
    "name": { "type": "string" },
    "orientation": { "type": "string", "enum": ["", "horizontal", "vertical"] },
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "connections": {
      "type": "array",
      "items": { "$ref": "#/$defs/connection" }
    },
    "metadata": { "type": "object" }
  },
  "additionalProperties": false,
  "$defs": {
    "point": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": { "type": "number" },
        "y": { "type": "number" }
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "required": ["id", "kind"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "kind": { "type": "string", "enum": ["start", "task", "gateway", "end"] },
        "name": { "type": "string" },
        "position": { "$ref": "#/$defs/point" },
        "outgoing": { "type": "array", "items": { "type": "string", "minLength": 1 } },
        "assignee": { "type": "string" },
        "sla_days": { "type": "integer", "minimum": 0 },
        "condition": { "type": "string" },
        "task_type": { "type": "string" },
        "status": {
          "type": "string",
          "enum": ["", "pending", "in_progress", "completed", "rejected"]
        },
        "metadata": { "type": "object" }
      },
      "additionalProperties": false
    },
    "connection": {
      "type": "object",
      "required": ["from", "to"],
      "properties": {
        "id": { "type": "string" },
        "from": { "type": "string", "minLength": 1 },
        "to": { "type": "string", "minLength": 1 },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// SnapshotValidator checks snapshot documents against the snapshot JSON
// Schema (Draft 2020-12) before they are decoded into a graph. It is safe for
// concurrent use.
type SnapshotValidator struct {
	schema *jsonschema.Schema
}

// NewSnapshotValidator compiles the snapshot schema.
func NewSnapshotValidator() (*SnapshotValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(snapshotSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot schema: %w", err)
	}
	if err := c.AddResource(snapshotSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add snapshot schema resource: %w", err)
	}
	compiled, err := c.Compile(snapshotSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	return &SnapshotValidator{schema: compiled}, nil
}

// ValidateJSON validates a raw JSON snapshot document.
func (v *SnapshotValidator) ValidateJSON(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeDecode, "snapshot is not valid JSON").WithCause(err)
	}
	return v.validate(doc)
}

// ValidateSnapshot validates an already decoded snapshot, for example one
// read from YAML.
func (v *SnapshotValidator) ValidateSnapshot(snap *schema.Snapshot) error {
	if snap == nil {
		return schema.NewError(schema.ErrCodeValidation, "snapshot is nil")
	}
	doc, err := toJSONValue(snap)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize snapshot").WithCause(err)
	}
	return v.validate(doc)
}

func (v *SnapshotValidator) validate(doc any) error {
	if err := v.schema.Validate(doc); err != nil {
		return toGraphError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number, which the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toGraphError flattens a jsonschema.ValidationError into a GraphError whose
// details list every leaf violation with its instance location.
func toGraphError(err error) *schema.GraphError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	case 1:
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "snapshot has %d schema violations", len(violations)).
			WithDetails(map[string]any{"violations": violations})
	}
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
