package schema

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension. Anything that is not
// .yaml/.yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeSnapshot parses a snapshot document. Unknown fields are rejected so
// that typos in hand-written fixtures surface early.
func DecodeSnapshot(data []byte, format Format) (*Snapshot, error) {
	var snap Snapshot
	if err := Decode(data, format, &snap, "snapshot"); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Decode strictly parses a JSON or YAML document into v. what names the
// document in error messages.
func Decode(data []byte, format Format, v any, what string) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return NewErrorf(ErrCodeDecode, "decode yaml %s: %s", what, err.Error()).WithCause(err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return NewErrorf(ErrCodeDecode, "decode json %s: %s", what, err.Error()).WithCause(err)
		}
	}
	return nil
}

// EncodeSnapshot serializes a snapshot. JSON output is indented.
func EncodeSnapshot(snap *Snapshot, format Format) ([]byte, error) {
	if snap == nil {
		return nil, NewError(ErrCodeValidation, "snapshot is nil")
	}
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, NewErrorf(ErrCodeDecode, "encode yaml snapshot: %s", err.Error()).WithCause(err)
		}
		if err := enc.Close(); err != nil {
			return nil, NewErrorf(ErrCodeDecode, "encode yaml snapshot: %s", err.Error()).WithCause(err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, NewErrorf(ErrCodeDecode, "encode json snapshot: %s", err.Error()).WithCause(err)
		}
		return data, nil
	}
}
