package nwdb

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Outcome is the JSON rendering of any upstream call: the payload itself on
// success, {"error": "..."} on failure, or {"status": "not_modified"} for 304.
type Outcome struct {
	Data        json.RawMessage
	Err         error
	NotModified bool
}

// OutcomeOf folds a (payload, error) pair into an Outcome
func OutcomeOf(data json.RawMessage, err error) Outcome {
	switch {
	case errors.Is(err, ErrNotModified):
		return Outcome{NotModified: true}
	case err != nil:
		return Outcome{Err: err}
	default:
		return Outcome{Data: data}
	}
}

// MarshalJSON renders the outcome in its wire shape
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch {
	case o.NotModified:
		return json.Marshal(map[string]string{"status": "not_modified"})
	case o.Err != nil:
		return json.Marshal(map[string]string{"error": o.Err.Error()})
	case len(o.Data) == 0:
		return []byte("null"), nil
	default:
		return o.Data, nil
	}
}

// UnwrapData returns X for a {"data": X} envelope and raw unchanged otherwise
func UnwrapData(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return raw
	}
	data, ok := envelope["data"]
	if !ok {
		return raw
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || (data[0] != '{' && data[0] != '[') {
		return raw
	}
	return data
}
