package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NewForecastOutput stamps a normalized result with the current clock time and
// the (already redacted) source URL. Cities is never nil so the document
// always carries an object.
func NewForecastOutput(res Result, sourceURL string) ForecastOutput {
	cities := res.Cities
	if cities == nil {
		cities = map[string]Record{}
	}
	return ForecastOutput{
		Timestamp: clock.Now().Unix(),
		SourceURL: sourceURL,
		Cities:    cities,
	}
}

// StampMarine sets the snapshot timestamp from the clock.
func StampMarine(s MarineSnapshot) MarineSnapshot {
	s.Timestamp = clock.Now().Unix()
	return s
}

// MarshalDocument renders v as two-space indented JSON without HTML escaping,
// so CJK text and '&' in URLs stay readable. Map keys are sorted by
// encoding/json, which makes the output byte-stable for equal input.
func MarshalDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewOutputEvent serializes a document of the given kind for the sinks.
func NewOutputEvent(kind string, v any) (OutputEvent, error) {
	data, err := MarshalDocument(v)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize %s document: %w", kind, err)
	}
	now := clock.Now().UTC()
	return OutputEvent{
		Kind:  kind,
		Key:   []byte(kind),
		Value: data,
		Headers: map[string]string{
			"kind":         kind,
			"generated_at": now.Format(time.RFC3339),
		},
		GeneratedAt: now,
	}, nil
}
