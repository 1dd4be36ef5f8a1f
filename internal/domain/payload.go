package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RawPayload is a decoded upstream response. Objects are map[string]any,
// arrays []any and numbers json.Number.
type RawPayload map[string]any

// SourcedPayload is a fetched payload with the URL it came from. SourceURL
// never carries credentials.
type SourcedPayload struct {
	Raw       RawPayload
	SourceURL string
}

// DecodePayload decodes a JSON document into a RawPayload. The top level must
// be an object. Value objects under an element-value key decode as Object so
// their first key can be read back.
func DecodePayload(data []byte) (RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, false)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode payload: expected object, got %s", kindOf(v))
	}
	return RawPayload(m), nil
}

// Object is a JSON object that keeps its key order.
type Object struct {
	Keys   []string
	Fields map[string]any
}

// MarshalJSON writes the fields in key order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.Fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeValue reads one JSON value. Objects become map[string]any unless
// ordered is set, in which case they become Object.
func decodeValue(dec *json.Decoder, ordered bool) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := Object{Fields: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			v, err := decodeValue(dec, isValueKey(key))
			if err != nil {
				return nil, err
			}
			if _, dup := obj.Fields[key]; !dup {
				obj.Keys = append(obj.Keys, key)
			}
			obj.Fields[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		if ordered {
			return obj, nil
		}
		return obj.Fields, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec, ordered)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

func isValueKey(key string) bool {
	for _, k := range Aliases[FieldElementValue] {
		if k == key {
			return true
		}
	}
	return false
}

// Field names one logical position in the payload whose key spelling varies
// between schema revisions.
type Field string

const (
	FieldLocations      Field = "locations"
	FieldLocation       Field = "location"
	FieldLocationName   Field = "locationName"
	FieldWeatherElement Field = "weatherElement"
	FieldElementName    Field = "elementName"
	FieldTime           Field = "time"
	FieldElementValue   Field = "elementValue"
)

// Aliases lists, per logical field, the key spellings tried in priority order.
// A key holding an empty value (null, "", [] or {}) does not match.
var Aliases = map[Field][]string{
	FieldLocations:      {"Locations", "locations"},
	FieldLocation:       {"Location", "location"},
	FieldLocationName:   {"LocationName", "locationName"},
	FieldWeatherElement: {"WeatherElement", "weatherElement"},
	FieldElementName:    {"ElementName", "elementName"},
	FieldTime:           {"Time", "time"},
	FieldElementValue:   {"ElementValue", "elementValue", "parameter"},
}

// datumKeys are preferred inside an unordered value object before falling back
// to the alphabetically first key holding a scalar. Decoded value objects are
// Objects and use their first scalar in document order instead.
var datumKeys = []string{"value", "Value", "parameterName", "ParameterName"}

// resolver walks the alias table for one payload and remembers which spelling
// matched each field first. Later lookups try that spelling before the table.
type resolver struct {
	matched map[Field]string
}

func newResolver() *resolver {
	return &resolver{matched: make(map[Field]string)}
}

// lookup returns the value and key of the alias of f present in m with a
// non-empty value: the cached spelling if it matches, else the first in
// priority order.
func (r *resolver) lookup(m map[string]any, f Field) (any, string, bool) {
	if key, ok := r.matched[f]; ok {
		if v, ok := m[key]; ok && !isEmpty(v) {
			return v, key, true
		}
	}
	for _, key := range Aliases[f] {
		v, ok := m[key]
		if !ok || isEmpty(v) {
			continue
		}
		if _, seen := r.matched[f]; !seen {
			r.matched[f] = key
		}
		return v, key, true
	}
	return nil, "", false
}

// variant returns a copy of the first-matched spelling per field.
func (r *resolver) variant() map[Field]string {
	out := make(map[Field]string, len(r.matched))
	for f, k := range r.matched {
		out[f] = k
	}
	return out
}

func aliasPath(f Field) string {
	return "{" + strings.Join(Aliases[f], "|") + "}"
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Object:
		return len(t.Keys) == 0
	default:
		return false
	}
}

// scalar renders a JSON scalar as its raw string form.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// datum extracts the value carried by an ElementValue-like node: a list whose
// first entry is an object or scalar, an object, or a bare scalar.
func datum(v any) Value {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return Value{}
		}
		return datum(t[0])
	case Object:
		for _, k := range t.Keys {
			if s, ok := scalar(t.Fields[k]); ok {
				return Present(s)
			}
		}
		return Value{}
	case map[string]any:
		return firstValue(t)
	default:
		if s, ok := scalar(t); ok {
			return Present(s)
		}
		return Value{}
	}
}

func firstValue(m map[string]any) Value {
	for _, k := range datumKeys {
		if s, ok := scalar(m[k]); ok {
			return Present(s)
		}
	}
	for _, k := range sortedKeys(m) {
		if s, ok := scalar(m[k]); ok {
			return Present(s)
		}
	}
	return Value{}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any, Object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
