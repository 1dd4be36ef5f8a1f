package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ErrEmptyCityName is recorded for a city entry whose name is missing or
// blank after trimming.
var ErrEmptyCityName = errors.New("city name is empty")

// ElementSet maps the four record fields to upstream element names. Weather is
// the reference element: a city without it is skipped.
type ElementSet struct {
	Name    string
	Weather string
	RainPct string
	MinTemp string
	MaxTemp string
}

var (
	// CodeElements is the short-code naming used by F-D0047-089.
	CodeElements = ElementSet{Name: "codes", Weather: "Wx", RainPct: "PoP", MinTemp: "MinT", MaxTemp: "MaxT"}

	// LabelElements is the Chinese-label naming. The dataset only publishes a
	// point temperature, so it fills both min and max.
	LabelElements = ElementSet{Name: "labels", Weather: "天氣現象", RainPct: "3小時降雨機率", MinTemp: "溫度", MaxTemp: "溫度"}
)

// ElementSetByName returns the named element set.
func ElementSetByName(name string) (ElementSet, bool) {
	switch name {
	case CodeElements.Name:
		return CodeElements, true
	case LabelElements.Name:
		return LabelElements, true
	default:
		return ElementSet{}, false
	}
}

// Reference returns the element whose absence skips a city.
func (s ElementSet) Reference() string {
	return s.Weather
}

// Record is the normalized forecast for one city.
type Record struct {
	Weather Value `json:"weather"`
	RainPct Value `json:"rain_pct"`
	MinTemp Value `json:"min_temp"`
	MaxTemp Value `json:"max_temp"`
}

// CityEntry is one location's bundle of weather elements, with the key path it
// was found at.
type CityEntry struct {
	Fields map[string]any
	Path   []string
}

// Warning describes a city left out of the output.
type Warning struct {
	City string
	Path []string
	Err  error
}

func (w Warning) String() string {
	name := w.City
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("%s skipped at %s: %v", name, strings.Join(w.Path, "."), w.Err)
}

// Result is the outcome of Normalize.
type Result struct {
	Cities   map[string]Record
	Warnings []Warning

	// Variant records the key spelling that matched first for each field,
	// useful to tell which schema revision the payload used.
	Variant map[Field]string
}

// ExtractCityList locates the city list inside a payload.
func ExtractCityList(raw RawPayload) ([]CityEntry, error) {
	return newResolver().cityList(raw)
}

// ExtractValue finds the element named code among one city's weather elements
// and returns the datum of its first time entry.
func ExtractValue(elements []any, code string) (Value, error) {
	return newResolver().value(elements, code, "", []string{string(FieldWeatherElement)})
}

// Normalize flattens a payload into city → Record using the given element set.
// It fails only when the payload is structurally unusable (*SchemaError).
// Cities that cannot be normalized are skipped and reported in
// Result.Warnings.
func Normalize(raw RawPayload, set ElementSet, logger *slog.Logger) (Result, error) {
	r := newResolver()

	cities, err := r.cityList(raw)
	if err != nil {
		return Result{}, err
	}

	res := Result{Cities: make(map[string]Record, len(cities))}
	for _, city := range cities {
		name := r.cityName(city)
		if name == "" {
			res.warn(logger, Warning{Path: city.Path, Err: ErrEmptyCityName})
			continue
		}

		rec, err := r.record(city, name, set, logger)
		if err != nil {
			res.warn(logger, Warning{City: name, Path: city.Path, Err: err})
			continue
		}
		res.Cities[name] = rec
	}

	res.Variant = r.variant()
	return res, nil
}

func (res *Result) warn(logger *slog.Logger, w Warning) {
	res.Warnings = append(res.Warnings, w)
	if logger != nil {
		logger.Warn("city skipped",
			"city", w.City,
			"path", strings.Join(w.Path, "."),
			"error", w.Err,
		)
	}
}

func (r *resolver) cityList(raw RawPayload) ([]CityEntry, error) {
	path := []string{"records"}

	recAny, ok := raw["records"]
	if !ok || isEmpty(recAny) {
		return nil, schemaError(path, "missing")
	}
	records, ok := recAny.(map[string]any)
	if !ok {
		return nil, schemaError(path, "expected object, got %s", kindOf(recAny))
	}

	containerAny, key, ok := r.lookup(records, FieldLocations)
	if !ok {
		return nil, schemaError(append(path, aliasPath(FieldLocations)),
			"no alias resolved (keys: %s)", strings.Join(sortedKeys(records), ","))
	}
	path = append(path, key)

	containers, err := unwrapContainers(containerAny, path)
	if err != nil {
		return nil, err
	}

	var cities []CityEntry
	for _, c := range containers {
		listAny, key, ok := r.lookup(c.Fields, FieldLocation)
		if !ok {
			return nil, schemaError(append(c.Path, aliasPath(FieldLocation)), "no alias resolved")
		}
		listPath := append(clonePath(c.Path), key)

		list, ok := listAny.([]any)
		if !ok {
			return nil, schemaError(listPath, "expected array, got %s", kindOf(listAny))
		}
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			cities = append(cities, CityEntry{Fields: m, Path: append(clonePath(listPath), strconv.Itoa(i))})
		}
	}

	if len(cities) == 0 {
		return nil, schemaError(path, "city list is empty")
	}
	return cities, nil
}

// unwrapContainers accepts either the container object itself or a list of
// container objects (normally a single-element list).
func unwrapContainers(v any, path []string) ([]CityEntry, error) {
	switch t := v.(type) {
	case map[string]any:
		return []CityEntry{{Fields: t, Path: clonePath(path)}}, nil
	case []any:
		out := make([]CityEntry, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, schemaError(append(clonePath(path), strconv.Itoa(i)), "expected object, got %s", kindOf(item))
			}
			out = append(out, CityEntry{Fields: m, Path: append(clonePath(path), strconv.Itoa(i))})
		}
		return out, nil
	default:
		return nil, schemaError(path, "expected object or array, got %s", kindOf(v))
	}
}

func (r *resolver) cityName(city CityEntry) string {
	v, _, ok := r.lookup(city.Fields, FieldLocationName)
	if !ok {
		return ""
	}
	s, _ := scalar(v)
	return strings.TrimSpace(s)
}

func (r *resolver) record(city CityEntry, name string, set ElementSet, logger *slog.Logger) (Record, error) {
	elemPath := append(clonePath(city.Path), string(FieldWeatherElement))

	var elements []any
	if v, key, ok := r.lookup(city.Fields, FieldWeatherElement); ok {
		elemPath[len(elemPath)-1] = key
		list, ok := v.([]any)
		if !ok {
			return Record{}, &ShapeError{Path: clonePath(elemPath), Want: "array", Got: kindOf(v)}
		}
		elements = list
	}

	weather, err := r.value(elements, set.Reference(), name, elemPath)
	if err != nil {
		return Record{}, err
	}

	optional := func(code string) Value {
		v, err := r.value(elements, code, name, elemPath)
		if err != nil && logger != nil {
			logger.Debug("element missing", "city", name, "element", code)
		}
		return v
	}

	return Record{
		Weather: weather,
		RainPct: optional(set.RainPct),
		MinTemp: optional(set.MinTemp),
		MaxTemp: optional(set.MaxTemp),
	}, nil
}

func (r *resolver) value(elements []any, code, city string, path []string) (Value, error) {
	elem, ok := r.findElement(elements, code)
	if !ok {
		return Value{}, &ElementNotFoundError{City: city, Element: code, Path: clonePath(path)}
	}

	seriesAny, _, ok := r.lookup(elem, FieldTime)
	if !ok {
		return Value{}, nil
	}
	series, ok := seriesAny.([]any)
	if !ok || len(series) == 0 {
		return Value{}, nil
	}
	first, ok := series[0].(map[string]any)
	if !ok {
		return Value{}, nil
	}

	raw, _, ok := r.lookup(first, FieldElementValue)
	if !ok {
		return Value{}, nil
	}
	return datum(raw), nil
}

func (r *resolver) findElement(elements []any, code string) (map[string]any, bool) {
	for _, e := range elements {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		v, _, ok := r.lookup(m, FieldElementName)
		if !ok {
			continue
		}
		if s, _ := scalar(v); s == code {
			return m, true
		}
	}
	return nil, false
}
