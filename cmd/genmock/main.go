// Command genmock reads a city CSV and generates CWA forecast payload fixtures
// in every key spelling the normalizer accepts, plus the expected normalized
// document. It runs the actual domain package so the expected output matches
// real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/cities.csv \
//	  -out-dir data/mock
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/file"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

const fixtureSourceURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore/F-D0047-089?Authorization=REDACTED&format=JSON"

// generatedAt is the fixed clock used for the expected document timestamp.
var generatedAt = time.Date(2024, time.July, 1, 6, 0, 0, 0, time.UTC)

// cityRow is one CSV row; an empty cell omits that element from the payload.
type cityRow struct {
	name   string
	values map[string]string // element code -> datum
}

// variant describes one key spelling of the payload.
type variant struct {
	name         string
	locations    string
	location     string
	locationName string
	element      string
	elementName  string
	time         string
	wrapDatum    func(code, v string) (string, any)
}

// upperDatumKeys mirrors the descriptive datum keys the v2 API uses.
var upperDatumKeys = map[string]string{
	"Wx":   "Weather",
	"PoP":  "ProbabilityOfPrecipitation",
	"MinT": "MinTemperature",
	"MaxT": "MaxTemperature",
}

var variants = []variant{
	{
		name: "upper", locations: "Locations", location: "Location", locationName: "LocationName",
		element: "WeatherElement", elementName: "ElementName", time: "Time",
		wrapDatum: func(code, v string) (string, any) {
			return "ElementValue", []any{map[string]any{upperDatumKeys[code]: v}}
		},
	},
	{
		name: "lower", locations: "locations", location: "location", locationName: "locationName",
		element: "weatherElement", elementName: "elementName", time: "time",
		wrapDatum: func(_, v string) (string, any) {
			return "elementValue", []any{map[string]any{"value": v}}
		},
	},
	{
		name: "parameter", locations: "locations", location: "location", locationName: "locationName",
		element: "weatherElement", elementName: "elementName", time: "time",
		wrapDatum: func(_, v string) (string, any) {
			return "parameter", map[string]any{"parameterName": v}
		},
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV of cities: city,Wx,PoP,MinT,MaxT")
	outDir := flag.String("out-dir", "", "directory for generated fixtures")
	dataset := flag.String("dataset", "F-D0047-089", "dataset id used in fixture file names")
	flag.Parse()

	if *csvPath == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out-dir")
	}

	rows, codes, err := readCities(*csvPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *csvPath, err)
	}
	log.Printf("cities: %d, elements: %s", len(rows), strings.Join(codes, ","))

	for _, v := range variants {
		payload := buildPayload(v, rows, codes)
		path := filepath.Join(*outDir, fmt.Sprintf("%s_%s.json", *dataset, v.name))
		if err := writeJSON(path, payload); err != nil {
			return fmt.Errorf("writing %s fixture: %w", v.name, err)
		}
		log.Printf("wrote %s fixture: %s", v.name, path)
	}

	// Set a fixed clock for a reproducible timestamp.
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	res, err := domain.Normalize(buildPayload(variants[0], rows, codes), domain.CodeElements, nil)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	expectedPath := filepath.Join(*outDir, "forecast_expected.json")
	if err := writeJSON(expectedPath, domain.NewForecastOutput(res, fixtureSourceURL)); err != nil {
		return fmt.Errorf("writing expected document: %w", err)
	}
	log.Printf("wrote expected document: %s", expectedPath)

	printStats(res)
	return nil
}

func readCities(path string) ([]cityRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	codes := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		codes = append(codes, strings.TrimSpace(h))
	}

	out := make([]cityRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(header) {
			continue
		}
		c := cityRow{name: strings.TrimSpace(row[0]), values: map[string]string{}}
		for i, code := range codes {
			if v := strings.TrimSpace(row[i+1]); v != "" {
				c.values[code] = v
			}
		}
		out = append(out, c)
	}
	return out, codes, nil
}

func buildPayload(v variant, rows []cityRow, codes []string) domain.RawPayload {
	cities := make([]any, 0, len(rows))
	for _, row := range rows {
		elements := make([]any, 0, len(codes))
		for _, code := range codes {
			datum, ok := row.values[code]
			if !ok {
				continue
			}
			key, wrapped := v.wrapDatum(code, datum)
			elements = append(elements, map[string]any{
				v.elementName: code,
				v.time:        []any{map[string]any{key: wrapped}},
			})
		}
		cities = append(cities, map[string]any{
			v.locationName: row.name,
			v.element:      elements,
		})
	}

	return domain.RawPayload{
		"success": "true",
		"records": map[string]any{
			v.locations: []any{map[string]any{v.location: cities}},
		},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := domain.MarshalDocument(v)
	if err != nil {
		return err
	}
	return file.WriteAtomic(path, data)
}

func printStats(res domain.Result) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Cities written: %d\n", len(res.Cities))
	fmt.Printf("Cities skipped: %d\n", len(res.Warnings))
	for _, w := range res.Warnings {
		fmt.Printf("  %s\n", w)
	}

	absent := map[string]int{}
	for _, rec := range res.Cities {
		if !rec.RainPct.IsPresent() {
			absent["rain_pct"]++
		}
		if !rec.MinTemp.IsPresent() {
			absent["min_temp"]++
		}
		if !rec.MaxTemp.IsPresent() {
			absent["max_temp"]++
		}
	}
	fmt.Printf("Absent values: rain_pct=%d, min_temp=%d, max_temp=%d\n",
		absent["rain_pct"], absent["min_temp"], absent["max_temp"])
}
