// Command validate performs integrity checks on a written forecast document:
// document shape, API key redaction, and, when the raw payloads are given,
// parity between the raw payloads and the normalized cities. It verifies every
// key spelling variant normalizes to the same cities.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -forecast quiz/forecast_weather.json \
//	  -raw data/mock/F-D0047-089_upper.json,data/mock/F-D0047-089_lower.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
)

// recordKeys are the keys every city entry must carry, and nothing else.
var recordKeys = []string{"max_temp", "min_temp", "rain_pct", "weather"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	forecastPath := flag.String("forecast", "", "path to the written forecast document")
	rawPaths := flag.String("raw", "", "comma-separated raw CWA payloads the document was built from")
	setName := flag.String("element-set", "codes", "element set used to normalize: codes or labels")
	flag.Parse()

	if *forecastPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	set, ok := domain.ElementSetByName(*setName)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: unknown element set %q\n", *setName)
		os.Exit(1)
	}

	var raws []string
	for _, p := range strings.Split(*rawPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			raws = append(raws, p)
		}
	}

	if code := run(*forecastPath, raws, set); code != 0 {
		os.Exit(code)
	}
}

func run(forecastPath string, rawPaths []string, set domain.ElementSet) int {
	fmt.Println("=== Forecast Document Validation ===")
	fmt.Println()

	docBytes, err := os.ReadFile(forecastPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read forecast: %v\n", err)
		return 1
	}

	var generic map[string]any
	if err := json.Unmarshal(docBytes, &generic); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: forecast is not a JSON object: %v\n", err)
		return 1
	}
	var doc domain.ForecastOutput
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode forecast: %v\n", err)
		return 1
	}

	payloads := make(map[string]domain.RawPayload, len(rawPaths))
	for _, p := range rawPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read raw payload: %v\n", err)
			return 1
		}
		raw, err := domain.DecodePayload(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: decode %s: %v\n", p, err)
			return 1
		}
		payloads[p] = raw
	}

	phases := []*phase{
		validateShape(generic),
		validateRedaction(doc),
		validateRawParity(doc, payloads, set),
		validateVariantParity(payloads, set),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Cities: %d in document, %d raw payloads checked\n", len(doc.Cities), len(payloads))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateShape(doc map[string]any) *phase {
	p := &phase{name: "Document shape"}

	for _, key := range []string{"timestamp", "source_url", "cities"} {
		if _, ok := doc[key]; !ok {
			p.errorf("missing top-level key %q", key)
		}
	}
	if len(doc) != 3 {
		p.errorf("expected 3 top-level keys, got %d (%s)", len(doc), strings.Join(keys(doc), ","))
	}

	if ts, ok := doc["timestamp"].(float64); !ok || ts <= 0 || ts != float64(int64(ts)) {
		p.errorf("timestamp must be a positive integer, got %v", doc["timestamp"])
	}

	cities, ok := doc["cities"].(map[string]any)
	if !ok {
		p.errorf("cities must be an object, got %T", doc["cities"])
		return p
	}
	for name, v := range cities {
		if name == "" {
			p.errorf("empty city name")
		}
		rec, ok := v.(map[string]any)
		if !ok {
			p.errorf("%s: entry must be an object, got %T", name, v)
			continue
		}
		if got := keys(rec); strings.Join(got, ",") != strings.Join(recordKeys, ",") {
			p.errorf("%s: keys %v, want %v", name, got, recordKeys)
		}
		for k, field := range rec {
			if _, ok := field.(string); !ok {
				p.errorf("%s.%s: value must be a string, got %T", name, k, field)
			}
		}
	}
	return p
}

func validateRedaction(doc domain.ForecastOutput) *phase {
	p := &phase{name: "API key redaction"}
	if doc.SourceURL == "" {
		return p
	}
	u, err := url.Parse(doc.SourceURL)
	if err != nil {
		p.errorf("source_url does not parse: %v", err)
		return p
	}
	if key := u.Query().Get("Authorization"); key != "" && key != "REDACTED" {
		p.errorf("source_url carries an unredacted Authorization value")
	}
	return p
}

func validateRawParity(doc domain.ForecastOutput, payloads map[string]domain.RawPayload, set domain.ElementSet) *phase {
	p := &phase{name: "Raw payload → document parity"}

	for path, raw := range payloads {
		res, err := domain.Normalize(raw, set, nil)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		for name, want := range res.Cities {
			got, ok := doc.Cities[name]
			if !ok {
				p.errorf("%s: city %s missing from document", path, name)
				continue
			}
			compareRecord(p, path+": "+name, want, got)
		}
		for name := range doc.Cities {
			if _, ok := res.Cities[name]; !ok {
				p.errorf("%s: document has city %s not produced by the payload", path, name)
			}
		}
	}
	return p
}

func validateVariantParity(payloads map[string]domain.RawPayload, set domain.ElementSet) *phase {
	p := &phase{name: "Key spelling variant parity"}
	if len(payloads) < 2 {
		return p
	}

	paths := make([]string, 0, len(payloads))
	for path := range payloads {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	base, err := domain.Normalize(payloads[paths[0]], set, nil)
	if err != nil {
		p.errorf("%s: %v", paths[0], err)
		return p
	}
	for _, path := range paths[1:] {
		res, err := domain.Normalize(payloads[path], set, nil)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if len(res.Cities) != len(base.Cities) {
			p.errorf("%s: %d cities, %s has %d", path, len(res.Cities), paths[0], len(base.Cities))
		}
		for name, want := range base.Cities {
			got, ok := res.Cities[name]
			if !ok {
				p.errorf("%s: city %s missing", path, name)
				continue
			}
			compareRecord(p, path+": "+name, want, got)
		}
	}
	return p
}

// ── Helpers ──

func compareRecord(p *phase, label string, want, got domain.Record) {
	pairs := []struct {
		field     string
		want, got domain.Value
	}{
		{"weather", want.Weather, got.Weather},
		{"rain_pct", want.RainPct, got.RainPct},
		{"min_temp", want.MinTemp, got.MinTemp},
		{"max_temp", want.MaxTemp, got.MaxTemp},
	}
	for _, f := range pairs {
		if f.want.String() != f.got.String() {
			p.errorf("%s.%s: got %q, want %q", label, f.field, f.got, f.want)
		}
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
