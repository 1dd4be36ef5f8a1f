package domain

import "time"

// Output kinds, used as the sink message key and file selector.
const (
	KindForecast = "forecast"
	KindMarine   = "marine"
)

// ForecastOutput is the document written for downstream consumers. It is
// created fresh for every run and replaces the previous file wholesale.
type ForecastOutput struct {
	Timestamp int64             `json:"timestamp"`
	SourceURL string            `json:"source_url"`
	Cities    map[string]Record `json:"cities"`
}

// MarineSnapshot is the latest marine conditions scraped for one sea area.
type MarineSnapshot struct {
	Timestamp  int64  `json:"timestamp"`
	Site       string `json:"site"`
	WaveHeight string `json:"wave_height"`
	WindSpeed  string `json:"wind_speed"`
	WaterTemp  string `json:"water_temp"`
	RiskLevel  string `json:"risk_level"`
	Source     string `json:"source"`
}

// OutputEvent is a serialized document ready for a sink.
type OutputEvent struct {
	Kind        string
	Key         []byte
	Value       []byte
	Headers     map[string]string
	GeneratedAt time.Time
}
