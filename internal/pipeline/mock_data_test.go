package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockSourceURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore/F-D0047-089?Authorization=REDACTED&format=JSON"

func TestForecastJob_WithMockFixtures(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.July, 1, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	expected := readMockJSON(t, "forecast_expected.json")

	for _, variant := range []string{"upper", "lower", "parameter"} {
		t.Run(variant, func(t *testing.T) {
			raw := readMockPayload(t, "F-D0047-089_"+variant+".json")
			src := &mockForecastSource{payload: domain.SourcedPayload{Raw: raw, SourceURL: mockSourceURL}}
			sink := &mockSink{name: "file"}

			job := pipeline.NewForecastJob(src, domain.CodeElements, []pipeline.Sink{sink}, discardLogger(), newTestMetrics())
			require.NoError(t, job.Run(context.Background()))
			require.Len(t, sink.saved, 1)

			var got map[string]any
			require.NoError(t, json.Unmarshal(sink.saved[0].Value, &got))
			if diff := cmp.Diff(expected, got); diff != "" {
				t.Errorf("forecast document mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_MockFixturesSkipCityWithoutWeather(t *testing.T) {
	raw := readMockPayload(t, "F-D0047-089_lower.json")

	res, err := domain.Normalize(raw, domain.CodeElements, nil)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "澎湖縣", res.Warnings[0].City)
	var notFound *domain.ElementNotFoundError
	assert.ErrorAs(t, res.Warnings[0].Err, &notFound)

	hualien := res.Cities["花蓮縣"]
	assert.False(t, hualien.MinTemp.IsPresent())
	assert.Equal(t, "29", hualien.MaxTemp.String())
}

func readMockPayload(t *testing.T, name string) domain.RawPayload {
	t.Helper()
	data, err := os.ReadFile(mockPath(name))
	require.NoError(t, err)
	raw, err := domain.DecodePayload(data)
	require.NoError(t, err)
	return raw
}

func readMockJSON(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(mockPath(name))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func mockPath(name string) string {
	return filepath.Join("..", "..", "data", "mock", name)
}
