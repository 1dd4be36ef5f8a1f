package file

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSink(dir string) *Sink {
	return NewSink(dir, map[string]string{
		domain.KindForecast: "forecast_weather.json",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSink_Save_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "quiz")
	s := testSink(dir)

	err := s.Save(context.Background(), domain.OutputEvent{Kind: domain.KindForecast, Value: []byte(`{"cities":{}}`)})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "forecast_weather.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"cities":{}}`, string(data))
}

func TestSink_Save_Overwrites(t *testing.T) {
	dir := t.TempDir()
	s := testSink(dir)
	path := filepath.Join(dir, "forecast_weather.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"cities":{"舊":{}},"extra":"a much longer previous document"}`), 0o644))
	require.NoError(t, s.Save(context.Background(), domain.OutputEvent{Kind: domain.KindForecast, Value: []byte(`{"cities":{}}`)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"cities":{}}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSink_Save_UnknownKind(t *testing.T) {
	s := testSink(t.TempDir())

	err := s.Save(context.Background(), domain.OutputEvent{Kind: domain.KindMarine, Value: []byte(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marine")
}

func TestSink_Latest(t *testing.T) {
	dir := t.TempDir()
	s := testSink(dir)

	_, err := s.Latest(domain.KindForecast)
	require.ErrorIs(t, err, ErrNoDocument)

	_, err = s.Latest("unknown")
	require.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, s.Save(context.Background(), domain.OutputEvent{Kind: domain.KindForecast, Value: []byte(`{"cities":{}}`)}))
	data, err := s.Latest(domain.KindForecast)
	require.NoError(t, err)
	assert.Equal(t, `{"cities":{}}`, string(data))
}
