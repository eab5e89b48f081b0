package firebase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/samirrijal/raasta/internal/core/domain"
)

func newTestServer(t *testing.T, nodes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("auth") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
			return
		}
		body, ok := nodes[r.URL.Path]
		if !ok {
			body = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStore_ListByCategory_ObjectNode(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/pothole-locations.json": `{
			"-NbB": {"latitude": 24.96, "longitude": 67.07},
			"-NaA": {"latitude": 24.95, "longitude": "67.06"}
		}`,
	})
	store := New(srv.URL, "secret", time.Second)

	pts, err := store.ListByCategory(context.Background(), domain.Pothole)
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{
		{Lat: 24.95, Lon: 67.06},
		{Lat: 24.96, Lon: 67.07},
	}, pts)
}

func TestStore_ListByCategory_ArrayNodeWithHoles(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/speedbreaker-locations.json": `[null, {"latitude": 1.5, "longitude": 2.5}, null, {"latitude": -3, "longitude": 4}]`,
	})
	store := New(srv.URL, "secret", time.Second)

	pts, err := store.ListByCategory(context.Background(), domain.Speedbreaker)
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{Lat: 1.5, Lon: 2.5}, {Lat: -3, Lon: 4}}, pts)
}

func TestStore_ListByCategory_MissingNodeIsEmpty(t *testing.T) {
	srv := newTestServer(t, nil)
	store := New(srv.URL+"/", "secret", time.Second)

	pts, err := store.ListByCategory(context.Background(), domain.Pothole)
	require.NoError(t, err)
	assert.NotNil(t, pts)
	assert.Empty(t, pts)
}

func TestStore_ListByCategory_HTTPError(t *testing.T) {
	srv := newTestServer(t, nil)
	store := New(srv.URL, "wrong", time.Second)

	_, err := store.ListByCategory(context.Background(), domain.Pothole)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestStore_ListByCategory_CancelledContext(t *testing.T) {
	srv := newTestServer(t, nil)
	store := New(srv.URL, "secret", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.ListByCategory(ctx, domain.Pothole)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ListByCategory_DecodeErrorRecordedOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := newTestServer(t, map[string]string{
		"/pothole-locations.json": `{"a": {"latitude": 91, "longitude": 1}}`,
	})
	store := New(srv.URL, "secret", time.Second)

	_, err := store.ListByCategory(context.Background(), domain.Pothole)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "exception", events[0].Name)
}

func TestStore_Ping(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/.json": `{"pothole-locations": true}`})

	assert.NoError(t, New(srv.URL, "secret", time.Second).Ping(context.Background()))
	assert.Error(t, New(srv.URL, "", time.Second).Ping(context.Background()))
}

func TestDecodeLocations_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing field": `{"a": {"latitude": 1}}`,
		"out of range":  `{"a": {"latitude": 91, "longitude": 1}}`,
		"bad string":    `{"a": {"latitude": "north", "longitude": 1}}`,
		"scalar":        `42`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeLocations([]byte(body))
			assert.Error(t, err)
		})
	}
}
