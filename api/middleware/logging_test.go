package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLoggingRecordsStatusAndRoute(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/api/v1/store/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"missing"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/store/orders/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "request.complete", lines[0]["message"])
	require.EqualValues(t, http.StatusNotFound, lines[0]["status"])
	require.EqualValues(t, len(`{"error":"missing"}`), lines[0]["bytes"])
	require.Equal(t, "/api/v1/store/orders/{orderId}", lines[0]["route"])
	require.Equal(t, "/api/v1/store/orders/abc", lines[0]["path"])
}

func TestLoggingDefaultsToOKAndWarnsOnServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	ok := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	failing := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.WriteHeader(http.StatusOK)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	require.EqualValues(t, http.StatusOK, lines[0]["status"])
	require.Equal(t, "info", lines[0]["level"])
	require.EqualValues(t, http.StatusServiceUnavailable, lines[1]["status"])
	require.Equal(t, "warn", lines[1]["level"])
	require.Equal(t, "request.failed", lines[1]["message"])
}
