package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

func TestRequestIDKeepsUsableCallerIDs(t *testing.T) {
	cases := map[string]bool{
		"req-123":                true,
		"":                       false,
		"has space":              false,
		"line\nbreak":            false,
		strings.Repeat("a", 129): false,
	}
	for sent, kept := range cases {
		var seen string
		handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = w.Header().Get(requestIDHeader)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, sent)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if kept {
			assert.Equal(t, sent, seen)
			continue
		}
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, "replacement for %q should be a uuid", sent)
	}
}

func TestRecovererLogsPanicWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	handler := RequestID(logg)(Recoverer(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("cart exploded")
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "cart exploded")

	var panicLine map[string]any
	for _, line := range logLines(t, &buf) {
		if line["message"] == "http.panic_recovered" {
			panicLine = line
		}
	}
	require.NotNil(t, panicLine)
	assert.Equal(t, "req-42", panicLine["request_id"])
	assert.Contains(t, panicLine["stack"], "request_test.go")
}

func TestRecovererLetsAbortHandlerThrough(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithError(t, http.ErrAbortHandler.Error(), func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
