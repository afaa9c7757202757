package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"implicit ok", 0, "debug"},
		{"not found", http.StatusNotFound, "debug"},
		{"bad gateway", http.StatusBadGateway, "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := RequestLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("hello"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			want := tt.status
			if want == 0 {
				want = http.StatusOK
			}
			assert.Equal(t, float64(want), entry["status"])
			assert.Equal(t, float64(5), entry["bytes"])
			assert.Equal(t, "/health", entry["path"])
			assert.Equal(t, tt.level, entry["level"])
		})
	}
}

func TestRecovererAnswers500(t *testing.T) {
	var buf bytes.Buffer
	h := Recoverer(zerolog.New(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/groups", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "handler panicked")
}

func TestRecovererKeepsAbort(t *testing.T) {
	h := Recoverer(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
