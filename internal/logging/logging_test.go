package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "info", false)
	require.NoError(t, err)

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	req := httptest.NewRequest(http.MethodPost, "/reports", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "rid-1", rr.Header().Get(RequestIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "request", line["message"])
	require.Equal(t, "rid-1", line["request_id"])
	require.Equal(t, "/reports", line["path"])
	require.EqualValues(t, 201, line["status"])
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "info", false)
	require.NoError(t, err)

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotEmpty(t, rr.Header().Get(RequestIDHeader))
	require.Contains(t, buf.String(), "panic recovered")
}

func TestMiddlewareScopesLoggerToRequest(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "info", false)
	require.NoError(t, err)

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
	}))
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(RequestIDHeader, "rid-2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	first, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(first, &line))
	require.Equal(t, "inside", line["message"])
	require.Equal(t, "rid-2", line["request_id"])
}
