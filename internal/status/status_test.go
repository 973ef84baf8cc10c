package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type count int

func (c count) Len() int { return int(c) }

type jobs []string

func (j jobs) List() []string { return j }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, New(":0", pinger{}, count(0), nil).Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = get(t, New(":0", pinger{err: errors.New("disk full")}, count(0), nil).Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disk full", body["error"])
}

func TestSessions(t *testing.T) {
	rec, body := get(t, New(":0", pinger{}, count(3), jobs{"bot", "sweeper"}).Handler(), "/sessions")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["sessions"])
	assert.Equal(t, []any{"bot", "sweeper"}, body["jobs"])
}

func TestLiveness(t *testing.T) {
	rec, _ := get(t, New(":0", pinger{}, count(0), nil).Handler(), "/livez")
	assert.Equal(t, http.StatusOK, rec.Code)
}
