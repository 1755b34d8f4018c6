package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StatusAll(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	r := NewRegistry(map[string]Dependency{
		"store":  {Category: "store", Probe: func(context.Context) error { return nil }},
		"voice":  {Category: "voice", HealthURL: ok.URL},
		"gemini": {Category: "llm", HealthURL: down.URL},
		"kafka":  {Category: "events"},
		"broken": {Category: "store", Probe: func(context.Context) error { return errors.New("conn refused") }},
	})

	infos := r.StatusAll(context.Background())
	require.Len(t, infos, 5)

	byName := map[string]Info{}
	for _, in := range infos {
		byName[in.Name] = in
	}
	assert.Equal(t, StatusHealthy, byName["store"].Status)
	assert.Equal(t, StatusHealthy, byName["voice"].Status)
	assert.Equal(t, StatusUnhealthy, byName["gemini"].Status)
	assert.Contains(t, byName["gemini"].Error, "Service Unavailable")
	assert.Equal(t, StatusDisabled, byName["kafka"].Status)
	assert.Equal(t, "conn refused", byName["broken"].Error)

	assert.Equal(t, []string{"broken", "gemini", "kafka", "store", "voice"}, r.Names())
	assert.Equal(t, "broken", infos[0].Name)
	assert.False(t, Healthy(infos))
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, StatusDisabled, r.Status(context.Background(), "nope").Status)
	assert.True(t, Healthy(r.StatusAll(context.Background())))
}
