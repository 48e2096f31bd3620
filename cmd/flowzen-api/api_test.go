package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowzen/flowzen/pkg/channels/gochannel"
	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/identity"
	"github.com/flowzen/flowzen/pkg/locker"
	"github.com/flowzen/flowzen/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAPI(t *testing.T) *API {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return NewAPI(logger, file.NewPersistence(t.TempDir()), bus, locker.NewMemory())
}

func get(t *testing.T, app *fiber.App, path string, headers map[string]string) (int, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := get(t, setupTestAPI(t).App(), "/", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Flowzen API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestAPI(t).App()

	status, body := get(t, app, "/livez", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, body = get(t, app, "/api/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Flowzen API is healthy")
}

func TestAPI_RequiresUser(t *testing.T) {
	app := setupTestAPI(t).App()

	status, body := get(t, app, "/api/workflows", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "unauthorized")

	status, body = get(t, app, "/api/workflows", map[string]string{identity.DefaultHeader: "user-1"})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, mustField(t, body, "workflows"))
}

func TestAPI_MetricsCountEvents(t *testing.T) {
	api := setupTestAPI(t)
	require.NoError(t, api.Subscribe(t.Context()))

	app := api.App()

	payload, err := json.Marshal(map[string]string{"name": "Hello", "description": "World"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/workflows", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.DefaultHeader, "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Eventually(t, func() bool {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if err != nil {
			return false
		}

		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}

		return bytes.Contains(body, []byte(`flowzen_events_total{event_type="workflow.created"} 1`))
	}, 5*time.Second, 20*time.Millisecond)
}

func mustField(t *testing.T, body, field string) string {
	t.Helper()

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))

	return string(fields[field])
}
