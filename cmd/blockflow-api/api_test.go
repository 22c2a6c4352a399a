package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/blockflow/pkg/channels/gochannel"
	"github.com/dukex/blockflow/pkg/eventbus"
	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence/file"
	"github.com/dukex/blockflow/pkg/registry"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	reg := registry.NewRegistry(logger)
	require.NoError(t, reg.RegisterBuiltins())

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return NewAPI(logger, file.NewPersistence(t.TempDir()), reg, bus).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Blockflow API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	status, body := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, _ = get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_GetDocuments_Empty(t *testing.T) {
	app := setupTestApp(t)

	status, body := get(t, app, "/documents")
	require.Equal(t, http.StatusOK, status)

	var response map[string]any
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Empty(t, response["documents"])
	assert.EqualValues(t, 0, response["total_count"])
}

func TestAPI_CreateAndFetchDocument(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBufferString(`{"name":"Checkout","root_kind":"program"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc models.WorkflowDocument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))

	status, _ := get(t, app, "/documents/"+doc.ID)
	assert.Equal(t, http.StatusOK, status)
}
