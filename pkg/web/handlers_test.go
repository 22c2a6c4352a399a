package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/blockflow/pkg/mocks"
	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence/file"
	"github.com/dukex/blockflow/pkg/registry"
	"github.com/dukex/blockflow/pkg/services"
	"github.com/dukex/blockflow/pkg/testutil"
	"github.com/dukex/blockflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, opts ...services.Option) *fiber.App {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	registryInstance := registry.NewRegistry(logger)
	require.NoError(t, registryInstance.RegisterBuiltins())

	editor := services.NewEditor(file.NewPersistence(t.TempDir()), registryInstance, logger, opts...)
	handlers := web.NewAPIHandlers(editor, validator.New(validator.WithRequiredStructEnabled()), registryInstance)

	app := fiber.New()
	handlers.Register(app)

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func createDocument(t *testing.T, app *fiber.App) *models.WorkflowDocument {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/documents", web.CreateDocumentRequest{
		Name:     "Checkout",
		RootKind: "program",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var doc models.WorkflowDocument
	require.NoError(t, json.Unmarshal(body, &doc))

	return &doc
}

func applyOperation(t *testing.T, app *fiber.App, id string, req web.OperationRequest) (int, web.OperationResponse, []byte) {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/documents/"+id+"/operations", req)

	var resp web.OperationResponse
	if status == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, &resp))
	}

	return status, resp, body
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	kind, _ := problem["type"].(string)

	return kind
}

func TestAPIHandlers_CreateDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful creation",
			requestBody:    web.CreateDocumentRequest{Name: "Checkout", RootKind: "program"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "validation error - missing name",
			requestBody:    web.CreateDocumentRequest{RootKind: "program"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "validation error - missing root kind",
			requestBody:    web.CreateDocumentRequest{Name: "Checkout"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown root kind",
			requestBody:    web.CreateDocumentRequest{Name: "Checkout", RootKind: "spaceship"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)

			status, body := doRequest(t, app, http.MethodPost, "/documents", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if status == http.StatusCreated {
				var doc models.WorkflowDocument
				require.NoError(t, json.Unmarshal(body, &doc))
				assert.NotEmpty(t, doc.ID)
				assert.Equal(t, "Checkout", doc.Metadata.Name)
				assert.Equal(t, "program", doc.Blocks[doc.Root].Kind)
			}
		})
	}
}

func TestAPIHandlers_DocumentLifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	doc := createDocument(t, app)

	status, resp, body := applyOperation(t, app, doc.ID, web.OperationRequest{
		Type:     "insert",
		Kind:     "variable",
		ParentID: doc.Root,
		SlotID:   "body",
		Data:     map[string]models.Value{"name": models.StringValue("total")},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	require.Len(t, resp.BlockIDs, 1)
	assert.Equal(t, 1, resp.History.Undo)

	variableID := resp.BlockIDs[0]

	status, resp, body = applyOperation(t, app, doc.ID, web.OperationRequest{
		Type:     "insert",
		Kind:     "log",
		ParentID: doc.Root,
		SlotID:   "body",
		Data:     map[string]models.Value{"message": models.StringValue("total")},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	logID := resp.BlockIDs[0]
	assert.Equal(t, []string{variableID, logID}, resp.Document.Blocks[doc.Root].Children["body"])

	status, body = doRequest(t, app, http.MethodGet, "/documents/"+doc.ID+"/identifiers", nil)
	require.Equal(t, http.StatusOK, status)

	var identifiers web.IdentifiersResponse
	require.NoError(t, json.Unmarshal(body, &identifiers))
	assert.Equal(t, []string{"total"}, identifiers.Identifiers)
	assert.Equal(t, []string{"total"}, identifiers.Scopes[logID])

	status, body = doRequest(t, app, http.MethodGet, "/documents/"+doc.ID+"/blocks/"+logID+"/suggestions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"total"`)

	status, body = doRequest(t, app, http.MethodGet, "/documents/"+doc.ID+"/blocks/missing/suggestions", nil)
	assert.Equal(t, http.StatusNotFound, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, "/documents/"+doc.ID+"/undo", nil)
	require.Equal(t, http.StatusOK, status)

	var undone web.DocumentResponse
	require.NoError(t, json.Unmarshal(body, &undone))
	assert.Equal(t, []string{variableID}, undone.Document.Blocks[doc.Root].Children["body"])
	assert.Equal(t, web.HistoryResponse{Undo: 1, Redo: 1}, undone.History)

	status, _ = doRequest(t, app, http.MethodPost, "/documents/"+doc.ID+"/redo", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doRequest(t, app, http.MethodPost, "/documents/"+doc.ID+"/redo", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", problemType(t, body))

	status, _ = doRequest(t, app, http.MethodPost, "/documents/"+doc.ID+"/save", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodGet, "/documents", nil)
	require.Equal(t, http.StatusOK, status)

	var list struct {
		Documents  []web.DocumentSummary `json:"documents"`
		TotalCount int                   `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, 3, list.Documents[0].BlockCount)

	status, _ = doRequest(t, app, http.MethodPost, "/documents/"+doc.ID+"/close", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodGet, "/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var reopened web.DocumentResponse
	require.NoError(t, json.Unmarshal(body, &reopened))
	assert.Len(t, reopened.Document.Blocks, 3)
	assert.Equal(t, web.HistoryResponse{}, reopened.History)

	status, _ = doRequest(t, app, http.MethodDelete, "/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodGet, "/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "document_not_found", problemType(t, body))
}

func TestAPIHandlers_ApplyOperationErrors(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	doc := createDocument(t, app)

	tests := []struct {
		name           string
		documentID     string
		request        any
		expectedStatus int
	}{
		{
			name:           "unknown operation type",
			documentID:     doc.ID,
			request:        web.OperationRequest{Type: "explode"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing parameters",
			documentID:     doc.ID,
			request:        web.OperationRequest{Type: "move", BlockID: "x"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:       "missing slot",
			documentID: doc.ID,
			request: web.OperationRequest{
				Type: "insert", Kind: "log", ParentID: doc.Root, SlotID: "footer",
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:       "invalid field value",
			documentID: doc.ID,
			request: web.OperationRequest{
				Type: "insert", Kind: "while", ParentID: doc.Root, SlotID: "body",
				Data: map[string]models.Value{"maxIterations": models.NumberValue(0)},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "remove root",
			documentID:     doc.ID,
			request:        web.OperationRequest{Type: "remove", BlockID: doc.Root},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown document",
			documentID:     "4a0c7a3e-0000-4000-8000-000000000000",
			request:        web.OperationRequest{Type: "detach", BlockID: "x"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid JSON",
			documentID:     doc.ID,
			request:        "{",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, http.MethodPost, "/documents/"+tt.documentID+"/operations", tt.request)
			assert.Equal(t, tt.expectedStatus, status, string(body))
		})
	}

	status, body := doRequest(t, app, http.MethodGet, "/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var current web.DocumentResponse
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Len(t, current.Document.Blocks, 1, "failed operations leave the document untouched")
	assert.Zero(t, current.History.Undo)
}

func TestAPIHandlers_Schemas(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/schemas", nil)
	require.Equal(t, http.StatusOK, status)

	var list struct {
		Schemas []models.BlockSchema `json:"schemas"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.NotEmpty(t, list.Schemas)

	status, body = doRequest(t, app, http.MethodGet, "/schemas/for_each", nil)
	require.Equal(t, http.StatusOK, status)

	var schema models.BlockSchema
	require.NoError(t, json.Unmarshal(body, &schema))
	assert.Equal(t, "for_each", schema.Kind)
	assert.Equal(t, "item", schema.IdentifierField)

	status, _ = doRequest(t, app, http.MethodGet, "/schemas/spaceship", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestAPIHandlers_Compiler(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		app := setupTestApp(t)
		doc := createDocument(t, app)

		status, body := doRequest(t, app, http.MethodGet, "/documents/"+doc.ID+"/code", nil)
		assert.Equal(t, http.StatusNotImplemented, status)
		assert.Equal(t, "compiler_unavailable", problemType(t, body))

		status, _ = doRequest(t, app, http.MethodPost, "/documents/import", web.ImportDocumentRequest{Source: "log 1"})
		assert.Equal(t, http.StatusNotImplemented, status)
	})

	t.Run("import and generate", func(t *testing.T) {
		t.Parallel()

		imported := testutil.NewDocumentBuilder("root").
			Add("root", "body", "L", testutil.KindLog, map[string]any{"message": "hi"}).
			Build()

		compiler := &mocks.MockCompiler{}
		compiler.On("ImportWorkflow", mock.Anything, "log hi").Return(imported, nil)
		compiler.On("GenerateCode", mock.Anything, mock.Anything).Return("log hi", nil)

		app := setupTestApp(t, services.WithCompiler(compiler))

		status, body := doRequest(t, app, http.MethodPost, "/documents/import", web.ImportDocumentRequest{Source: ""})
		assert.Equal(t, http.StatusBadRequest, status, string(body))

		status, body = doRequest(t, app, http.MethodPost, "/documents/import", web.ImportDocumentRequest{
			Name:   "Greeting",
			Source: "log hi",
		})
		require.Equal(t, http.StatusCreated, status, string(body))

		var doc models.WorkflowDocument
		require.NoError(t, json.Unmarshal(body, &doc))
		assert.Equal(t, "Greeting", doc.Metadata.Name)

		status, body = doRequest(t, app, http.MethodGet, "/documents/"+doc.ID+"/code", nil)
		require.Equal(t, http.StatusOK, status)

		var code web.CodeResponse
		require.NoError(t, json.Unmarshal(body, &code))
		assert.Equal(t, "log hi", code.Code)
	})
}
