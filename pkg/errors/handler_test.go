package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_DomainErrorKeepsCode(t *testing.T) {
	// Arrange
	handler := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v2/diagrams/org_chart/nodes/x", nil)
	err := fmt.Errorf("node %q: %w", "x", ErrNodeNotFound)

	// Act
	handler.Handle(rec, req, err)

	// Assert
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "NODE_NOT_FOUND", body.Code)
	assert.True(t, body.Error)
}

func TestErrorHandler_BusinessRuleIsUnprocessable(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/diagrams/org_chart/edges", nil)

	handler.Handle(rec, req, ErrEdgeEndpointMissing)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EDGE_ENDPOINT_MISSING", decode(t, rec).Code)
}

func TestErrorHandler_AppErrorStatus(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/diagrams/org_chart/nodes", nil)

	handler.Handle(rec, req, fmt.Errorf("command validation failed: %w", NewValidationError("label is required")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "label is required", body.Message)
	assert.Equal(t, string(ErrorTypeValidation), body.Type)
	assert.Nil(t, body.Details)
}

func TestErrorHandler_DebugExposesStack(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler.Handle(rec, req, NewDatabaseError("read diagram", errors.New("disk full")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec).Details, "stack_trace")
}

func TestErrorHandler_GenericErrorIsHidden(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler.Handle(rec, req, fmt.Errorf("dynamodb exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dynamodb")
}

func TestErrorHandler_RecovererAnswersJSON(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(ErrorTypeInternal), decode(t, rec).Type)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("edge: %w", ErrEdgeNotFound)))
	assert.True(t, IsNotFound(NewNotFoundError("diagram")))
	assert.False(t, IsNotFound(ErrDuplicateEdge))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	copied := *ErrCanvasNotFound

	assert.True(t, errors.Is(&copied, ErrCanvasNotFound))
	assert.False(t, errors.Is(ErrNodeNotFound, ErrEdgeNotFound))
	assert.True(t, ErrConcurrentModification.Retryable)
}
