package errors

import (
	"fmt"
	"net/http"
)

// DomainErrorType is the category of a rule the org-chart model enforces.
type DomainErrorType string

const (
	DomainValidationError     DomainErrorType = "VALIDATION_ERROR"
	DomainBusinessRuleError   DomainErrorType = "BUSINESS_RULE_ERROR"
	DomainNotFoundError       DomainErrorType = "NOT_FOUND"
	DomainConflictError       DomainErrorType = "CONFLICT"
	DomainAuthenticationError DomainErrorType = "AUTHENTICATION_ERROR"
	DomainAuthorizationError  DomainErrorType = "AUTHORIZATION_ERROR"
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"
)

var statusByDomainType = map[DomainErrorType]int{
	DomainValidationError:     http.StatusBadRequest,
	DomainBusinessRuleError:   http.StatusUnprocessableEntity,
	DomainNotFoundError:       http.StatusNotFound,
	DomainConflictError:       http.StatusConflict,
	DomainAuthenticationError: http.StatusUnauthorized,
	DomainAuthorizationError:  http.StatusForbidden,
	DomainInfrastructureError: http.StatusInternalServerError,
}

// DomainError is a sentinel with a stable code clients can branch on.
// The package level values are shared: wrap them with %w, never mutate them.
type DomainError struct {
	Type       DomainErrorType `json:"type"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Retryable  bool            `json:"retryable"`
	StatusCode int             `json:"status_code"`
}

// NewDomainError builds a domain error whose status follows its type.
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	status, ok := statusByDomainType[errorType]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &DomainError{Type: errorType, Code: code, Message: message, StatusCode: status}
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *DomainError) retryable() *DomainError {
	e.Retryable = true
	return e
}

// Is compares by type and code so copies of a sentinel still match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

var (
	ErrNodeNotFound = NewDomainError(DomainNotFoundError,
		"NODE_NOT_FOUND", "The requested node does not exist")
	ErrDuplicateNode = NewDomainError(DomainConflictError,
		"DUPLICATE_NODE", "A node with this id already exists in the diagram")
	ErrParentNotFound = NewDomainError(DomainBusinessRuleError,
		"PARENT_NOT_FOUND", "The parent node does not exist in the diagram")

	ErrEdgeNotFound = NewDomainError(DomainNotFoundError,
		"EDGE_NOT_FOUND", "The requested edge does not exist")
	ErrDuplicateEdge = NewDomainError(DomainConflictError,
		"DUPLICATE_EDGE", "An edge with this id already exists in the diagram")
	ErrEdgeEndpointMissing = NewDomainError(DomainBusinessRuleError,
		"EDGE_ENDPOINT_MISSING", "Both endpoints of an edge must exist in the same diagram")

	ErrUnknownDiagramType = NewDomainError(DomainValidationError,
		"UNKNOWN_DIAGRAM_TYPE", "The requested diagram type does not exist")
	ErrCanvasNotFound = NewDomainError(DomainNotFoundError,
		"CANVAS_NOT_FOUND", "The canvas is not mounted")

	ErrInvalidCredentials = NewDomainError(DomainAuthenticationError,
		"INVALID_CREDENTIALS", "Invalid username or password")
	ErrUserNotAuthorized = NewDomainError(DomainAuthorizationError,
		"USER_NOT_AUTHORIZED", "User is not authorized to perform this action")

	ErrConcurrentModification = NewDomainError(DomainConflictError,
		"CONCURRENT_MODIFICATION", "The diagram was modified by another process").retryable()
	ErrCascadeIncomplete = NewDomainError(DomainInfrastructureError,
		"CASCADE_INCOMPLETE", "The node was deleted but some of its edges remain").retryable()
	ErrEventPublishFailed = NewDomainError(DomainInfrastructureError,
		"EVENT_PUBLISH_FAILED", "Failed to publish domain event").retryable()
)
