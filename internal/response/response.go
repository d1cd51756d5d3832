package response

import (
	"net/http"

	"donation-api/internal/apperrors"
	"donation-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error returns an error response
func Error(statusCode int, message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// CreatedJSON sends a 201 response carrying the created resource
func CreatedJSON(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Error(statusCode, message))
}

// DomainErrorJSON maps a domain error to its HTTP status and sends code and details.
// Store failures are logged and reported without their cause.
func DomainErrorJSON(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	resp := Response{Success: false, Message: "internal error", Code: string(apperrors.GetCode(err))}

	if e, ok := apperrors.As(err); ok {
		resp.Message = e.Message
		resp.Details = e.Metadata
	}
	if status == http.StatusInternalServerError {
		logging.Errorf("Request failed - path: %s, error: %v", c.FullPath(), err)
	}
	JSON(c, status, resp)
}
