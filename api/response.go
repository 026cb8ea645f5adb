package api

import (
	"encoding/json"
	"net/http"
)

// Error is a generic error structure that is used to send error responses to the client.
type Error struct {
	Code    string      `json:"code,required"`
	Message string      `json:"message,required"`
	Details interface{} `json:"details,omitempty"`
}

// Response is a generic response structure that is used to send responses to the client.
type Response struct {
	Status string      `json:"status,required"`
	Data   interface{} `json:"data,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// NewResponse creates an empty response ready to be filled and sent.
func NewResponse() *Response {
	return &Response{}
}

// Error message
func (e *Error) Error() string {
	return e.Message
}

// Set data to response
func (rsp *Response) SetData(data interface{}) *Response {
	rsp.Data = data
	rsp.Error = nil
	return rsp
}

// Set error to response
func (rsp *Response) SetError(code string, message string, details ...interface{}) *Response {
	rsp.Data = nil
	rsp.Error = &Error{
		Code:    code,
		Message: message,
	}
	if len(details) == 1 {
		rsp.Error.Details = details[0]
	} else if len(details) > 1 {
		rsp.Error.Details = details
	}
	return rsp
}

// send writes the response with the given status code and envelope status.
func (rsp *Response) send(w http.ResponseWriter, statusCode int, status string, fallbackCode, fallbackMessage string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	rsp.Status = status
	if status == "error" && rsp.Error == nil {
		rsp.Error = &Error{
			Code:    fallbackCode,
			Message: fallbackMessage,
		}
	}
	_ = json.NewEncoder(w).Encode(rsp)
}

// Send success response to client
func (rsp *Response) Ok(w http.ResponseWriter) {
	rsp.send(w, http.StatusOK, "ok", "", "")
}

// Send created response to client
func (rsp *Response) Created(w http.ResponseWriter) {
	rsp.send(w, http.StatusCreated, "ok", "", "")
}

// Send error response to client
func (rsp *Response) BadRequest(w http.ResponseWriter) {
	rsp.send(w, http.StatusBadRequest, "error", "bad_request", "Bad request")
}

// Send error response to client
func (rsp *Response) Unauthorized(w http.ResponseWriter) {
	rsp.send(w, http.StatusUnauthorized, "error", "unauthorized", "Unauthorized")
}

// Send error response to client
func (rsp *Response) Forbidden(w http.ResponseWriter) {
	rsp.send(w, http.StatusForbidden, "error", "forbidden", "Forbidden")
}

// Send error response to client
func (rsp *Response) NotFound(w http.ResponseWriter) {
	rsp.send(w, http.StatusNotFound, "error", "not_found", "Not found")
}

// Send error response to client
func (rsp *Response) Conflict(w http.ResponseWriter) {
	rsp.send(w, http.StatusConflict, "error", "conflict", "Conflict")
}

// Send error response to client
func (rsp *Response) UnprocessableEntity(w http.ResponseWriter) {
	rsp.send(w, http.StatusUnprocessableEntity, "error", "unprocessable_entity", "Unprocessable entity")
}

// Send error response to client
func (rsp *Response) ServiceUnavailable(w http.ResponseWriter) {
	rsp.send(w, http.StatusServiceUnavailable, "error", "service_unavailable", "Service unavailable")
}

// Send error response to client
func (rsp *Response) InternalServerError(w http.ResponseWriter) {
	rsp.send(w, http.StatusInternalServerError, "error", "internal_server_error", "Internal server error")
}

// Send error response to client
func (rsp *Response) MethodNotAllowed(w http.ResponseWriter) {
	rsp.send(w, http.StatusMethodNotAllowed, "error", "method_not_allowed", "Method not allowed")
}
