// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the standard API response envelope. On failures Data carries the
// error detail (usually a string).
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with a message and data.
func OK(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 response with a message and data.
func Created(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Error writes an error response with the given status, message, and detail.
func Error(w http.ResponseWriter, status int, message string, detail interface{}) {
	JSON(w, status, Envelope{Success: false, Message: message, Data: detail})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string, detail interface{}) {
	Error(w, http.StatusBadRequest, message, detail)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, detail string) {
	Error(w, http.StatusUnauthorized, "unauthorized", detail)
}

// BadGateway writes a 502 response, used when an upstream store write fails.
func BadGateway(w http.ResponseWriter, message string, detail interface{}) {
	Error(w, http.StatusBadGateway, message, detail)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string, detail interface{}) {
	Error(w, http.StatusInternalServerError, message, detail)
}
