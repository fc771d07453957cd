package render

import (
	"encoding/json"
	"net/http"
)

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// FieldError is a single validation failure carried in an error envelope.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Envelope is the response body shared by every API endpoint.
type Envelope struct {
	Success    bool         `json:"success"`
	Count      *int         `json:"count,omitempty"`
	Total      *int         `json:"total,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	Data       any          `json:"data,omitempty"`
	Message    string       `json:"message,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Stack      string       `json:"stack,omitempty"`
}

// OK wraps data in a successful envelope.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Page wraps a page of results with its counters.
func Page(data any, count, total int, pagination Pagination) Envelope {
	return Envelope{
		Success:    true,
		Count:      &count,
		Total:      &total,
		Pagination: &pagination,
		Data:       data,
	}
}

// List wraps a complete list with its length.
func List(data any, count int) Envelope {
	return Envelope{Success: true, Count: &count, Data: data}
}

// Removed is the envelope returned after a successful delete.
func Removed(message string) Envelope {
	return Envelope{Success: true, Data: struct{}{}, Message: message}
}

// Failure builds an error envelope.
func Failure(message string) Envelope {
	return Envelope{Success: false, Message: message}
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// Text writes a text response.
func Text(w http.ResponseWriter, status int, message string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(message))
	return err
}
