package handler

import (
	"go.mongodb.org/mongo-driver/bson"
)

// ErrorHandlerFactory builds the handler substituted for a normal one whenever
// a dispatch gate fails. The handler's Start result decides the response.
type ErrorHandlerFactory func(status int, errs []bson.D) Handler

// ErrorHandler streams a list of error documents with a fixed status.
type ErrorHandler struct {
	status int
	errs   []bson.D
}

// NewErrorHandler is the default ErrorHandlerFactory.
func NewErrorHandler(status int, errs []bson.D) Handler {
	return &ErrorHandler{status: status, errs: errs}
}

// Status returns the HTTP status the handler answers with.
func (h *ErrorHandler) Status() int { return h.status }

// Errors returns the error documents.
func (h *ErrorHandler) Errors() []bson.D { return h.errs }

// Help is empty.
func (h *ErrorHandler) Help() *Help { return &Help{} }

// Start answers with the configured status.
func (h *ErrorHandler) Start(_ *Request) (StartResult, error) {
	return StartResult{Status: h.status, More: true}, nil
}

// Stream yields the error documents.
func (h *ErrorHandler) Stream() Cursor {
	return NewSliceCursor(h.errs)
}
