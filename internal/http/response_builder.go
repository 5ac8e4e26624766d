package http

import (
	"fmt"
	"html/template"
	"net/http"
)

// ResponseBuilder provides a fluent API for assembling a response before any
// byte reaches the client, so a failed render can still become a clean error.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    http.Header
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(http.Header),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a header on the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers.Set(name, value)
	return b
}

// Body sets the response body as bytes.
func (b *ResponseBuilder) Body(content []byte) *ResponseBuilder {
	b.body = content
	return b
}

// HTML sets an HTML body.
func (b *ResponseBuilder) HTML(content []byte) *ResponseBuilder {
	b.headers.Set("Content-Type", "text/html; charset=utf-8")
	b.body = content
	return b
}

// Text sets a plain text body.
func (b *ResponseBuilder) Text(content string) *ResponseBuilder {
	b.headers.Set("Content-Type", "text/plain; charset=utf-8")
	b.body = []byte(content)
	return b
}

// Attachment marks the body as a download named filename.
func (b *ResponseBuilder) Attachment(filename, contentType string, content []byte) *ResponseBuilder {
	b.headers.Set("Content-Type", contentType)
	b.headers.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	b.body = content
	return b
}

// SeeOther redirects to location with 303, the answer to a successful POST.
func (b *ResponseBuilder) SeeOther(location string) *ResponseBuilder {
	b.statusCode = http.StatusSeeOther
	b.headers.Set("Location", location)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates an HTML error response. The message is escaped.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewResponse().
		Status(statusCode).
		HTML([]byte(`<div class="error">` + escapedMsg + `</div>`))
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
