// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for responses: JSON bodies for the
// chart API and Post/Redirect/Get redirects carrying a flash message.

package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookie = "bottega_flash"

// FlashKind selects how a flash message is styled.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind
	Message string
}

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	flash      *Flash
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the body. A value that cannot be encoded turns the
// response into a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	body, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"internal","message":"response encoding failed"}`)
	}
	b.headers["Content-Type"] = "application/json"
	b.body = body
	return b
}

// Flash attaches a message for the next page.
func (b *ResponseBuilder) Flash(kind FlashKind, message string) *ResponseBuilder {
	b.flash = &Flash{Kind: kind, Message: message}
	return b
}

func (b *ResponseBuilder) Success(message string) *ResponseBuilder {
	return b.Flash(FlashSuccess, message)
}

func (b *ResponseBuilder) Error(message string) *ResponseBuilder {
	return b.Flash(FlashError, message)
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.flash != nil {
		setFlash(w, *b.flash)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// SeeOther redirects to path after a form submission.
func SeeOther(path string) *ResponseBuilder {
	return NewResponse().Status(http.StatusSeeOther).Header("Location", path)
}

// JSONError is the error body of the JSON API.
func JSONError(statusCode int, reason, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(map[string]string{
		"error":   reason,
		"message": message,
	})
}

func setFlash(w http.ResponseWriter, f Flash) {
	value := base64.RawURLEncoding.EncodeToString([]byte(string(f.Kind) + "|" + f.Message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "|")
	if !ok || message == "" {
		return nil
	}
	switch FlashKind(kind) {
	case FlashSuccess, FlashError:
		return &Flash{Kind: FlashKind(kind), Message: message}
	}
	return nil
}
