package handler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// JSON renders v as the response body with status 200.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Created renders v with status 201.
func Created(v any) Response {
	return JSON(v, WithStatus(http.StatusCreated))
}

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty responds with 204 No Content.
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.err
}

// Error hands err to the configured ErrorHandler without writing anything.
func Error(err error) Response {
	if err == nil {
		err = ErrNilResponse
	}
	return errorResponse{err: err}
}

type attachmentResponse struct {
	filename    string
	contentType string
	body        []byte
}

func (a attachmentResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(a.body)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(a.body)
	return err
}

// Attachment sends body as a downloadable file.
func Attachment(filename, contentType string, body []byte) Response {
	return attachmentResponse{filename: filename, contentType: contentType, body: body}
}
