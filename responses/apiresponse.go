// Package responses defines the error types handlers return to map
// failures onto HTTP status codes.
package responses

import "net/http"

// APIError is implemented by errors that map to an HTTP status code.
type APIError interface {
    Error() string
    StatusCode() int
}

// BadRequestError rejects malformed or incomplete input.
type BadRequestError struct {
    Msg string
}

func (e BadRequestError) Error() string { return e.Msg }

func (BadRequestError) StatusCode() int { return http.StatusBadRequest }

// UnauthorizedError rejects missing or invalid credentials.
type UnauthorizedError struct {
    Msg string
}

func (e UnauthorizedError) Error() string { return e.Msg }

func (UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// NotFoundError reports a missing resource.
type NotFoundError struct {
    Msg string
}

func (e NotFoundError) Error() string { return e.Msg }

func (NotFoundError) StatusCode() int { return http.StatusNotFound }

// InternalServerError reports an unexpected server-side failure.
type InternalServerError struct {
    Msg string
}

func (e InternalServerError) Error() string { return e.Msg }

func (InternalServerError) StatusCode() int { return http.StatusInternalServerError }
