// Package transport provides the HTTP middleware chain shared by all
// alertbridge endpoints.
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured access logging via log/slog. The
// endpoint handlers themselves live in the transport/http subpackage.
package transport
