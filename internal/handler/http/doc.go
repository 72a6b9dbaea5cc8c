// Package http implements the HTTP transport layer of the authentication
// core. It provides middleware, route handlers, and request/response
// utilities for the REST API. Authentication, rate limiting, logging,
// tracing, and security-header concerns are all handled at this layer before
// requests are forwarded to the service layer.
package http
