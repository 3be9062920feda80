// Package httpx provides a resilient HTTP client adapter
// for the r9y library.
//
// Client wraps a standard http.Client with an r9y resilience
// policy and a user-provided status code classifier that maps
// HTTP response codes to transient or permanent errors at the
// boundary, so the engine's retry and circuit decisions see
// classified failures rather than raw status codes.
package httpx
