// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/mdmc/smartlinks/internal/handler/dto"
)

// Handler wraps shared helpers for plain endpoints.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is a simple root endpoint.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"service": "mdmc-smartlinks",
		"version": "1.0.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
		Error: "resource not found",
		Code:  "NOT_FOUND",
	})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{
		Error: "method not allowed",
		Code:  "METHOD_NOT_ALLOWED",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// getClientIP extracts the client IP from the request, preferring the
// CDN header, then the proxy header, then the forwarded-for chain, then
// the socket address. Falls back to loopback when nothing is present.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return stripMappedPrefix(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return stripMappedPrefix(ip)
	}
	if chain := r.Header.Get("X-Forwarded-For"); chain != "" {
		// Take the first IP in the chain
		first := chain
		if i := strings.IndexByte(chain, ','); i >= 0 {
			first = chain[:i]
		}
		return stripMappedPrefix(strings.TrimSpace(first))
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return stripMappedPrefix(host)
		}
		return stripMappedPrefix(r.RemoteAddr)
	}
	return "127.0.0.1"
}

// stripMappedPrefix removes the IPv6-mapped-IPv4 prefix if present.
func stripMappedPrefix(ip string) string {
	return strings.TrimPrefix(ip, "::ffff:")
}
