package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Request bodies are small JSON documents, so the
// timeouts are tight; slow clients get cut rather than pinning a connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
