package httpserver

import (
	"net/http"
	"time"
)

// New builds the admin API server. Handlers never stream; runs execute in the
// background and the endpoints only exchange small JSON payloads, so short
// timeouts are safe.
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
