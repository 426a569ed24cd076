// Package httpserver builds the sidecar's http.Server with timeouts set.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the verification surface. The verify endpoints
// read small JSON bodies, so generous read/write timeouts are safe.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
