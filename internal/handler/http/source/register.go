// Package source implements the per-user /sources CRUD surface and the
// /sources/discover RSS probe.
package source

import (
	"net/http"

	"insightfeed/internal/handler/http/middleware"
	"insightfeed/internal/usecase/discovery"
	"insightfeed/internal/usecase/sources"
)

// Register wires the source handlers onto mux. mux is assumed to
// already sit behind the auth middleware, so every handler here reads
// the caller's identity from the request context rather than
// re-checking authentication itself.
func Register(mux *http.ServeMux, svc sources.Service, discoverer *discovery.AutoDiscoverer, discoverRateLimiter *middleware.RateLimiter) {
	mux.Handle("GET    /sources", ListHandler{Svc: svc})
	mux.Handle("POST   /sources", CreateHandler{Svc: svc})
	mux.Handle("PATCH  /sources/", UpdateHandler{Svc: svc})
	mux.Handle("DELETE /sources/", DeleteHandler{Svc: svc})
	mux.Handle("POST   /sources/discover", discoverRateLimiter.Middleware(DiscoverHandler{Discoverer: discoverer}))
}
