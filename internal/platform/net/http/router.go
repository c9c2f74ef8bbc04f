// Package http is the small HTTP surface services mount against
package http

import "net/http"

// Handler is a plain handler func; services never see chi types
type Handler = func(http.ResponseWriter, *http.Request)

// Router is what a module mounts against. The track endpoint only ever serves
// GET, HEAD and the CORS preflight, so those are the only verb helpers
type Router interface {
	Get(path string, h Handler)
	Head(path string, h Handler)
	Options(path string, h Handler)

	Handle(path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	Mux() http.Handler
}
