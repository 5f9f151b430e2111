package http

import "net/http"

// NotFoundHandler returns the JSON 404 for routes outside the checkout,
// stock, and admin surfaces.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
}
