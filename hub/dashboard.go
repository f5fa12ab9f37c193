package hub

import (
	_ "embed"
	"net/http"
)

//go:embed dashboard.html
var dashboardHTML []byte

// DashboardHandler serves the embedded single-page dashboard.
func DashboardHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/dashboard.html", "/index.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(dashboardHTML)
		default:
			http.NotFound(w, r)
		}
	})
}
