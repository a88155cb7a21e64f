package metrics

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Mount is an extra handler served next to /metrics on the admin port.
type Mount struct {
	Path    string
	Handler http.Handler
}

var indexPage = template.Must(template.New("index").Parse(
	`<html><body><h1>{{.Name}}</h1><ul>{{range .Paths}}<li><a href="{{.}}">{{.}}</a></li>{{end}}</ul></body></html>`,
))

// StartServer serves /metrics plus any mounts on the given port and returns
// the server's Shutdown. The root path lists every mounted endpoint.
func StartServer(name string, port int, mounts ...Mount) (shutdown func(context.Context) error) {
	mux, paths := adminMux(name, mounts)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("admin server listening", "addr", server.Addr, "name", name, "paths", paths)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("admin server error", "error", err)
		}
	}()

	return server.Shutdown
}

func adminMux(name string, mounts []Mount) (*http.ServeMux, []string) {
	mux := http.NewServeMux()
	paths := []string{"/metrics"}
	mux.Handle("/metrics", Handler())
	for _, m := range mounts {
		mux.Handle(m.Path, m.Handler)
		paths = append(paths, m.Path)
	}
	sort.Strings(paths)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexPage.Execute(w, struct {
			Name  string
			Paths []string
		}{name, paths})
	})
	return mux, paths
}
