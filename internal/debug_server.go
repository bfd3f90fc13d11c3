// Package internal hosts the operator surface: an HTML inspect page
// over the live chat state, the Prometheus scrape endpoint and a
// liveness probe, served on a dedicated debug port.
package internal

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-backend/observability"
	"chat-backend/runtime"
	"chat-backend/store"
)

//go:embed inspect.html
var templatesFS embed.FS

// ChatRow is one chat line of the inspect dashboard.
type ChatRow struct {
	ChatID       string
	Participants string
	Messages     int
	Online       int
	Subscribers  int
	LastActivity string
}

type PageData struct {
	GeneratedAt string
	Stats       map[string]any
	Chats       []ChatRow
}

// StartDebugServer serves /inspect, /metrics and /healthz in the
// background. It is best-effort tooling: a bind failure is logged, not
// fatal, so a port clash never takes the backend down with it.
func StartDebugServer(log *slog.Logger, port int, chats *store.ChatStore, registry *runtime.Registry, metrics *observability.Metrics) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		data := PageData{
			GeneratedAt: time.Now().UTC().Format(time.RFC822),
			Stats:       metrics.Snapshot(),
		}
		for _, row := range chats.Overview() {
			last := "-"
			if !row.LastActivity.IsZero() {
				last = row.LastActivity.Format("15:04:05")
			}
			data.Chats = append(data.Chats, ChatRow{
				ChatID:       row.ChatID,
				Participants: strings.Join(row.Participants, ", "),
				Messages:     row.Messages,
				Online:       row.Online,
				Subscribers:  registry.CountFor(row.ChatID),
				LastActivity: last,
			})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", port)
		log.Info("Debug server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Debug server stopped", "error", err)
		}
	}()
}
