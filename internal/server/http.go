package server

import (
	_ "embed"
	"net/http"

	"SpiritTalk/internal/game"
)

//go:generate go run ./cmd/webbuild

/* ------------------------------ Embeds ------------------------------ */

//go:embed web/index.html
var htmlIndex []byte

//go:embed web/client.js
var jsClient []byte

/* ------------------------------- HTTP ------------------------------- */

// NewMux routes the client, the websocket gateway, health and metrics.
// A nil m still counts, it just is not served.
func NewMux(h *game.Hub, cfg AppConfig, m *Metrics) *http.ServeMux {
	serveMetrics := m != nil && cfg.Metrics.Enabled
	if m == nil {
		m = NewMetrics(nil)
	}
	opts := wsOptions{RPS: cfg.Limits.RPS, Burst: cfg.Limits.Burst, Metrics: m}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(htmlIndex)
	})
	mux.HandleFunc("/client.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write(jsClient)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(h, opts, w, r)
	})
	if serveMetrics {
		mux.Handle("/metrics", m.Handler())
	}
	return mux
}
