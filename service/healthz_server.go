package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// Progress is reported by /healthz while a run is in flight
type Progress struct {
	Identifier string `json:"identifier"`
	RunID      string `json:"run_id"`
	Profile    int    `json:"profile"`
	Batches    int    `json:"batches"`
	Failures   int    `json:"failures"`
	Done       bool   `json:"done"`
}

type HealthzServer struct {
	mu       sync.Mutex
	ctx      context.Context
	server   *http.Server
	log      log.Logger
	progress atomic.Pointer[Progress]
}

// Serve answers health checks on an existing listener until Shutdown
func (h *HealthzServer) Serve(ctx context.Context, ln net.Listener) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	server := &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    ln.Addr().String(),
	}
	h.mu.Lock()
	h.server = server
	h.ctx = ctx
	h.mu.Unlock()
	return server.Serve(ln)
}

func (h *HealthzServer) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

// SetProgress replaces the progress reported by /healthz
func (h *HealthzServer) SetProgress(p Progress) {
	h.progress.Store(&p)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	if h.log != nil {
		h.log.Debug("Received health check request", "path", r.URL.Path)
	}
	p := h.progress.Load()
	if p == nil {
		w.Write([]byte("OK")) //nolint:errcheck
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p) //nolint:errcheck
}
