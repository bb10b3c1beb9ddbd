package service

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	mu     sync.Mutex
	ctx    context.Context
	server *http.Server
}

// Serve exposes the default Prometheus registry on /metrics until Shutdown
func (m *MetricsServer) Serve(ctx context.Context, ln net.Listener) error {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler: hdlr,
		Addr:    ln.Addr().String(),
	}
	m.mu.Lock()
	m.server = server
	m.ctx = ctx
	m.mu.Unlock()
	return server.Serve(ln)
}

func (m *MetricsServer) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
