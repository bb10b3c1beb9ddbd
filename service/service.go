package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/ethereum-optimism/infra/op-citest/metrics"
	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
)

// Config selects the listen addresses. An empty address disables that server.
type Config struct {
	HealthzAddr string
	MetricsAddr string
	Identifier  string
	RunID       string
	Log         log.Logger
}

// Enabled reports whether any server is configured
func (c Config) Enabled() bool {
	return c.HealthzAddr != "" || c.MetricsAddr != ""
}

// Service exposes run progress on /healthz and Prometheus metrics on /metrics
// while a run is in flight. It also consumes batch results to track progress.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg       Config
	log       log.Logger
	listeners []net.Listener
	wg        sync.WaitGroup

	mu       sync.Mutex
	progress Progress
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	s := &Service{
		Healthz: &HealthzServer{log: cfg.Log},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     cfg.Log,
		progress: Progress{
			Identifier: cfg.Identifier,
			RunID:      cfg.RunID,
		},
	}
	s.Healthz.SetProgress(s.progress)
	return s
}

// Start binds the configured addresses and serves them in the background
func (s *Service) Start(ctx context.Context) error {
	s.log.Info("service starting")

	if s.cfg.HealthzAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.HealthzAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for healthz on %s: %w", s.cfg.HealthzAddr, err)
		}
		s.listeners = append(s.listeners, ln)
		s.serve(ctx, "healthz", ln, s.Healthz.Serve)
	}

	if s.cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.MetricsAddr)
		if err != nil {
			s.Shutdown()
			return fmt.Errorf("failed to listen for metrics on %s: %w", s.cfg.MetricsAddr, err)
		}
		s.listeners = append(s.listeners, ln)
		s.serve(ctx, "metrics", ln, s.Metrics.Serve)
	}

	s.log.Info("service started")
	return nil
}

func (s *Service) serve(ctx context.Context, name string, ln net.Listener, serve func(context.Context, net.Listener) error) {
	s.log.Info("starting "+name+" server", "addr", ln.Addr().String())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := serve(ctx, ln); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			s.log.Error("error running "+name+" server", "err", err)
			metrics.RecordErrorDetails("error running "+name+" server", err)
		}
	}()
}

// Addrs returns the bound addresses, healthz first when enabled
func (s *Service) Addrs() []string {
	addrs := make([]string, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr().String())
	}
	return addrs
}

// Consume records the progress of a batch
func (s *Service) Consume(profile int, result *types.BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Profile = profile
	s.progress.Batches++
	if result.Failed() {
		s.progress.Failures++
	}
	s.Healthz.SetProgress(s.progress)
	return nil
}

// Complete marks the run as done
func (s *Service) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Done = true
	s.Healthz.SetProgress(s.progress)
	return nil
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	_ = s.Metrics.Shutdown()
	// Unblocks servers that had not started serving yet
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.wg.Wait()

	s.log.Info("service stopped")
}
