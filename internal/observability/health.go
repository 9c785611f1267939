package observability

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthChecker serves gRPC health and HTTP /healthz. The process is ready
// once a FIX session is logged on and, when Kafka is in use, the drop-copy
// producer can reach a broker.
type HealthChecker struct {
	grpcHealth   *health.Server
	httpServer   *http.Server
	mux          *http.ServeMux
	logger       *zap.Logger
	mu           sync.RWMutex
	serving      bool
	sessionReady bool
	kafkaReady   bool
	usesKafka    bool
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(logger *zap.Logger) *HealthChecker {
	h := &HealthChecker{
		grpcHealth: health.NewServer(),
		mux:        http.NewServeMux(),
		logger:     logger,
		serving:    true,
	}
	h.mux.HandleFunc("/healthz", h.handleHealthz)
	return h
}

// RegisterGRPC registers the health service with the gRPC server
func (h *HealthChecker) RegisterGRPC(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.grpcHealth)
	h.updateGRPCStatus()
}

// Handle mounts an extra handler, such as /metrics, on the HTTP server.
// Call before StartHTTPServer.
func (h *HealthChecker) Handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

// StartHTTPServer starts the HTTP health server
func (h *HealthChecker) StartHTTPServer(addr string) error {
	h.mu.Lock()
	h.httpServer = &http.Server{
		Addr:    addr,
		Handler: h.mux,
	}
	srv := h.httpServer
	h.mu.Unlock()

	h.logger.Info("starting HTTP health server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the health checker
func (h *HealthChecker) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.serving = false
	srv := h.httpServer
	h.mu.Unlock()
	h.updateGRPCStatus()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// SetSessionReady records whether a FIX session is logged on
func (h *HealthChecker) SetSessionReady(ready bool) {
	h.mu.Lock()
	changed := h.sessionReady != ready
	h.sessionReady = ready
	h.mu.Unlock()

	if changed {
		h.logger.Info("fix session readiness changed", zap.Bool("ready", ready))
		h.updateGRPCStatus()
	}
}

// SetKafkaReady sets the Kafka client readiness status
func (h *HealthChecker) SetKafkaReady(ready bool) {
	h.mu.Lock()
	h.kafkaReady = ready
	h.usesKafka = true
	h.mu.Unlock()
	h.updateGRPCStatus()
}

// Ready reports the combined readiness
func (h *HealthChecker) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.serving && h.sessionReady && (!h.usesKafka || h.kafkaReady)
}

func (h *HealthChecker) updateGRPCStatus() {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if h.Ready() {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.grpcHealth.SetServingStatus("", status)
}

func (h *HealthChecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.Ready() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT_READY"))
	}
}
