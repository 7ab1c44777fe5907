package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall "" service.
const ServiceName = "storefront"

type Check func(ctx context.Context) error

// Server exposes gRPC health and reflection for the storefront.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

func NewServer(log *slog.Logger) *Server {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{srv: srv, health: hs, log: log.With(slog.String("component", "grpc"))}
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc server listening", slog.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Watch runs checks every interval until ctx is done. Each check is also reported as its own
// health service, and the storefront is serving only while all of them pass.
func (s *Server) Watch(ctx context.Context, checks map[string]Check, every time.Duration) {
	s.probe(ctx, checks)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.probe(ctx, checks)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) probe(ctx context.Context, checks map[string]Check) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	ok := true
	for name, check := range checks {
		st := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			ok = false
			st = healthpb.HealthCheckResponse_NOT_SERVING
			s.log.Warn("dependency unhealthy", slog.String("dependency", name), slog.Any("error", err))
		}
		s.health.SetServingStatus(ServiceName+"."+name, st)
	}
	s.SetServing(ok)
}

// Stop marks the server as shutting down and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
