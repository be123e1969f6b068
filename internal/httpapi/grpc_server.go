package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"assetdesk.org/internal/obs"
)

// HealthServer implements grpc.health.v1.Health on top of a store ping.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	store Pinger
}

// NewHealthServer creates the gRPC health service wrapper.
func NewHealthServer(store Pinger) *HealthServer {
	return &HealthServer{store: store}
}

// Register attaches the health service to srv.
func (s *HealthServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s)
}

// Check pings the store. On failure returns gRPC Unavailable. Only the
// overall ("") and assetdesk service names are known.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != serviceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			obs.SetReady(false)
			return nil, status.Errorf(codes.Unavailable, "not ready: %v", err)
		}
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
