package health_service_api

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "travelbooking.Bookings"

type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves grpc.health.v1 with a status derived from periodic store pings.
type Server struct {
	health   *health.Server
	store    Pinger
	interval time.Duration
	log      *zap.Logger
}

func NewServer(store Pinger, interval time.Duration, log *zap.Logger) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Server{
		health:   health.NewServer(),
		store:    store,
		interval: interval,
		log:      log,
	}
}

func (s *Server) Register(grpcSrv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcSrv, s.health)
}

// Run refreshes the status until ctx is done, then reports NOT_SERVING to watchers.
func (s *Server) Run(ctx context.Context) error {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return nil
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Server) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("booking store ping failed", zap.Error(err))
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
