package server

import (
	"context"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/jobcontrol"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// NewGRPCServer builds a server carrying the JobControl and health services.
// The health status of the JobControl service starts as SERVING.
func NewGRPCServer(srv jobcontrol.JobControlServer, logger ports.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	jobcontrol.RegisterJobControlServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(jobcontrol.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}

// LoggingInterceptor logs every unary call at debug level and failures at warn.
func LoggingInterceptor(logger ports.Logger) grpc.UnaryServerInterceptor {
	log := logger.With("component", "grpc")
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("rpc failed", "method", info.FullMethod, "code", status.Code(err).String(), "error", err, "elapsed", time.Since(start))
			return resp, err
		}
		log.Debug("rpc served", "method", info.FullMethod, "elapsed", time.Since(start))
		return resp, nil
	}
}
