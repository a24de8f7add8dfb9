package system

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name that follows the board session.
const HealthService = "hotmock.Bridge"

// newHealthServer starts in NOT_SERVING until the component is activated.
func newHealthServer() *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

func servingStatus(state ComponentState) healthpb.HealthCheckResponse_ServingStatus {
	if state == StateActive {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
