// Package grpcserver serves the standard gRPC health protocol so load
// balancers and orchestrators can probe the chat backend.
package grpcserver

import (
	"fmt"
	"net"

	"storefront-support/backend/pkg/health"
	"storefront-support/backend/pkg/logger"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall status
const ServiceName = "storefront.support.Chat"

// Server wraps a gRPC server exposing grpc.health.v1
type Server struct {
	server *grpc.Server
	health *grpchealth.Server
	log    *logger.Logger
}

// New creates the server. Its status follows checker; with a nil checker
// it always reports SERVING.
func New(checker *health.Checker, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobal()
	}

	s := &Server{
		server: grpc.NewServer(),
		health: grpchealth.NewServer(),
		log:    log.WithComponent("grpc"),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.SetServing(checker == nil || checker.IsSystemHealthy())
	if checker != nil {
		checker.OnUpdate(s.SetServing)
	}
	return s
}

// SetServing flips the reported status of the overall server and the chat service
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis until Stop
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("gRPC server listening", "address", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on the TCP port and serves
func (s *Server) ListenAndServe(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls
func (s *Server) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
