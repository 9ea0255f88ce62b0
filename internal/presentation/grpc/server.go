package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/bibbank/leasing/pkg/tlsutil"
)

const healthService = "leasing-engine"

// ServerOptions configures transport security, reflection and throttling.
// A non-positive RateLimit leaves the API unthrottled.
type ServerOptions struct {
	CertFile   string
	KeyFile    string
	Reflection bool
	RateLimit  float64
	RateBurst  int
}

// Server wraps the gRPC server with the leasing handler registered.
type Server struct {
	gs           *grpc.Server
	healthServer *health.Server
	logger       *slog.Logger
}

// NewServer creates and configures the gRPC server. TLS is enabled when both
// a certificate and key are configured.
func NewServer(handler LeasingServiceServer, opts ServerOptions, logger *slog.Logger) (*Server, error) {
	interceptors := []grpc.UnaryServerInterceptor{recoveryInterceptor(logger), loggingInterceptor(logger)}
	if opts.RateLimit > 0 {
		interceptors = append(interceptors, rateLimitInterceptor(rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst), logger))
		logger.Info("gRPC rate limiting enabled", "rps", opts.RateLimit, "burst", opts.RateBurst)
	}
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(interceptors...),
	}

	if opts.CertFile != "" && opts.KeyFile != "" {
		creds, err := tlsutil.ServerTLSConfig(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load grpc tls: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
		logger.Info("gRPC TLS enabled", "cert", opts.CertFile)
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthServer)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterLeasingServiceServer(gs, handler)

	return &Server{
		gs:           gs,
		healthServer: healthServer,
		logger:       logger,
	}, nil
}

// Serve starts the gRPC server on addr and blocks until it stops.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	s.healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	if err := s.gs.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// GracefulStop stops the server gracefully.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)
	s.gs.GracefulStop()
}

// ---------------------------------------------------------------------------
// Interceptors
// ---------------------------------------------------------------------------

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		attrs := []any{
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.WarnContext(ctx, "rpc failed", append(attrs, "error", err)...)
		} else {
			logger.DebugContext(ctx, "rpc handled", attrs...)
		}
		return resp, err
	}
}

func recoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "rpc panic", "method", info.FullMethod, "panic", r)
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// rateLimitInterceptor rejects calls beyond the limiter's budget. Health
// checks are never throttled.
func rateLimitInterceptor(limiter *rate.Limiter, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") || limiter.Allow() {
			return handler(ctx, req)
		}
		logger.WarnContext(ctx, "rate limit exceeded", "method", info.FullMethod)
		return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
}
