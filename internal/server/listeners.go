package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPService serves handler on addr until stopped.
//
// Precondition: handler must be non-nil; addr must be a valid listen address.
func HTTPService(addr string, handler http.Handler, logger *zap.Logger) Service {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("http listening", zap.String("addr", lis.Addr().String()))
			if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	}
}

// GRPCService serves srv on addr until stopped.
//
// Precondition: srv must be non-nil with its services registered.
func GRPCService(addr string, srv *grpc.Server, logger *zap.Logger) Service {
	return &FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
			return srv.Serve(lis)
		},
		StopFn: func() {
			srv.GracefulStop()
		},
	}
}
