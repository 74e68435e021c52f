// Package grpcserver exposes the standard gRPC health service so
// orchestrators can probe the process and its database.
package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
)

// Service is the name reported for the recipe API in health checks.
const Service = "recipebook.v1.Recipes"

const refreshInterval = 5 * time.Second

type HealthServer struct {
	server *grpc.Server
	health *health.Server
	db     *gorm.DB
	ping   func(ctx context.Context) error
	logger *zap.SugaredLogger
}

func NewHealthServer(db *gorm.DB, logger *zap.SugaredLogger) *HealthServer {
	s := HealthServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
		db:     db,
		logger: logger,
	}
	s.ping = s.pingDB
	healthpb.RegisterHealthServer(s.server, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return &s
}

func Register(lc fx.Lifecycle, cfg *config.Config, s *HealthServer) {
	watchCtx, stopWatch := context.WithCancel(context.Background())
	watchDone := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.Host+":"+cfg.GRPCPort)
			if err != nil {
				return errors.Wrap(err, "failed to listen")
			}
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warnw("database is not reachable yet", "error", err)
			}
			go func() {
				defer close(watchDone)
				s.Watch(watchCtx, refreshInterval)
			}()
			go func() {
				if err := s.Serve(lis); err != nil {
					s.logger.Errorw("failed to serve grpc", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.logger.Info("Stopping GRPC server.")
			stopWatch()
			select {
			case <-watchDone:
			case <-ctx.Done():
			}
			s.Stop()
			return nil
		},
	})
}

func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Infow("grpc server listening", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

// Refresh pings the database and publishes the result as the serving status.
func (s *HealthServer) Refresh(ctx context.Context) error {
	if err := s.ping(ctx); err != nil {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return errors.Wrap(err, "ping database")
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Watch calls Refresh every interval until ctx is done. Status changes are
// logged once per transition.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var failing bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := s.Refresh(pingCtx)
		cancel()

		switch {
		case err != nil && !failing:
			s.logger.Warnw("database became unreachable", "error", err)
		case err == nil && failing:
			s.logger.Info("database is reachable again")
		}
		failing = err != nil
	}
}

func (s *HealthServer) pingDB(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}
