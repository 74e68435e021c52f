package grpcserver

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db/dbtest"
)

func TestHealthReflectsDatabase(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewHealthServer(gdb, zap.NewNop().Sugar())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	require.NoError(t, s.Refresh(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	assert.Error(t, s.Refresh(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestWatchFollowsDatabase(t *testing.T) {
	s := NewHealthServer(dbtest.New(t), zap.NewNop().Sugar())

	var down atomic.Bool
	s.ping = func(context.Context) error {
		if down.Load() {
			return errors.New("connection refused")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, 10*time.Millisecond)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		assert.Eventually(t, func() bool {
			resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: Service})
			return err == nil && resp.Status == want
		}, 2*time.Second, 10*time.Millisecond)
	}

	waitFor(healthpb.HealthCheckResponse_SERVING)

	down.Store(true)
	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)

	down.Store(false)
	waitFor(healthpb.HealthCheckResponse_SERVING)
}
