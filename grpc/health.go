package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"livechat-bot/models"

	"github.com/rs/zerolog"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SchedulerService is the health service name reflecting the delivery loop.
const SchedulerService = "livechat.Scheduler"

// Heartbeat exposes when the delivery loop last completed a tick.
type Heartbeat interface {
	LastTick() time.Time
}

// HealthService serves the standard gRPC health protocol. The scheduler is
// reported SERVING while its heartbeat is fresher than staleAfter.
type HealthService struct {
	addr       string
	staleAfter time.Duration
	beat       Heartbeat

	server *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

func NewHealthService(cfg models.GRPCConfig, beat Heartbeat, log zerolog.Logger) *HealthService {
	stale := cfg.StaleAfter
	if stale <= 0 {
		stale = 5 * time.Second
	}
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	h := &HealthService{
		addr:       cfg.Addr,
		staleAfter: stale,
		beat:       beat,
		server:     srv,
		health:     hs,
		log:        log.With().Str("component", "health").Logger(),
	}
	h.Refresh(time.Now())
	return h
}

// Healthy reports whether the scheduler ticked recently.
func (h *HealthService) Healthy(now time.Time) bool {
	last := h.beat.LastTick()
	return !last.IsZero() && now.Sub(last) <= h.staleAfter
}

// Refresh publishes the current status and returns it.
func (h *HealthService) Refresh(now time.Time) bool {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	ok := h.Healthy(now)
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(SchedulerService, status)
	return ok
}

// Serve listens on the configured address until ctx is done.
func (h *HealthService) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		healthy := true
		for {
			select {
			case <-ctx.Done():
				h.health.Shutdown()
				h.server.GracefulStop()
				return
			case now := <-ticker.C:
				ok := h.Refresh(now)
				if ok != healthy {
					if ok {
						h.log.Info().Msg("scheduler heartbeat recovered")
					} else {
						h.log.Warn().Time("last_tick", h.beat.LastTick()).Msg("scheduler heartbeat is stale")
					}
					healthy = ok
				}
			}
		}
	}()

	h.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health service listening")
	if err := h.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
