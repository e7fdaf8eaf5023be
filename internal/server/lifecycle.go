// Package server manages the lifecycle of the binary's long-running
// components: startup, completion and graceful shutdown with signal handling.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a component that runs until it finishes or its context
// is cancelled.
type Service interface {
	// Run blocks until the service has finished its work or ctx is done.
	// Returning ctx.Err() after cancellation is not a failure.
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context) error

// Run calls f.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and awaited in reverse order.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
	}
}

// Add registers a named service for lifecycle management.
// Services are started in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts all services and blocks until every service has returned, one
// fails, a termination signal (SIGINT or SIGTERM) arrives or ctx is
// cancelled. The services' shared context is then cancelled and each is
// awaited in reverse order.
//
// Postcondition: All services have returned. The first service failure is
// returned; cancellation is not a failure.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	done := make([]chan struct{}, len(services))
	var wg sync.WaitGroup
	for i, ns := range services {
		done[i] = make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[i])
			l.logger.Info("starting service",
				zap.String("service", ns.name),
			)
			svcStart := time.Now()
			err := ns.service.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
				return
			}
			l.logger.Info("service finished",
				zap.String("service", ns.name),
				zap.Duration("uptime", time.Since(svcStart)),
			)
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		l.logger.Info("all services finished")
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.Error(ctx.Err()))
	}

	cancel()
	l.shutdown(services, done)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (l *Lifecycle) shutdown(services []namedService, done []chan struct{}) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		svcStart := time.Now()
		<-done[i]
		l.logger.Info("service stopped",
			zap.String("service", services[i].name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
