// Command aaaserver wires the state registry to the admin HTTP API and
// a separate health/metrics router, adapted from walletserver/main.go.
// Unlike the single-router wallet server, aaaserver runs two listeners
// concurrently under an errgroup.Group so either one failing brings
// the process down cleanly.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"synnergy-aaa/core"
	"synnergy-aaa/httpadmin/controllers"
	"synnergy-aaa/httpadmin/health"
	"synnergy-aaa/httpadmin/routes"
	"synnergy-aaa/pkg/config"
	"synnergy-aaa/pkg/metrics"
)

const shutdownGrace = 5 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AAA_ENV"))
	if err != nil {
		logrus.WithError(err).Warn("falling back to environment-variable configuration")
		cfg = config.LoadFromEnv()
	}
	if level, lerr := logrus.ParseLevel(cfg.Logging.Level); lerr == nil {
		logrus.SetLevel(level)
	}

	freezeHist, err := metrics.NewFreezeDurationHistogram(prometheus.DefaultRegisterer)
	if err != nil {
		logrus.WithError(err).Fatal("registering freeze duration histogram")
	}

	registry := core.New(core.Config{
		ThreadSafe:     cfg.StateEngine.ThreadSafe,
		MaxSessions:    cfg.StateEngine.MaxSessions,
		Timeout:        cfg.StateEngine.Timeout,
		ServerID:       cfg.StateEngine.ServerID,
		ContextID:      cfg.StateEngine.ContextID,
		StateAttribute: cfg.StateEngine.StateAttribute,
		OnFreeze:       func(d time.Duration) { freezeHist.Observe(d.Seconds()) },
	})

	if _, err := metrics.NewStateMetrics(registry, prometheus.DefaultRegisterer); err != nil {
		logrus.WithError(err).Fatal("registering metrics")
	}

	adminRouter := mux.NewRouter()
	routes.Register(adminRouter, controllers.NewStateController(registry))
	adminServer := &http.Server{Addr: cfg.HTTP.AdminAddr, Handler: adminRouter}

	healthServer := &http.Server{Addr: cfg.HTTP.HealthAddr, Handler: health.NewRouter(registry)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(gctx, "admin", adminServer) })
	g.Go(func() error { return serve(gctx, "health", healthServer) })

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("aaaserver exited")
	}
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, name string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("%s server listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
