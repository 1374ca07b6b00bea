package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"energyadmin/internal"
	"energyadmin/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Listen serves /metrics on its own address until ctx is done
func Listen(ctx context.Context, conf *config.Config, logger internal.LogHandler) error {
	if !conf.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	address := conf.Metrics.BindIP + ":" + conf.Metrics.Port
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if logger != nil {
		logger.Debug("starting metrics server on " + address)
	}
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
