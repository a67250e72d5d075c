// Spins up the flow-field roster server, compatible w/ the Redis protocol.

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/jessonx/flow-field/pkg/config"
	"github.com/jessonx/flow-field/pkg/port"
	"github.com/jessonx/flow-field/pkg/registry"
	"github.com/jessonx/flow-field/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	printVersion   = flag.Bool("print_version", false, "Print the version and exit.")
	metricsAddress = flag.String("metrics_address", "",
		"The ip:port to expose Prometheus metrics on; empty disables the endpoint.")
)

func main() {
	config.InitFlags()
	utils.InitLogging()

	if *printVersion {
		slog.Info("Flow-field build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, os.Kill)

	go func() { // Listen for OS interrupts in the background.
		sig := <-signals
		slog.Info("Received termination signal, cancelling server context.", "signal", sig)
		cancel()
	}()

	if *metricsAddress != "" { // Expose /metrics for Prometheus scraping.
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddress, nil); err != nil {
				slog.Error("Metrics endpoint stopped.", "error", err)
			}
		}()
	}

	rosters := registry.New(slog.Default())
	if err := port.RunRedisServer(ctx, rosters); err != nil {
		slog.Error("Flow-field server stopped.", "err", err)
		os.Exit(1)
	}
}
