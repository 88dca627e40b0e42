// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/scenario"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Run starts a node, runs the scenarios in order and stops. With hold set,
// the node keeps serving metrics after the scenarios until it is interrupted
func Run(
	cfg *config.Config,
	logger *slog.Logger,
	scenarios []*scenario.Scenario,
	hold bool,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ParseShutdownTimeout()
	if err != nil {
		return err
	}
	g, err := gavel.New(
		gavel.NewConfig(
			gavel.WithLogger(logger),
			gavel.WithDatabasePath(cfg.DatabasePath),
			gavel.WithEventQueueSize(cfg.EventQueueSize),
			gavel.WithShutdownTimeout(shutdownTimeout),
			// Enable metrics with default prometheus registry
			gavel.WithPrometheusRegistry(prometheus.DefaultRegisterer),
			gavel.WithTracing(cfg.Tracing),
			gavel.WithTracingStdout(cfg.TracingStdout),
			gavel.WithTracingEndpoint(cfg.TracingEndpoint),
		),
	)
	if err != nil {
		return err
	}
	// Metrics listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		metricsServer = newMetricsServer(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort),
		)
		logger.Info(
			"serving prometheus metrics on "+metricsServer.Addr,
			"component",
			"node",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
			}
		}()
	}
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}()

	// Scenarios and the hold period end early on interrupt/termination
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	if err := g.Start(); err != nil {
		if stopErr := g.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}
		return err
	}
	runErr := runScenarios(signalCtx, g, logger, scenarios)
	if runErr == nil && hold {
		logger.Info(
			"scenarios complete, waiting for interrupt",
			"component", "node",
		)
		<-signalCtx.Done()
	}
	if err := g.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return errors.Join(runErr, err)
	}
	logger.Info("shutdown complete")
	return runErr
}

func runScenarios(
	ctx context.Context,
	g *gavel.Node,
	logger *slog.Logger,
	scenarios []*scenario.Scenario,
) error {
	for _, s := range scenarios {
		result, err := g.RunScenario(ctx, s)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		var logs int
		for _, step := range result.Steps {
			logs += len(step.Logs)
		}
		logger.Info(
			fmt.Sprintf("scenario %q complete", s.Name),
			"component", "node",
			"steps", len(result.Steps),
			"logs", logs,
			"block", g.Chain().BlockNumber(),
		)
	}
	return nil
}

// newMetricsServer builds the listener for prometheus metrics and the gRPC
// health service
func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1(
			grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1Alpha(
			grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName),
			compress1KB,
		),
	)
	return &http.Server{
		Addr: addr,
		// Use h2c so health checks can use HTTP/2 without TLS
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
