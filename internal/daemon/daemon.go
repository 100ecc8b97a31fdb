// Package daemon wires cobra, the YAML config loader, zap logging, and
// Prometheus metrics into a runnable SOCKS server for one protocol version.
// cmd/socks4d and cmd/socks5d are thin wrappers around Main.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socksd/internal/config"
	"socksd/internal/logging"
	"socksd/internal/metrics"
	"socksd/internal/socks"
)

// Main builds and runs the cobra command for one protocol version. It
// returns the process exit code.
func Main(version socks.Version, programName string, args []string) int {
	var (
		configPath  string
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:          programName + " <port>",
		Short:        fmt.Sprintf("SOCKS%s proxy daemon", version.String()),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			return run(cmd.Context(), version, cliArgs[0], configPath, metricsAddr, logLevel)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config describing multiple listeners")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on host:port")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "zap log level")

	cmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func run(ctx context.Context, version socks.Version, portArg, configPath, metricsAddr, logLevel string) error {
	logger, err := logging.New(logLevel)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	var sink metrics.Sink = metrics.Noop{}
	if metricsAddr != "" {
		sink = metrics.NewPrometheus(reg)
	}

	listeners, err := resolveListeners(portArg, configPath)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		g.Go(func() error {
			logger.Info("metrics_listen", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}

	for _, l := range listeners {
		l := l
		access, err := config.NewCIDRAccess(l.Allow)
		if err != nil {
			return err
		}
		srv := socks.NewServer(version,
			socks.WithLogger(logger),
			socks.WithMetrics(sink),
			socks.WithAccess(access),
		)
		addr := l.Addr()
		g.Go(func() error {
			logger.Info("listen", zap.String("addr", addr))
			return srv.ListenAndServe(gctx, addr)
		})
	}

	return g.Wait()
}

func resolveListeners(portArg, configPath string) ([]config.Listener, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return cfg.Listeners, nil
	}

	port, err := parsePort(portArg)
	if err != nil {
		return nil, err
	}
	return []config.Listener{{Port: port, Bind: "0.0.0.0"}}, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range (1-65535)", port)
	}
	return port, nil
}
