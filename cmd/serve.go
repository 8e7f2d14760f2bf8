package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lhttp "lockerslot/http"
	"lockerslot/ml"
)

func newServeCmd() *cobra.Command {
	var port int
	var modelPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("port") {
				cfg.Http.Port = port
			}
			if cmd.Flags().Changed("model-path") {
				cfg.Model.Path = modelPath
			}

			model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
			if err != nil {
				return fmt.Errorf("load model %s: %w", cfg.Model.Path, err)
			}
			logger.Info("model loaded", zap.String("type", cfg.Model.Type), zap.String("path", cfg.Model.Path))

			var registry *prometheus.Registry
			if cfg.Http.MetricsEnabled {
				registry = prometheus.NewRegistry()
				registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			}

			server, err := lhttp.NewServer(lhttp.ServerConfig{
				Port:         cfg.Http.Port,
				Timeout:      cfg.Http.Timeout,
				MaxBodyBytes: cfg.Http.MaxBodyBytes,
			}, lhttp.NewHandler(model, logger), logger, registry)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	cmd.Flags().StringVar(&modelPath, "model-path", "", "model artifact to load")
	return cmd
}
