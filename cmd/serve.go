package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/config"
	"github.com/alamayub/omagle-clone/internal/metrics"
	"github.com/alamayub/omagle-clone/internal/server"
	"github.com/alamayub/omagle-clone/internal/signaling"
)

const shutdownTimeout = 10 * time.Second

var (
	flagConfigFile         string
	flagListen             string
	flagAllowedOrigins     string
	flagNegotiationTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pairing and signaling relay",
	Long: `Run the relay: websocket signaling on /ws, a health check on /health,
a JSON snapshot on /stats and Prometheus metrics on /metrics.

Examples:
  omagle serve
  omagle serve --listen :9000 --origins https://chat.example.com
  omagle serve --config relay.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(config.ServerOptions{
			ConfigFile:         flagConfigFile,
			Listen:             flagListen,
			AllowedOrigins:     flagAllowedOrigins,
			NegotiationTimeout: flagNegotiationTimeout,
		})
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, zap.L())
	},
}

func serve(ctx context.Context, cfg *config.ServerConfig, log *zap.Logger) error {
	m := metrics.New()
	hub := signaling.NewHub(cfg.RelayOptions(log.Named("signaling"), m))

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer func() {
		stopHub()
		<-hub.Done()
	}()
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: server.NewMux(hub, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Client:         cfg.ClientOptions(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting signaling server",
			zap.String("addr", cfg.Listen),
			zap.Strings("allowed_origins", cfg.AllowedOrigins),
			zap.Duration("negotiation_timeout", cfg.Signaling.NegotiationTimeout))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", cfg.Listen, err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagConfigFile, "config", "c", "", "YAML config file")
	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVarP(&flagAllowedOrigins, "origins", "o", "", "Comma separated allowed websocket origins")
	serveCmd.Flags().DurationVar(&flagNegotiationTimeout, "negotiation-timeout", 0, "End sessions that do not finish negotiating in time (0 disables)")
}
