package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/gateway"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/provider"
	"github.com/parleyhq/parley/internal/server"
	"github.com/parleyhq/parley/internal/storage"
	"github.com/parleyhq/parley/internal/vault"
	"github.com/parleyhq/parley/pkg/types"
)

var (
	servePort     int
	serveHostname string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Parley gateway server",
	Long: `Start Parley as an HTTP server exposing the thread, model,
credential, and generation endpoints.

The master secret for the credential vault comes from configuration or
the PARLEY_MASTER_SECRET environment variable.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Component("cli")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	appConfig, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		appConfig.Port = servePort
	}
	if serveHostname != "" {
		appConfig.Hostname = serveHostname
	}
	if !cmd.Root().PersistentFlags().Changed("log-level") && appConfig.LogLevel != "" {
		logging.Init(logging.Config{Level: appConfig.LogLevel, Output: os.Stderr, Pretty: prettyLog})
	}

	if appConfig.MasterSecret == "" {
		log.Warn().Msg("no master secret configured, credential operations will fail")
	}

	store := storage.New(appConfig.DataDir)
	chatSvc := chat.NewService(store)
	v := vault.New(appConfig.MasterSecret)
	registry := provider.NewRegistry(appConfig)
	gw := gateway.New(chatSvc, chatSvc, v, gateway.NewProviderResolver(registry))

	serverConfig := server.DefaultConfig()
	serverConfig.Hostname = appConfig.Hostname
	serverConfig.Port = appConfig.Port

	srv := server.New(serverConfig, appConfig, chatSvc, gw, v)

	// Pick up log level changes from the global config file without a
	// restart. Listen address changes still need one.
	watcher, err := config.NewWatcher(config.GlobalConfigPath(), func(updated *types.Config) {
		log.Info().Msg("configuration reloaded")
		if updated.LogLevel != "" {
			logging.Init(logging.Config{Level: updated.LogLevel, Output: os.Stderr, Pretty: prettyLog})
		}
	})
	if err == nil {
		watcher.Start()
		defer watcher.Stop()
	} else {
		log.Debug().Err(err).Msg("config watcher unavailable")
	}

	go func() {
		log.Info().
			Str("hostname", appConfig.Hostname).
			Int("port", appConfig.Port).
			Str("version", Version).
			Msg("server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}
