package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/cli/config"
	httpctrl "github.com/secmon-lab/tickerchat/pkg/controller/http"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var fileCfg config.File
	var repoCfg config.Repository
	var providerCfg config.Providers
	var marketCfg config.Market
	var authCfg config.Auth
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TICKERCHAT_ADDR"),
			Destination: &addr,
		},
	}

	flags = append(flags, fileCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, providerCfg.Flags()...)
	flags = append(flags, marketCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Serve configuration",
				"addr", addr,
				"repository", repoCfg,
				"providers", providerCfg,
				"market", marketCfg,
				"auth", authCfg,
				"sentry", sentryCfg,
			)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			appCfg, err := fileCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration file")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			providers, err := providerCfg.Configure(ctx, appCfg)
			if err != nil {
				return goerr.Wrap(err, "failed to configure generation providers")
			}
			for _, p := range providers.Chain {
				attempt := p.Attempt()
				logger.Info("Generation provider",
					"name", attempt.Name,
					"protocol", attempt.Protocol,
					"model", attempt.Model,
					"credential", attempt.CredentialPresent,
				)
			}

			sources, err := marketCfg.Configure(appCfg)
			if err != nil {
				return goerr.Wrap(err, "failed to configure market sources")
			}

			if sources.HeadlineWorker != nil {
				if err := sources.HeadlineWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start headline refresh worker")
				}
			}

			identity, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logger.Warn("Running in no-auth mode (development only)")
			}

			uc := usecase.New(repo,
				usecase.WithProviders(providers.Chain...),
				usecase.WithDistillers(providers.Distill, providers.DistillOptions...),
				usecase.WithMarketSources(sources.Quotes, sources.Headlines),
				usecase.WithSymbols(sources.Symbols),
				usecase.WithIdentity(identity),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc.Chat, httpctrl.WithIdentity(uc.Identity)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				if sources.HeadlineWorker != nil {
					sources.HeadlineWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
