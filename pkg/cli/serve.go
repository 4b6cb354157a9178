package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/cli/config"
	controller "github.com/mkurata/docship/pkg/controller/http"
	"github.com/mkurata/docship/pkg/infra/artifact"
	"github.com/mkurata/docship/pkg/infra/gitops"
	"github.com/mkurata/docship/pkg/infra/metrics"
	"github.com/mkurata/docship/pkg/infra/notify"
	"github.com/mkurata/docship/pkg/infra/script"
	"github.com/mkurata/docship/pkg/infra/toolchain"
	"github.com/mkurata/docship/pkg/usecase"
	"github.com/mkurata/docship/pkg/utils/async"
)

func cmdServe() *cli.Command {
	var (
		serverCfg   config.Server
		githubCfg   config.GitHub
		workflowCfg config.Workflow
		storeCfg    config.Store
		runnerCfg   config.Runner
		observeCfg  config.Observe
	)

	flags := serverCfg.Flags()
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, workflowCfg.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, runnerCfg.Flags()...)
	flags = append(flags, observeCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the webhook HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			flushSentry, err := observeCfg.InitSentry()
			if err != nil {
				return err
			}
			defer flushSentry()

			workflow, err := workflowCfg.Load()
			if err != nil {
				return err
			}

			store, closeStore, err := storeCfg.Build(ctx)
			if err != nil {
				return err
			}
			if closeStore != nil {
				defer func() {
					if err := closeStore(); err != nil {
						logger.Warn("Failed to close run store", slog.Any("error", err))
					}
				}()
			}

			reporter, err := githubCfg.StatusReporter()
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			pipelineOpts := []usecase.PipelineOption{
				usecase.WithMetrics(metrics.New(registry)),
				usecase.WithRunTimeout(runnerCfg.RunTimeout),
			}
			if runnerCfg.WorkspaceRoot != "" {
				pipelineOpts = append(pipelineOpts, usecase.WithWorkspaceRoot(runnerCfg.WorkspaceRoot))
			}
			if reporter != nil {
				pipelineOpts = append(pipelineOpts, usecase.WithStatusReporter(reporter))
			}
			if observeCfg.SlackWebhookURL != "" {
				pipelineOpts = append(pipelineOpts,
					usecase.WithNotifier(notify.NewSlackNotifier(observeCfg.SlackWebhookURL)))
			}
			if observeCfg.ArtifactBucket != "" {
				artifacts, err := artifact.NewGCSStore(ctx, observeCfg.ArtifactBucket)
				if err != nil {
					return err
				}
				defer artifacts.Close()
				pipelineOpts = append(pipelineOpts, usecase.WithArtifactStore(artifacts))
			}

			gitClient := gitops.NewClient(githubCfg.Token)
			pipelineUC := usecase.NewPipeline(
				workflow,
				gitClient,
				toolchain.NewRustupInstaller(),
				script.NewRunner(),
				gitClient,
				store,
				pipelineOpts...,
			)

			dispatcher := async.NewDispatcher()
			webhookUC := usecase.NewWebhook(workflow, pipelineUC, dispatcher)

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithWorkflowName(workflow.Name),
				controller.WithRunStore(store),
				controller.WithMetrics(registry),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting",
					slog.String("addr", serverCfg.Addr),
					slog.String("workflow", workflow.Name),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Let in-flight runs finish; their own run timeout still applies
			drainCtx, cancelDrain := context.WithTimeout(ctxlog.With(context.Background(), logger), runnerCfg.RunTimeout+time.Minute)
			defer cancelDrain()
			if err := dispatcher.Wait(drainCtx); err != nil {
				logger.Warn("Shutdown before all runs finished", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
