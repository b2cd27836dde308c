/*
main.go - Application entry point

PURPOSE:
  The `results` CLI wraps the analysis pipeline and the report server.
  Handles flag parsing, logger setup, and graceful shutdown.

COMMANDS:
  results run    One-shot pipeline: ingest the session export, publish
                 the audit tables and run log
  results serve  Read-only HTTP server over a published output directory

EXIT CODES:
  run: 0 on success, including runs with per-record warnings; nonzero
  only when the input document cannot be understood at all or the
  registry configuration is invalid. Partial per-record problems never
  change the exit code - they are documented in the run log.

EXAMPLES:
  # Audit-only run with defaults
  results run --input sections_plus_transcriptions.json

  # Full paper output set, plus a SQLite copy of the audit tables
  results run --input export.json --outdir outputs --paper-mode --db audit.db

  # Serve published tables to the reporting notebook
  results serve --outdir outputs --port 8080

SEE ALSO:
  - pipeline/pipeline.go: The run itself
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tz5/results-engine/api"
	"github.com/tz5/results-engine/pipeline"
	"github.com/tz5/results-engine/study"
)

func main() {
	root := &cobra.Command{
		Use:           "results",
		Short:         "TZ5 survey tidy-transform and audit pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = nil
	return cfg.Build()
}

func newRunCmd() *cobra.Command {
	var opts pipeline.Options
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline and publish the audit tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if _, err := pipeline.Run(opts, logger); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.InputPath, "input", "", "input JSON session export (required)")
	cmd.Flags().StringVar(&opts.OutDir, "outdir", "outputs", "output directory")
	cmd.Flags().StringVar(&opts.RegistryPath, "registry", "", "YAML registry override")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "optional SQLite sink path")
	cmd.Flags().BoolVar(&opts.PaperMode, "paper-mode", false, "emit the full paper table set")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cmd.MarkFlagRequired("input")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		outDir       string
		registryPath string
		port         int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve published tables over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			reg, err := study.LoadRegistry(registryPath)
			if err != nil {
				return err
			}

			handler := api.NewHandler(outDir, reg)
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      api.NewRouter(handler),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("report server starting",
					zap.Int("port", port), zap.String("outdir", outDir))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errc:
				return err
			case <-quit:
			}

			logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&outDir, "outdir", "outputs", "published output directory")
	cmd.Flags().StringVar(&registryPath, "registry", "", "YAML registry override")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	return cmd
}
