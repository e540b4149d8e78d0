package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/api"
	"github.com/wonny/finlab/internal/api/handlers"
	"github.com/wonny/finlab/internal/scheduler"
	"github.com/wonny/finlab/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health                    - Health check
  POST /api/ratios                - Ratio catalog for one period
  POST /api/dupont                - DuPont decomposition / attribution
  POST /api/cashflow              - Cash-flow reconstruction
  POST /api/analyze               - Full analysis
  POST /api/simulate              - Stress scenarios
  GET  /api/thresholds            - Active threshold table
  POST /api/thresholds/validate   - Validate a candidate table
  GET  /api/cases                 - Case studies
  GET  /api/cases/{id}            - One case study
  POST /api/cases/{id}/analyze    - Full analysis of a case

Example:
  go run ./cmd/fsa api
  go run ./cmd/fsa api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== finlab API Server ===")

	// 1. Config, logger, engine components
	eng, err := newEngine()
	if err != nil {
		return err
	}
	cfg, log := eng.cfg, eng.log

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":       cfg.Port,
		"env":        cfg.Env,
		"thresholds": eng.store.Path(),
		"table_hash": eng.store.Hash(),
	}).Info("Initializing API server")

	// 2. Create handlers
	engineHandler := handlers.NewEngineHandler(eng.store, eng.analyzer, eng.simulator, log)
	referenceHandler := handlers.NewReferenceHandler(eng.store, eng.cases, eng.analyzer, log)

	// 3. Create router
	router := api.NewRouter(engineHandler, referenceHandler, api.NewLimiter(cfg), log)

	// 4. Create server
	server := api.New(cfg, log, router)

	// 5. Threshold hot reload
	if cfg.Analysis.ThresholdsReload != "" {
		sched := scheduler.New(log)
		if err := sched.AddJob(jobs.NewThresholdReloadJob(eng.store, cfg.Analysis.ThresholdsReload, log)); err != nil {
			return fmt.Errorf("THRESHOLDS_RELOAD: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed start
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
