/*
main.go - Application entry point

PURPOSE:
  The brickworks ledger engine CLI. Subcommands:

    serve     HTTP server with the batch-run scheduler and graceful
              shutdown (SIGINT/SIGTERM, 30s drain)
    seed      Load a named demo scenario into the database
    payroll   Run a bulk payroll for a period from the command line

CONFIGURATION:
  config.Load() reads .env then the environment (PORT, DB_PATH,
  LOG_LEVEL, LOG_FORMAT, BATCH_WORKERS, SCHEDULER_INTERVAL,
  ATTENDANCE_CRON, TZ_LOCATION); flags override.

EXAMPLES:
  server serve --port 3000 --db ./data/brickworks.db
  server seed brickworks-week
  server payroll --from 2026-08-17 --to 2026-08-22 --method cash --date 2026-08-23

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background batch runs
  - config/config.go: Environment configuration
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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brickworks/ledger-engine/api"
	"github.com/brickworks/ledger-engine/config"
	"github.com/brickworks/ledger-engine/factory"
	"github.com/brickworks/ledger-engine/ledger"
	"github.com/brickworks/ledger-engine/logger"
	"github.com/brickworks/ledger-engine/store/sqlite"
)

var (
	flagPort       int
	flagDBPath     string
	flagLogLevel   string
	flagPolicyFile string
)

func main() {
	root := &cobra.Command{
		Use:   "server",
		Short: "Brickworks ledger engine: payroll and receivables reconciliation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().IntVar(&flagPort, "port", 0, "HTTP server port (overrides PORT)")
	root.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (overrides DB_PATH)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&flagPolicyFile, "policies", "", "JSON policy file (pay and tax rules)")

	root.AddCommand(serveCmd(), seedCmd(), payrollCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, sets up logging, opens the store, and wires
// the handler. Every subcommand starts here.
func bootstrap() (config.Config, *sqlite.Store, *api.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	if err := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return cfg, nil, nil, err
	}

	policies, err := factory.NewPolicyFactory().LoadPolicies(flagPolicyFile)
	if err != nil {
		return cfg, nil, nil, err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("open database: %w", err)
	}

	// Single-operator deployment: the process owner is the admin. Real
	// identity providers plug in through the Authorizer port.
	auth := ledger.NewStaticAuthorizer(ledger.User{ID: "local", Name: "operator", Role: ledger.RoleAdmin})

	handler := api.NewHandler(store, auth, policies, cfg.BatchWorkers)
	return cfg, store, handler, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, handler, err := bootstrap()
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("resolve timezone: %w", err)
			}

			scheduler := api.NewBatchScheduler(store, handler, cfg.SchedulerInterval)
			if err := scheduler.ScheduleAttendanceCron(cfg.AttendanceCron, loc); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			router := api.NewRouter(handler, logger.WithComponent("http"))
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("server starting")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <scenario>",
		Short: "Load a named demo scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, handler, err := bootstrap()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := handler.LoadScenarioByName(cmd.Context(), args[0]); err != nil {
				return err
			}
			log.Info().Str("scenario", args[0]).Msg("seeded")
			return nil
		},
	}
}

func payrollCmd() *cobra.Command {
	var from, to, method, payDate, candidateDate string

	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Run a bulk payroll for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, handler, err := bootstrap()
			if err != nil {
				return err
			}
			defer store.Close()

			if payDate == "" {
				payDate = ledger.Today().String()
			}
			result, err := handler.RunBulkPayroll(cmd.Context(), from, to, candidateDate, method, payDate)
			if err != nil {
				return err
			}

			for _, item := range result.Succeeded {
				fmt.Printf("ok    %-12s %s\n", item.ID, item.Detail)
			}
			for _, item := range result.Failed {
				fmt.Printf("FAIL  %-12s [%s] %s\n", item.ID, item.Kind, item.Detail)
			}
			fmt.Printf("%d succeeded, %d failed\n", len(result.Succeeded), len(result.Failed))
			if !result.AllSucceeded() {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&candidateDate, "date", "", "candidate day (defaults to period end)")
	cmd.Flags().StringVar(&method, "method", "cash", "payment method: cash, bank, upi")
	cmd.Flags().StringVar(&payDate, "date-paid", "", "payment date (defaults to today)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}
