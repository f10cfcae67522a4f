package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"biometric/adapters/aggregation"
	"biometric/app"
	"biometric/internal/config"
	"biometric/internal/logging"
	"biometric/internal/testkit"
	"biometric/ui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "biometric-dev",
		Short: "Biometric development tools",
	}

	rootCmd.AddCommand(
		newUpCmd(),
		newAggregatorCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cohortFlags struct {
	sessions []string
	rows     int
	seed     int64
	missing  float64
}

func (f *cohortFlags) register(cmd *cobra.Command, defaultRows int) {
	cmd.Flags().StringSliceVar(&f.sessions, "sessions", []string{"demo"}, "Session ids to generate a cohort for")
	cmd.Flags().IntVar(&f.rows, "rows", defaultRows, "Rows per cohort")
	cmd.Flags().Int64Var(&f.seed, "seed", testkit.DefaultCohortConfig().Seed, "Base random seed; each session adds its index")
	cmd.Flags().Float64Var(&f.missing, "missing-rate", testkit.DefaultCohortConfig().MissingRate, "Share of missing numeric values")
}

// aggregator builds the fake service with one synthetic cohort per session.
// DEV_SAMPLE_ROWS applies unless --rows was given.
func (f *cohortFlags) aggregator(cmd *cobra.Command, appConfig *config.Config, logger *zap.Logger) *testkit.Aggregator {
	if !cmd.Flags().Changed("rows") && appConfig.Dev.SampleRows > 0 {
		f.rows = appConfig.Dev.SampleRows
	}
	agg := testkit.NewAggregator(logger)
	for i, session := range f.sessions {
		agg.AddSession(session, testkit.GenerateCohort(testkit.CohortConfig{
			Rows:        f.rows,
			Seed:        f.seed + int64(i),
			MissingRate: f.missing,
		}))
	}
	return agg
}

func setup() (*config.Config, *zap.Logger, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		return nil, nil, err
	}
	return appConfig, logger, nil
}

func newUpCmd() *cobra.Command {
	var cohorts cohortFlags

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run the fake statistics service and the UI together",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			agg := cohorts.aggregator(cmd, appConfig, logger)
			aggAddr := ":" + appConfig.Dev.AggregatorPort
			appConfig.Aggregation.BaseURL = "http://localhost" + aggAddr + "/api/v1"

			client := aggregation.NewClient(appConfig.Aggregation, aggregation.WithLogger(logger))
			registry := app.NewRegistry(client, app.NewExportService(logger), appConfig.Debounce, logger)
			server, err := ui.NewServer(registry, appConfig.Server, logger)
			if err != nil {
				return err
			}

			logger.Info("development stack starting",
				zap.Strings("sessions", cohorts.sessions),
				zap.String("ui", "http://localhost:"+appConfig.Server.Port),
				zap.String("aggregation", appConfig.Aggregation.BaseURL))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return agg.Run(ctx, aggAddr) })
			g.Go(func() error { return server.Run(ctx, ":"+appConfig.Server.Port) })
			return g.Wait()
		},
	}

	cohorts.register(cmd, config.Default().Dev.SampleRows)
	return cmd
}

func newAggregatorCmd() *cobra.Command {
	var cohorts cohortFlags

	cmd := &cobra.Command{
		Use:   "aggregator",
		Short: "Run only the fake statistics service",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return cohorts.aggregator(cmd, appConfig, logger).Run(cmd.Context(), ":"+appConfig.Dev.AggregatorPort)
		},
	}

	cohorts.register(cmd, config.Default().Dev.SampleRows)
	return cmd
}
