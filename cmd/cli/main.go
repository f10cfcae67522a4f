package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"biometric/adapters/aggregation"
	"biometric/app"
	"biometric/domain/filter"
	"biometric/domain/report"
	"biometric/domain/selection"
	"biometric/internal/config"
	"biometric/internal/errors"
	"biometric/internal/logging"
	"biometric/ui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "biometric-cli",
		Short: "Biometric CLI for one-off statistical exports",
	}

	rootCmd.AddCommand(
		newExportCmd(),
		newServeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type exportOptions struct {
	session     string
	kind        string
	variables   []string
	methods     []string
	compareAll  bool
	segmentBy   string
	segment     string
	filters     []string
	logic       string
	percentiles []float64
	format      string
	scope       string
	outDir      string
	wait        time.Duration
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Request one table from the statistics service and write it as xlsx or pdf",
		Long: `Build a selection, request it once and export the result.

The file is written to a temporary name and renamed when complete, so a
failed export never leaves a partial file behind.

Example: biometric-cli export --session abc --variables age,bmi,glucose --segment-by arm \
  --filter "age>=40" --format pdf --scope all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "Dataset session id (required)")
	cmd.Flags().StringVar(&opts.kind, "kind", string(selection.KindCorrelation), "View kind: correlation, smart_table or frequency")
	cmd.Flags().StringSliceVar(&opts.variables, "variables", nil, "Variables to analyze")
	cmd.Flags().StringSliceVar(&opts.methods, "methods", nil, "Correlation methods: pearson, spearman, kendall")
	cmd.Flags().BoolVar(&opts.compareAll, "compare-all", false, "Compare every correlation method")
	cmd.Flags().StringVar(&opts.segmentBy, "segment-by", "", "Categorical column to segment by")
	cmd.Flags().StringVar(&opts.segment, "segment", "", "Active segment for active/segment scopes (default: first)")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, `Filter rule such as "age>=40" (repeatable)`)
	cmd.Flags().StringVar(&opts.logic, "logic", string(filter.And), "How filter rules combine: AND or OR")
	cmd.Flags().Float64SliceVar(&opts.percentiles, "percentiles", nil, "Extra percentiles for smart tables")
	cmd.Flags().StringVar(&opts.format, "format", string(app.FormatExcel), "Output format: xlsx or pdf")
	cmd.Flags().StringVar(&opts.scope, "scope", string(report.ScopeActive), "Export scope: active, segment or all")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Output directory (default: EXPORT_DIR)")
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "Give up after this long (default: aggregation timeout plus 5s)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, opts exportOptions) error {
	appConfig, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	kind, err := selection.ParseKind(opts.kind)
	if err != nil {
		return err
	}
	format, err := app.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	scope, err := report.ParseScope(opts.scope)
	if err != nil {
		return err
	}

	client := aggregation.NewClient(appConfig.Aggregation, aggregation.WithLogger(logger))
	v := app.NewViewController(client, kind, opts.session, app.ViewOptions{Logger: logger})
	defer v.Close()

	if err := configureView(v, opts); err != nil {
		return err
	}

	wait := opts.wait
	if wait <= 0 {
		wait = appConfig.Aggregation.Timeout + 5*time.Second
	}
	vm, err := awaitResult(ctx, v, wait)
	if err != nil {
		return err
	}
	if opts.segment != "" && !v.SelectSegment(opts.segment) {
		return errors.InvalidInput(fmt.Sprintf("segment %q is not in the result (have %s)", opts.segment, strings.Join(vm.Segments, ", ")))
	}

	artifact, err := v.Export(format, scope)
	if err != nil {
		return err
	}

	dir := opts.outDir
	if dir == "" {
		dir = appConfig.Export.Dir
	}
	path, err := writeAtomic(dir, artifact)
	if err != nil {
		return err
	}

	logger.Info("export written", zap.String("path", path), zap.Int("bytes", len(artifact.Data)))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// configureView applies the flags as the same mutations the UI sends
func configureView(v *app.ViewController, opts exportOptions) error {
	if len(opts.methods) > 0 {
		methods := make([]selection.Method, 0, len(opts.methods))
		for _, raw := range opts.methods {
			m, err := selection.ParseMethod(raw)
			if err != nil {
				return err
			}
			methods = append(methods, m)
		}
		if err := v.SetMethods(methods); err != nil {
			return err
		}
	}
	if opts.compareAll {
		if err := v.CompareAllMethods(); err != nil {
			return err
		}
	}
	if opts.segmentBy != "" {
		if err := v.SetSegmentBy(opts.segmentBy); err != nil {
			return err
		}
	}
	if len(opts.percentiles) > 0 {
		if err := v.SetCustomPercentiles(opts.percentiles); err != nil {
			return err
		}
	}

	if len(opts.filters) > 0 {
		mode, err := filter.ParseCombineMode(opts.logic)
		if err != nil {
			return err
		}
		for _, raw := range opts.filters {
			rule, err := parseFilter(raw)
			if err != nil {
				return err
			}
			added, err := v.AddFilterRule(rule.Column)
			if err != nil {
				return err
			}
			if err := v.UpdateFilterRule(added.ID, filter.FieldOperator, rule.Operator.String()); err != nil {
				return err
			}
			if err := v.UpdateFilterRule(added.ID, filter.FieldValue, strconv.FormatFloat(rule.Value, 'g', -1, 64)); err != nil {
				return err
			}
		}
		if err := v.SetCombineMode(mode); err != nil {
			return err
		}
		if err := v.SetFiltersEnabled(true); err != nil {
			return err
		}
	}

	return v.SetVariables(opts.variables)
}

var filterPattern = regexp.MustCompile(`^\s*([^\s=<>!≠≥≤]+)\s*(==|!=|>=|<=|=|>|<|≠|≥|≤)\s*(\S+)\s*$`)

// parseFilter reads "column op value"
func parseFilter(raw string) (filter.Rule, error) {
	m := filterPattern.FindStringSubmatch(raw)
	if m == nil {
		return filter.Rule{}, errors.InvalidInput(fmt.Sprintf("cannot parse filter %q, expected e.g. age>=40", raw))
	}
	op, err := filter.ParseOperator(m[2])
	if err != nil {
		return filter.Rule{}, err
	}
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return filter.Rule{}, errors.InvalidInput(fmt.Sprintf("filter value %q is not a number", m[3]))
	}
	return filter.Rule{Column: m[1], Operator: op, Value: value}, nil
}

// awaitResult sends the selection immediately and blocks until a result or
// an error is published
func awaitResult(ctx context.Context, v *app.ViewController, wait time.Duration) (app.ViewModel, error) {
	if err := v.Snapshot().Selection.Validate(); err != nil {
		return app.ViewModel{}, err
	}
	if err := v.Refresh(); err != nil {
		return app.ViewModel{}, err
	}

	updates, unsubscribe := v.Subscribe()
	defer unsubscribe()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case vm, ok := <-updates:
			if !ok {
				return app.ViewModel{}, app.ErrViewClosed
			}
			switch {
			case vm.Error != "":
				return vm, errors.New(vm.ErrorCode, vm.Error)
			case vm.Loading || vm.Pending:
				continue
			case vm.HasResult:
				return vm, nil
			default:
				return vm, errors.InvalidInput("the selection was not sent")
			}
		case <-timer.C:
			return app.ViewModel{}, errors.Timeout(fmt.Sprintf("no result after %s", wait), nil)
		case <-ctx.Done():
			return app.ViewModel{}, errors.Cancelled(ctx.Err())
		}
	}
}

// writeAtomic writes to a temporary file in dir and renames it into place
func writeAtomic(dir string, artifact *app.Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.ExportError("cannot create output directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", errors.ExportError("cannot create temporary file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		return "", errors.ExportError("cannot write export", err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.ExportError("cannot write export", err)
	}

	path := filepath.Join(dir, artifact.Filename)
	if err := os.Rename(tmpName, path); err != nil {
		return "", errors.ExportError("cannot move export into place", err)
	}
	return path, nil
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI against the configured statistics service",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				appConfig.Server.Port = port
			}
			logger, err := logging.New(appConfig.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := aggregation.NewClient(appConfig.Aggregation, aggregation.WithLogger(logger))
			registry := app.NewRegistry(client, app.NewExportService(logger), appConfig.Debounce, logger)
			server, err := ui.NewServer(registry, appConfig.Server, logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), ":"+appConfig.Server.Port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default: PORT)")
	return cmd
}
