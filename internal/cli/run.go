package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sealcheck.io/sealcheck/internal/config"
	"sealcheck.io/sealcheck/internal/group"
	"sealcheck.io/sealcheck/internal/harness"
	"sealcheck.io/sealcheck/internal/identity"
	"sealcheck.io/sealcheck/internal/oracle"
	"sealcheck.io/sealcheck/internal/pkg/logger"
	"sealcheck.io/sealcheck/internal/plan"
	"sealcheck.io/sealcheck/internal/probe"
	"sealcheck.io/sealcheck/internal/report"
	"sealcheck.io/sealcheck/internal/topology"
)

// RunOptions holds flags specific to the run command.
type RunOptions struct {
	PlanPath         string
	RunID            string
	CheckDeterminism bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a verification plan against the platform",
		Long: `Execute a verification plan: create every declared privacy group,
probe the full identity x group x operation matrix, and report the verdict.

Exit codes: 0 clean, 1 breach or inconclusive results, 2 harness failure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerification(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PlanPath, "plan", "", "path to the plan YAML file (required)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run identifier (default: random UUID); fixed IDs make re-runs comparable")
	cmd.Flags().BoolVar(&opts.CheckDeterminism, "check-determinism", false, "issue a duplicate read per cell and flag divergence")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runVerification(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) error {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if rootOpts.Verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	pl, err := plan.Load(opts.PlanPath)
	if err != nil {
		return err
	}
	for _, name := range pl.Identities() {
		if _, ok := cfg.Identities[name]; !ok {
			return fmt.Errorf("plan member %q has no identity assignment in config", name)
		}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	domainName := cfg.Platform.Domain
	if pl.Domain != "" {
		domainName = pl.Domain
	}

	logger.Info("verification run starting",
		zap.String("run_id", runID),
		zap.String("plan", pl.Name),
		zap.String("domain", domainName),
		zap.Int("groups", len(pl.Groups)),
	)

	topo := topology.New(cfg.DomainNodes(), cfg.Timeouts.Connect, cfg.Timeouts.Request)
	topo.Connect(ctx)

	registry := identity.NewRegistry(topo)
	if err := registry.ResolveAll(ctx, cfg.Identities); err != nil {
		return fmt.Errorf("resolve identities: %w", err)
	}

	manager := group.NewManager(topo, domainName, group.Timeouts{
		PollInterval:    cfg.Timeouts.PollInterval,
		ReadyTimeout:    cfg.Timeouts.Ready,
		ReceiptInterval: cfg.Timeouts.ReceiptInterval,
		ReceiptTimeout:  cfg.Timeouts.Receipt,
	})
	proxy := probe.NewProxy(topo, cfg.Timeouts.ReceiptInterval, cfg.Timeouts.Receipt)

	var metrics *report.Metrics
	if cfg.Metrics.Enabled {
		metrics = report.NewMetrics()
		shutdown := serveMetrics(cfg.Metrics.Addr, metrics)
		defer shutdown()
	}

	orch := harness.New(registry, manager, oracle.New(), proxy, harness.Options{
		RunID:            runID,
		Workers:          cfg.Worker.GroupPoolSize,
		CheckDeterminism: opts.CheckDeterminism,
		Metrics:          metrics,
	})

	specs := make([]harness.GroupSpec, len(pl.Groups))
	for i, g := range pl.Groups {
		specs[i] = harness.GroupSpec{Name: g.Name, Members: g.Members}
	}

	r, err := orch.Run(ctx, specs)
	if err != nil {
		return fmt.Errorf("run harness: %w", err)
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		err = r.WriteJSON(out)
	} else {
		err = r.WriteText(out)
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	logger.Info("verification run finished",
		zap.String("run_id", runID),
		zap.Int("cases", len(r.Cases)),
		zap.Int("breaches", r.Summary.Breach),
		zap.Int("inconclusive", r.Summary.Inconclusive),
		zap.Bool("clean", r.Clean()),
	)

	if code := r.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// serveMetrics starts the scrape listener and returns its shutdown hook.
// Listener failures are logged, never fatal: metrics are excluded from the
// verdict and exit-code contract.
func serveMetrics(addr string, m *report.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("metrics listener started", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
