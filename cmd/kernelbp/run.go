package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/kernelbp/aggregate"
	"github.com/katalvlaran/kernelbp/config"
	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/kernelbp"
	"github.com/katalvlaran/kernelbp/loader"
	"github.com/katalvlaran/kernelbp/results"
)

// runFlags mirrors the config keys that may be overridden on the command line.
type runFlags struct {
	configPath    string
	graph         string
	output        string
	graphDir      string
	betaEpsilon   float64
	engine        string
	partitions    int
	maxSupersteps int
	timeout       time.Duration
	codec         bool
	metricsAddr   string
	storePath     string
	logLevel      string
	logFormat     string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run belief propagation to convergence and write the betas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			_, err = execute(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("run failed", slog.String("error", err.Error()))
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML or JSON configuration file")
	fl.StringVar(&f.graph, "graph", "", "graph definition file")
	fl.StringVar(&f.output, "output", "", "write \"source target beta...\" lines to this file")
	fl.StringVar(&f.graphDir, "graph-dir", "", "directory for relative matrix paths (default: the graph file's directory)")
	fl.Float64Var(&f.betaEpsilon, "beta-epsilon", 0, "convergence tolerance on the beta change")
	fl.StringVar(&f.engine, "engine", "", "engine mode: sync or async")
	fl.IntVar(&f.partitions, "partitions", 0, "number of vertex partitions")
	fl.IntVar(&f.maxSupersteps, "max-supersteps", 0, "stop after this many supersteps (0 = unbounded)")
	fl.DurationVar(&f.timeout, "timeout", 0, "abort the run after this duration (0 = unbounded)")
	fl.BoolVar(&f.codec, "codec", false, "gob-encode partial gathers between partitions")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address")
	fl.StringVar(&f.storePath, "store", "", "persist betas and run stats in a BadgerDB directory")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fl.StringVar(&f.logFormat, "log-format", "", "text or json")

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and the
// explicitly set flags, then validates the result.
func resolveConfig(cmd *cobra.Command, f runFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("graph", func() { cfg.Graph = f.graph })
	set("output", func() { cfg.Output = f.output })
	set("graph-dir", func() { cfg.GraphDir = f.graphDir })
	set("beta-epsilon", func() { cfg.BetaEpsilon = f.betaEpsilon })
	set("engine", func() { cfg.Engine = f.engine })
	set("partitions", func() { cfg.Partitions = f.partitions })
	set("max-supersteps", func() { cfg.MaxSupersteps = f.maxSupersteps })
	set("timeout", func() { cfg.Timeout = f.timeout })
	set("codec", func() { cfg.Codec = f.codec })
	set("metrics-addr", func() { cfg.Metrics.Addr = f.metricsAddr })
	set("store", func() { cfg.Store.Path = f.storePath })
	set("log-level", func() { cfg.Log.Level = f.logLevel })
	set("log-format", func() { cfg.Log.Format = f.logFormat })

	if err = cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	lvl, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// report is what one execute call produced.
type report struct {
	Stats    gas.Stats
	Summary  kernelbp.Summary
	Evidence kernelbp.Evidence
	Betas    map[kernelbp.EdgeKey][]float64
}

// execute loads the graph, runs the engine to convergence and writes the
// configured sinks.
func execute(ctx context.Context, cfg config.Config, logger *slog.Logger) (report, error) {
	var rep report

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, logger)
		defer stop()
	}

	g, err := loader.New(
		loader.WithBaseDir(cfg.GraphDir),
		loader.WithPartitions(cfg.Partitions),
		loader.WithLogger(logger),
	).LoadFile(cfg.Graph)
	if err != nil {
		return rep, err
	}

	ev, err := kernelbp.EvidenceReach(ctx, g)
	if err != nil {
		return rep, err
	}
	rep.Evidence = ev
	if len(ev.Unreached) > 0 {
		logger.Warn("vertices without a path to any observation",
			slog.Int("count", len(ev.Unreached)),
			slog.Any("ids", ev.Unreached),
		)
	}
	logger.Info("evidence reach",
		slog.Int("observed", len(ev.Observed)),
		slog.Int("max_depth", ev.Depth),
		slog.Bool("loopy", ev.Cycle != nil),
	)

	prog, err := kernelbp.NewProgram(cfg.BetaEpsilon, kernelbp.WithLogger(logger))
	if err != nil {
		return rep, err
	}
	mode, err := gas.ParseMode(cfg.Engine)
	if err != nil {
		return rep, err
	}

	summary := aggregate.NewShared(kernelbp.Summary{})
	mass, err := kernelbp.NewBeliefMass(summary)
	if err != nil {
		return rep, err
	}
	count, err := kernelbp.NewMessageCount(summary)
	if err != nil {
		return rep, err
	}
	mass.WithLogger(logger)
	count.WithLogger(logger)

	opts := []gas.Option{
		gas.WithLogger(logger),
		gas.WithMode(mode),
		gas.WithMaxSupersteps(cfg.MaxSupersteps),
		gas.WithMetrics(cfg.Metrics.Enabled),
		gas.WithAggregator(count.Bind(g), cfg.Aggregation.EverySupersteps),
		gas.WithAggregator(mass.Bind(g), cfg.Aggregation.EverySupersteps),
	}
	if cfg.Codec {
		opts = append(opts, gas.WithCodec(kernelbp.Codec()))
	}
	eng, err := kernelbp.NewEngine(g, prog, opts...)
	if err != nil {
		return rep, err
	}
	if err = eng.SignalAll(); err != nil {
		return rep, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	rep.Stats, err = runEngine(ctx, eng, mass.Bind(g), cfg.Aggregation.Interval, logger)
	if err != nil {
		return rep, err
	}
	rep.Summary = summary.Get()
	rep.Betas = kernelbp.CollectBetas(g)

	if err = writeResults(cfg, rep, logger); err != nil {
		return rep, err
	}
	logger.Info("belief propagation finished",
		slog.String("run_id", rep.Stats.RunID),
		slog.Int("supersteps", rep.Stats.Supersteps),
		slog.Int("edges", len(rep.Betas)),
		slog.Float64("belief_mass", rep.Summary.BeliefMass),
		slog.Int("messages", rep.Summary.Messages),
	)

	return rep, nil
}

type runner interface {
	Run(ctx context.Context) (gas.Stats, error)
}

// runEngine runs eng and, when interval > 0, the periodic aggregation
// alongside it until the engine halts.
func runEngine(ctx context.Context, eng runner, periodic aggregate.Periodic, interval time.Duration, logger *slog.Logger) (gas.Stats, error) {
	if interval <= 0 {
		return eng.Run(ctx)
	}

	var stats gas.Stats
	tickCtx, stopTicker := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(tickCtx)
	eg.Go(func() error {
		return aggregate.Every(egCtx, interval, periodic, logger)
	})
	eg.Go(func() error {
		defer stopTicker()
		var err error
		stats, err = eng.Run(egCtx)
		return err
	})
	err := eg.Wait()
	stopTicker()

	return stats, err
}

func writeResults(cfg config.Config, rep report, logger *slog.Logger) error {
	if cfg.Output != "" {
		if err := results.WriteFile(cfg.Output, rep.Betas); err != nil {
			return err
		}
		logger.Info("betas written", slog.String("path", cfg.Output))
	}
	if !cfg.Store.Enabled() {
		return nil
	}

	sc := results.DefaultConfig(cfg.Store.Path)
	if cfg.Store.InMemory {
		sc = results.InMemoryConfig()
	}
	sc.Logger = logger
	store, err := results.Open(sc)
	if err != nil {
		return err
	}
	if err = store.PutBetas(rep.Betas); err != nil {
		_ = store.Close()
		return err
	}
	if err = store.PutStats(rep.Stats); err != nil {
		_ = store.Close()
		return err
	}
	logger.Info("betas stored", slog.String("path", cfg.Store.Path), slog.String("run_id", rep.Stats.RunID))

	return store.Close()
}

// serveMetrics starts the Prometheus endpoint and returns its shutdown func.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}
}
