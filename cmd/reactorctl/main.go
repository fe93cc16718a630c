// Command reactorctl drives a simulation run from a config file: a
// Brownian-motion realization feeding a Kalman filter over a
// time-driven simulator, with optional SQLite-backed recording.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xoreactor/xo-reactor/internal/buildinfo"
	"github.com/xoreactor/xo-reactor/internal/config"
	"github.com/xoreactor/xo-reactor/internal/diag"
	"github.com/xoreactor/xo-reactor/internal/kalman"
	"github.com/xoreactor/xo-reactor/internal/process"
	"github.com/xoreactor/xo-reactor/internal/reactor"
	"github.com/xoreactor/xo-reactor/internal/recorder"
	"github.com/xoreactor/xo-reactor/internal/simulator"
	"github.com/xoreactor/xo-reactor/internal/xtime"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() == 0 {
		printUsage()
		return
	}

	switch flag.Arg(0) {
	case "simulate":
		runSimulate(logger, *configPath)
	case "version":
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.BuildInfo() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("reactorctl - discrete-event simulator and Kalman filter runner")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  simulate  Run a simulation from a config file")
	fmt.Println("  version   Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// filterSink bridges a scalar realization source to a Kalman filter:
// every delivered sample becomes one filter step, and the resulting
// extended state is forwarded to downstream (nil disables forwarding).
type filterSink struct {
	filter     *kalman.Filter
	sigma      float64
	downstream *recorder.Sink
}

func (fs *filterSink) NotifyEvent(ev process.Event[float64]) error {
	input := &kalman.Input{
		Tkp1:    ev.Tm,
		Present: []bool{true},
		Z:       mat.NewVecDense(1, []float64{ev.X}),
		Sigma:   []float64{fs.sigma},
	}

	next, err := fs.filter.NotifyInput(input)
	if err != nil {
		return err
	}

	if fs.downstream != nil {
		return fs.downstream.NotifyEvent(next)
	}
	return nil
}

func runSimulate(logger *slog.Logger, configPath string) {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	if cfg.Filter.StateDim != 1 {
		logger.Error("reactorctl simulate only supports filter.state_dim = 1 in this build", "state_dim", cfg.Filter.StateDim)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"volatility", cfg.Process.Volatility,
		"replay_factor", cfg.Run.ReplayFactor,
		"duration", cfg.Run.Duration,
	)

	bus := diag.New()
	t0 := xtime.Now()

	bm := process.NewBrownianMotion(t0, cfg.Process.Volatility, cfg.Process.Seed)
	tracer := process.NewTracer[float64](bm)
	source := process.NewRealizationSource("brownian", tracer, xtime.Duration(cfg.Process.SampleInterval), bus)

	init := &kalman.ExtState{
		State: kalman.State{
			StepNo: 0,
			Tm:     t0,
			X:      mat.NewVecDense(1, []float64{cfg.Process.X0}),
			P:      mat.NewSymDense(1, []float64{1}),
		},
		ObsIndex: -1,
	}

	build := func(prev *kalman.ExtState, input *kalman.Input) (f, q, h, r *mat.Dense, err error) {
		f = mat.NewDense(1, 1, []float64{1})
		q = mat.NewDense(1, 1, []float64{cfg.Filter.ProcessNoiseVariance})
		h = mat.NewDense(1, 1, []float64{1})
		r = mat.NewDense(1, 1, []float64{cfg.Filter.ObservationNoiseStdev * cfg.Filter.ObservationNoiseStdev})
		return f, q, h, r, nil
	}

	mode := kalman.Batched
	if cfg.Filter.UseScalarSequential {
		mode = kalman.Sequential
	}

	filter := kalman.New(kalman.Spec{Init: init, Build: build, Mode: mode}, logger, bus)

	var rec *recorder.Recorder
	var recDone chan struct{}
	recCtx, recCancel := context.WithCancel(context.Background())
	defer recCancel()

	var downstream *recorder.Sink
	if cfg.Recorder.Enabled {
		db, err := sql.Open("sqlite3", cfg.Recorder.DBPath)
		if err != nil {
			logger.Error("failed to open recorder database", "path", cfg.Recorder.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store, err := recorder.NewStore(db)
		if err != nil {
			logger.Error("failed to initialize recorder store", "error", err)
			os.Exit(1)
		}

		rec = recorder.New(store, recorder.Config{PeriodicEvents: 100}, logger)
		downstream = recorder.NewSink(rec)

		recDone = make(chan struct{})
		go func() {
			rec.Run(recCtx, bus)
			close(recDone)
		}()

		logger.Info("recording enabled", "db_path", cfg.Recorder.DBPath)
	}

	sink := &filterSink{filter: filter, sigma: cfg.Filter.ObservationNoiseStdev, downstream: downstream}
	if _, err := source.Attach(sink); err != nil {
		logger.Error("failed to attach filter sink", "error", err)
		os.Exit(1)
	}

	sim := simulator.New(t0, logger, bus)
	sim.AddSource(source)

	t1 := t0.Add(xtime.Duration(cfg.Run.Duration))
	n := sim.RunThrottledUntil(t1, cfg.Run.MaxEvents, cfg.Run.ReplayFactor)

	logger.Info("run complete",
		"n_event", n,
		"last_tm", sim.LastTm().String(),
		"filter_step", filter.StepNo(),
	)

	final := filter.Current()
	fmt.Printf("events dispatched: %d\n", n)
	fmt.Printf("final filter step: %d at %s\n", final.StepNo, final.Tm.String())
	fmt.Printf("final x: %.6f\n", final.X.AtVec(0))
	fmt.Printf("final P: %.6f\n", final.P.At(0, 0))

	if rec != nil {
		hook := recorder.NewSimulatorHook(rec)
		if _, err := hook.Save(sim, filter); err != nil {
			logger.Error("failed to save run summary", "error", err)
		}

		recCancel()
		select {
		case <-recDone:
		case <-time.After(5 * time.Second):
			logger.Warn("recorder did not drain within timeout")
		}
	}
}

var _ reactor.Sink[process.Event[float64]] = (*filterSink)(nil)
