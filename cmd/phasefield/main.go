package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/guptarohit/asciigraph"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"

	"github.com/san-kum/phasefield/internal/analysis"
	"github.com/san-kum/phasefield/internal/automation"
	"github.com/san-kum/phasefield/internal/config"
	"github.com/san-kum/phasefield/internal/control"
	"github.com/san-kum/phasefield/internal/experiment"
	"github.com/san-kum/phasefield/internal/nexus"
	"github.com/san-kum/phasefield/internal/optim"
	"github.com/san-kum/phasefield/internal/sim"
	"github.com/san-kum/phasefield/internal/topology"
	"github.com/san-kum/phasefield/internal/viz"
)

var (
	configFile string
	presetName string
	seed       uint64
	logLevel   string
	logFormat  string

	steps       int
	dt          float64
	coupling    float64
	noise       float64
	workers     int
	sampleEvery int
	runs        int
	csvOut      bool
	noPlot      bool
	nexusOn     bool
	uncertainty bool
	scriptFile  string
	holdTarget  float64

	stepsPerFrame int
	theme         string
	logFile       string

	benchSteps int

	dumpFile string

	sweep      bool
	kMin       float64
	kMax       float64
	kSteps     int
	transient  float64
	lockLevel  float64
	plotHeight int

	tuneParams   []string
	tuneMetric   string
	tuneMaximize bool
	tunePoints   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "phasefield",
		Short:         "coupled phase-oscillator field lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&presetName, "preset", "", "preset as group/name, see `phasefield presets`")
	pf.Uint64Var(&seed, "seed", 0, "random seed (0 keeps the config seed)")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "text", "text or json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the field headless and summarize",
		RunE:  runField,
	}
	addParamFlags(runCmd)
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", 0, "steps between samples (0 keeps the config)")
	runCmd.Flags().IntVar(&runs, "runs", 1, "ensemble size; seeds count up from --seed")
	runCmd.Flags().BoolVar(&csvOut, "csv", false, "write samples as CSV to stdout")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip the r(t) plot")
	runCmd.Flags().BoolVar(&nexusOn, "nexus", false, "enable adaptive modulation")
	runCmd.Flags().BoolVar(&uncertainty, "uncertainty", false, "feed 1-r into quantum re-excitation")
	runCmd.Flags().StringVar(&scriptFile, "script", "", "replay timed input events from a yaml script")
	runCmd.Flags().Float64Var(&holdTarget, "hold", 0, "steer coupling to hold r at this value (0 disables)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the field with live terminal visualization",
		RunE:  runLive,
	}
	addParamFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 2, "engine steps per frame")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme: "+strings.Join(viz.ThemeNames(), ", "))
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write logs here instead of discarding them")
	liveCmd.Flags().BoolVar(&nexusOn, "nexus", false, "enable adaptive modulation")
	liveCmd.Flags().BoolVar(&uncertainty, "uncertainty", false, "feed 1-r into quantum re-excitation")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure steps per second over standard geometries",
		RunE:  benchField,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 200, "steps per geometry")
	benchCmd.Flags().IntVar(&workers, "workers", 0, "integrator workers (0 uses GOMAXPROCS)")

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}
	presetsCmd.Flags().StringVar(&dumpFile, "dump", "", "write the resolved config (preset, file, flags) to this yaml path")

	topologyCmd := &cobra.Command{
		Use:   "topology",
		Short: "build the configured geometry and print its structure",
		RunE:  describeTopology,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "spectrum of r(t) and an optional coupling sweep",
		RunE:  analyzeField,
	}
	addParamFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&sweep, "sweep", false, "sweep coupling to locate the locking transition")
	analyzeCmd.Flags().Float64Var(&kMin, "k-min", 0, "sweep start")
	analyzeCmd.Flags().Float64Var(&kMax, "k-max", 4, "sweep end")
	analyzeCmd.Flags().IntVar(&kSteps, "k-steps", 9, "sweep points")
	analyzeCmd.Flags().Float64Var(&transient, "transient", 0.5, "fraction of each sweep run discarded")
	analyzeCmd.Flags().Float64Var(&lockLevel, "lock", experiment.DefaultLockThreshold, "r regarded as locked")
	analyzeCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search engine parameters for the best run metric",
		RunE:  tuneField,
	}
	addParamFlags(tuneCmd)
	tuneCmd.Flags().StringSliceVar(&tuneParams, "param", []string{"coupling=0:4"},
		"name=lo:hi, repeatable; names: "+strings.Join(optim.ParamNames(), ", "))
	tuneCmd.Flags().IntVar(&tunePoints, "points", 5, "values per parameter")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "mean_r", "metric: "+strings.Join(experiment.NewRegistry().ListMetrics(), ", "))
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", true, "maximize instead of minimize the metric")

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, presetsCmd, topologyCmd, analyzeCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&steps, "steps", 0, "steps to run (0 keeps the config)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "time step (0 keeps the config)")
	cmd.Flags().Float64Var(&coupling, "coupling", 0, "coupling K")
	cmd.Flags().Float64Var(&noise, "noise", 0, "noise amplitude σ")
	cmd.Flags().IntVar(&workers, "workers", 0, "integrator workers (0 uses GOMAXPROCS)")
}

// loadConfig resolves defaults, then the preset, then the config file, then
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if presetName != "" {
		cfg = config.Lookup(presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (groups: %s)", presetName, strings.Join(config.ListGroups(), ", "))
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Params.Dt = dt
	}
	if flags.Changed("coupling") {
		cfg.Params.Coupling = coupling
	}
	if flags.Changed("noise") {
		cfg.Params.Noise = noise
	}
	if flags.Changed("workers") {
		cfg.Params.Workers = workers
	}
	if flags.Changed("sample-every") {
		cfg.Run.SampleEvery = sampleEvery
	}
	if flags.Changed("nexus") {
		cfg.Nexus.Enabled = nexusOn
	}
	if flags.Changed("uncertainty") {
		cfg.Nexus.Uncertainty = uncertainty
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch logFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", logFormat)
}

func runField(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	log := base.With("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := cfg.Experiment()
	if runs > 1 {
		return runEnsemble(ctx, cmd.OutOrStdout(), cfg, exp, log)
	}

	runner, err := experiment.New(exp, sim.WithLogger(log))
	if err != nil {
		return err
	}
	for _, m := range experiment.NewRegistry().DefaultMetrics(nil) {
		runner.AddMetric(m)
	}
	var driver *nexus.Driver
	if cfg.Nexus.Enabled {
		driver = nexus.New(cfg.NexusConfig(), log)
		runner.AddHook(driver)
	}
	var hold *control.Hold
	if holdTarget > 0 {
		hold = control.NewHold(control.NewPID(2, 0.5, 0, holdTarget), cfg.Params.Coupling, maxHoldCoupling).WithLogger(log)
		runner.AddHook(hold)
	}
	if scriptFile != "" {
		script, err := automation.LoadScript(scriptFile)
		if err != nil {
			return fmt.Errorf("failed to load script: %w", err)
		}
		runner.AddHook(script.WithLogger(log))
		log.Info("script loaded", "name", script.Name, "events", len(script.Events))
	}

	log.Info("run started", "geometry", cfg.Geometry.Kind, "nodes", runner.Engine().Topology().N(),
		"steps", exp.Steps, "params", runner.Engine().Parameters())
	result, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("run finished", "steps", result.StepsTaken, "elapsed", result.Elapsed, "final", result.Final())

	// with --csv the summary moves to stderr so stdout stays a clean table
	summary := cmd.OutOrStdout()
	if csvOut {
		summary = cmd.ErrOrStderr()
	}
	printSummary(summary, runID, cfg, result)
	if driver != nil {
		fmt.Fprintf(summary, "  nexus actions: %d (regime %s)\n", len(driver.Actions()), driver.Regime())
	}
	if hold != nil {
		fmt.Fprintf(summary, "  hold: target r %.3f, final K %.4f\n", holdTarget, hold.Coupling())
	}
	if !noPlot && len(result.Order) > 1 {
		fmt.Fprintln(summary)
		fmt.Fprintln(summary, asciigraph.Plot(downsample(result.Order, 120),
			asciigraph.Height(10), asciigraph.Width(80),
			asciigraph.LowerBound(0), asciigraph.UpperBound(1),
			asciigraph.Caption("order parameter r(t)")))
	}
	if csvOut {
		return gocsv.Marshal(result.Samples, cmd.OutOrStdout())
	}
	return nil
}

// maxHoldCoupling bounds the coupling --hold may request.
const maxHoldCoupling = 20

func printSummary(w io.Writer, runID string, cfg *config.Config, result *experiment.Result) {
	final := result.Final()
	fmt.Fprintf(w, "run id: %s\n", runID)
	fmt.Fprintf(w, "geometry: %s  seed: %d\n", cfg.Geometry.Kind, cfg.Run.Seed)
	fmt.Fprintf(w, "steps: %d  sim time: %.3f  wall: %v\n", result.StepsTaken, final.Time, result.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "final r: %.4f  ψ: %.3f  boundary/interior r: %.4f/%.4f\n", final.R, final.Psi, final.RBoundary, final.RInterior)
	if cfg.Geometry.Kind == string(topology.Grid) {
		fmt.Fprintf(w, "plaquette r: %.4f  local r: %.4f\n", final.Plaquette, final.LocalOrder)
	}
	if cfg.Quantum.Enabled {
		fmt.Fprintf(w, "CHSH S: %.4f  entangled pairs: %d  superposed: %d\n", final.CHSH, final.EntangledCount, final.Superposed)
	}
	if final.Repairs > 0 {
		fmt.Fprintf(w, "non-finite repairs: %d\n", final.Repairs)
	}
	fmt.Fprintln(w, "\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, result.Metrics[name])
	}
}

func runEnsemble(ctx context.Context, w io.Writer, cfg *config.Config, exp experiment.Config, log *slog.Logger) error {
	start := cfg.Run.Seed
	if start == 0 {
		start = config.DefaultSeed
	}
	ens := experiment.NewEnsemble(exp, runs, start, sim.WithLogger(log))
	if cfg.Nexus.Enabled {
		ens.OnRunner(func(r *experiment.Runner) {
			r.AddHook(nexus.New(cfg.NexusConfig(), log))
		})
	}
	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}
	s := experiment.Summarize(results)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSEED\tFINAL R\tSTEPS\tWALL")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%d\t%v\n", i, start+uint64(i), r.Final().R, r.StepsTaken, r.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "\nmean r\t%.4f ± %.4f\n", s.MeanR, s.StdR)
	fmt.Fprintf(tw, "range\t[%.4f, %.4f]\n", s.MinR, s.MaxR)
	return tw.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// logs would corrupt the alternate screen
	var sink io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		sink = f
	}
	log, err := newLogger(sink)
	if err != nil {
		return err
	}

	runner, err := experiment.New(cfg.Experiment(), sim.WithLogger(log))
	if err != nil {
		return err
	}
	opts := viz.Options{
		Title:         presetTitle(cfg),
		Dt:            cfg.Params.Dt,
		StepsPerFrame: stepsPerFrame,
		Theme:         theme,
	}
	if cfg.Nexus.Enabled {
		opts.Hooks = append(opts.Hooks, nexus.New(cfg.NexusConfig(), log))
	}
	return viz.Run(viz.NewModel(runner.Engine(), cfg.InitPolicy(), opts))
}

func presetTitle(cfg *config.Config) string {
	if presetName != "" {
		return presetName
	}
	return cfg.Geometry.Kind
}

type benchCase struct {
	name   string
	kind   topology.Kind
	params topology.Params
}

var benchCases = []benchCase{
	{"grid 32x32", topology.Grid, topology.Params{Rows: 32, Cols: 32}},
	{"grid 128x128", topology.Grid, topology.Params{Rows: 128, Cols: 128, Moore: true}},
	{"lattice 16^3", topology.Lattice, topology.Params{Rows: 16, Cols: 16, Depth: 16}},
	{"membrane 4000", topology.Membrane, topology.Params{Count: 4000, Shells: 6}},
	{"spiral 4000", topology.Spiral, topology.Params{Count: 4000}},
	{"all_to_all 512", topology.AllToAll, topology.Params{Count: 512}},
}

func benchField(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cores, _ := cpu.Counts(true)
		fmt.Fprintf(out, "cpu: %s (%d logical cores)\n", strings.TrimSpace(infos[0].ModelName), cores)
	}
	fmt.Fprintf(out, "benchmarking %d steps per geometry\n\n", benchSteps)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GEOMETRY\tNODES\tEDGES\tTIME\tSTEPS/SEC\tNODE-STEPS/SEC")
	for _, bc := range benchCases {
		exp := cfg.Experiment()
		exp.Geometry.Kind = bc.kind
		exp.Geometry.Topology = bc.params
		exp.Steps = benchSteps
		exp.SampleEvery = benchSteps
		exp.Params.Workers = workers

		runner, err := experiment.New(exp, sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		if err != nil {
			return fmt.Errorf("%s: %w", bc.name, err)
		}
		result, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}
		topo := runner.Engine().Topology()
		perSec := float64(result.StepsTaken) / result.Elapsed.Seconds()
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.3g\n",
			bc.name, topo.N(), topo.EdgeCount(), result.Elapsed.Round(time.Microsecond), perSec, perSec*float64(topo.N()))
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if dumpFile != "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.Save(dumpFile, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(out, "wrote %s\n", dumpFile)
		return nil
	}
	groups := config.ListGroups()
	if len(args) == 1 {
		groups = []string{args[0]}
	}
	for _, g := range groups {
		names := config.ListPresets(g)
		if len(names) == 0 {
			fmt.Fprintf(out, "no presets for group: %s\n", g)
			continue
		}
		fmt.Fprintf(out, "%s:\n", g)
		for _, n := range names {
			p := config.GetPreset(g, n)
			fmt.Fprintf(out, "  %s/%s\tK=%.2f σ=%.2f steps=%d\n", g, n, p.Params.Coupling, p.Params.Noise, p.Run.Steps)
		}
	}
	return nil
}

func describeTopology(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	topo, err := topology.Build(topology.Kind(cfg.Geometry.Kind), cfg.TopologyParams())
	if err != nil {
		return err
	}

	degrees := make([]float64, topo.N())
	minDeg, maxDeg := math.MaxInt, 0
	for i := range degrees {
		d := topo.Degree(i)
		degrees[i] = float64(d)
		minDeg, maxDeg = min(minDeg, d), max(maxDeg, d)
	}
	lo, hi := topo.Bounds()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "kind\t%s\n", topo.Kind())
	fmt.Fprintf(w, "nodes\t%d\n", topo.N())
	fmt.Fprintf(w, "edges\t%d\n", topo.EdgeCount())
	fmt.Fprintf(w, "degree\tmin %d  mean %.2f  max %d\n", minDeg, float64(topo.EdgeCount())/float64(topo.N()), maxDeg)
	fmt.Fprintf(w, "boundary\t%d\n", len(topo.BoundaryNodes()))
	fmt.Fprintf(w, "interior\t%d\n", len(topo.InteriorNodes()))
	fmt.Fprintf(w, "bounds\t(%.2f, %.2f, %.2f) .. (%.2f, %.2f, %.2f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	if err := w.Flush(); err != nil {
		return err
	}

	if topo.N() > 1 {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), asciigraph.Plot(downsample(degrees, 80),
			asciigraph.Height(6), asciigraph.Caption("degree by node index")))
	}
	return nil
}

func analyzeField(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	runner, err := experiment.New(cfg.Experiment(), sim.WithLogger(log))
	if err != nil {
		return err
	}
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if len(result.Order) < 4 {
		return fmt.Errorf("need at least 4 steps for a spectrum, got %d", len(result.Order))
	}

	spec := analysis.PowerSpectrum(result.Order, cfg.Params.Dt)
	freq, power := analysis.Dominant(result.Order, cfg.Params.Dt)
	fmt.Fprintf(out, "frequency analysis: %s, %d steps\n\n", presetTitle(cfg), result.StepsTaken)
	if len(spec.Power) > 2 {
		view := spec.Power[1 : len(spec.Power)/4+2]
		fmt.Fprintln(out, asciigraph.Plot(downsample(view, 80),
			asciigraph.Height(plotHeight), asciigraph.Width(80),
			asciigraph.Caption("power spectrum of r(t)")))
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "dominant frequency: %.4f (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Fprintf(out, "period: %.3f\n", 1/freq)
	}

	if !sweep {
		return nil
	}
	fmt.Fprintf(out, "\nsweeping K in [%g, %g] over %d points\n", kMin, kMax, kSteps)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	points, err := analysis.SweepCoupling(kMin, kMax, kSteps, func(k float64) ([]float64, error) {
		exp := cfg.Experiment()
		exp.Params.Coupling = k
		r, err := experiment.New(exp, sim.WithLogger(quiet))
		if err != nil {
			return nil, err
		}
		res, err := r.Run(ctx)
		if err != nil {
			return nil, err
		}
		skip := int(transient * float64(len(res.Order)))
		return res.Order[min(skip, len(res.Order)):], nil
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "K\tMEAN R\tSTD R")
	for _, p := range points {
		fmt.Fprintf(w, "%.3f\t%.4f\t%.4f\n", p.K, p.MeanR, p.StdR)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, analysis.SweepToASCII(points, 60, plotHeight))
	if kc, ok := analysis.CriticalCoupling(points, lockLevel); ok {
		fmt.Fprintf(out, "locking reached at K ≈ %.3f (r ≥ %.2f)\n", kc, lockLevel)
	} else {
		fmt.Fprintf(out, "no swept K reached r ≥ %.2f\n", lockLevel)
	}
	return nil
}

func tuneField(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, spec := range tuneParams {
		name, lo, hi, err := parseRange(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, optim.Linspace(lo, hi, tunePoints))
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	search.Maximize = tuneMaximize

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	best, trials, err := search.Search(cmd.Context(), cfg.Experiment(), tuneMetric, sim.WithLogger(quiet))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(tuneMetric))
	for _, t := range trials {
		for _, n := range names {
			fmt.Fprintf(w, "%.4g\t", t.Params[n])
		}
		fmt.Fprintf(w, "%.6f\n", t.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nbest %s = %.6f at", tuneMetric, best.Value)
	for _, n := range names {
		fmt.Fprintf(cmd.OutOrStdout(), " %s=%.4g", n, best.Params[n])
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// parseRange reads "name=lo:hi".
func parseRange(spec string) (name string, lo, hi float64, err error) {
	name, bounds, ok := strings.Cut(spec, "=")
	if !ok {
		return "", 0, 0, fmt.Errorf("bad --param %q, want name=lo:hi", spec)
	}
	a, b, ok := strings.Cut(bounds, ":")
	if !ok {
		b = a
	}
	if lo, err = strconv.ParseFloat(a, 64); err != nil {
		return "", 0, 0, fmt.Errorf("bad --param %q: %w", spec, err)
	}
	if hi, err = strconv.ParseFloat(b, 64); err != nil {
		return "", 0, 0, fmt.Errorf("bad --param %q: %w", spec, err)
	}
	return name, lo, hi, nil
}

// downsample keeps at most n evenly spaced points.
func downsample(series []float64, n int) []float64 {
	if len(series) <= n || n <= 0 {
		return series
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = series[i*(len(series)-1)/(n-1)]
	}
	return out
}
