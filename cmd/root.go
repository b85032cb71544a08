package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aipp-t/thermal-sim/sim"
	"github.com/aipp-t/thermal-sim/sim/control"
	"github.com/aipp-t/thermal-sim/sim/loop"
	"github.com/aipp-t/thermal-sim/sim/trace"
)

var (
	logLevel   string   // Log verbosity level
	strategy   string   // Protection strategy of a single run
	strategies []string // Strategies raced by the tournament
	modelName  string   // Reference die for tournament and watch
	period     time.Duration
	printEvery int64 // Ticks between watch status lines

	scenarioOpts = &scenarioOptions{}
)

// scenarioOptions are the flags that may override fields of a scenario.
// A field is overridden only when its flag was set on the command line.
type scenarioOptions struct {
	config      string
	seed        int64
	duration    float64
	timeStep    float64
	integrator  string
	estimator   string
	sensorNoise float64
	chfLimit    float64
	peak        float64
	traceLevel  string
}

func (o *scenarioOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.config, "config", "", "Path to a scenario YAML file layered on the reference die")
	fs.Int64Var(&o.seed, "seed", 42, "Seed for sensor noise and workload jitter")
	fs.Float64Var(&o.duration, "duration", 0, "Simulated horizon in seconds")
	fs.Float64Var(&o.timeStep, "time-step", 0, "Integration step in seconds")
	fs.StringVar(&o.integrator, "integrator", "", "Integrator: euler or rk4")
	fs.StringVar(&o.estimator, "estimator", "", "Estimator: ekf or none")
	fs.Float64Var(&o.sensorNoise, "sensor-noise", 0, "Sensor noise standard deviation in °C")
	fs.Float64Var(&o.chfLimit, "chf-limit", 0, "Critical heat flux in W/cm²")
	fs.Float64Var(&o.peak, "peak", 0, "Activity during the burst")
	fs.StringVar(&o.traceLevel, "trace-level", string(trace.TraceLevelScalars), "Trace detail: scalars or maps")
}

// apply copies every changed flag into sc.
func (o *scenarioOptions) apply(fs *pflag.FlagSet, sc *sim.Scenario) {
	if fs.Changed("seed") {
		sc.Run.Seed = o.seed
	}
	if fs.Changed("duration") {
		sc.Run.Duration = o.duration
	}
	if fs.Changed("time-step") {
		sc.Run.TimeStep = o.timeStep
	}
	if fs.Changed("integrator") {
		sc.Run.Integrator = o.integrator
	}
	if fs.Changed("estimator") {
		sc.Run.Estimator = o.estimator
	}
	if fs.Changed("sensor-noise") {
		sc.Noise.SensorStdDev = o.sensorNoise
	}
	if fs.Changed("chf-limit") {
		sc.Safety.CHFLimit = o.chfLimit
	}
	if fs.Changed("peak") {
		sc.Workload.Peak = o.peak
	}
}

// resolve layers the config file and the changed flags on base, then validates.
func (o *scenarioOptions) resolve(fs *pflag.FlagSet, base sim.Scenario) (sim.Scenario, error) {
	sc := base
	if o.config != "" {
		loaded, err := sim.LoadScenario(o.config, base)
		if err != nil {
			return sim.Scenario{}, err
		}
		sc = *loaded
		logrus.Infof("Loaded scenario %s", o.config)
	}
	o.apply(fs, &sc)
	if err := sc.Validate(); err != nil {
		return sim.Scenario{}, fmt.Errorf("invalid scenario: %w", err)
	}
	if !trace.IsValidTraceLevel(o.traceLevel) {
		return sim.Scenario{}, fmt.Errorf("unknown trace level %q", o.traceLevel)
	}
	return sc, nil
}

// baseScenario returns the reference die for a model name.
func baseScenario(model string) (sim.Scenario, error) {
	switch model {
	case sim.ModelTwoPhase:
		return sim.DefaultScenario(), nil
	case sim.ModelMesh:
		return sim.DefaultMeshScenario(), nil
	default:
		return sim.Scenario{}, fmt.Errorf("unknown model %q; valid: %s, %s", model, sim.ModelTwoPhase, sim.ModelMesh)
	}
}

// runOnce simulates one strategy and writes its report to w.
func runOnce(ctx context.Context, w io.Writer, sc sim.Scenario, name string, level trace.TraceLevel) (*loop.EvaluationResult, error) {
	s, err := loop.NewSimulator(sc, name, level)
	if err != nil {
		return nil, err
	}
	res, err := s.Run(ctx)
	res.Summary.Print(w, sc.Run.TimeStep)
	trace.PrintSensitivity(w, res.Summary.PeakFlux, trace.CHFSensitivity(res.Summary.PeakFlux, trace.DefaultCHFLimits))
	logrus.Infof("%s finished %d ticks in %s", name, res.SimTicks, res.WallTime)
	return res, err
}

// runTournament races the strategies on sc and writes every report plus a
// comparison table to w.
func runTournament(ctx context.Context, w io.Writer, sc sim.Scenario, names []string, level trace.TraceLevel) error {
	results, err := loop.Tournament(ctx, sc, names, level)
	if err != nil {
		return err
	}
	for _, r := range results {
		r.Summary.Print(w, sc.Run.TimeStep)
	}
	_, _ = fmt.Fprintln(w, "=== Tournament ===")
	_, _ = fmt.Fprintf(w, "%-12s %10s %10s %12s  %s\n", "strategy", "peak °C", "margin %", "trip", "verdict")
	for _, r := range results {
		verdict := "FAIL"
		if r.Summary.Passed() {
			verdict = "PASS"
		}
		trip := "never"
		if r.Summary.TripTick >= 0 {
			trip = fmt.Sprintf("tick %d", r.Summary.TripTick)
		}
		_, _ = fmt.Fprintf(w, "%-12s %10.2f %10.2f %12s  %s\n", r.Strategy, r.Summary.PeakTruth, r.Summary.MinCHFMargin, trip, verdict)
	}
	return nil
}

// watchStatus formats the latest tick of s as one status line.
func watchStatus(s *loop.Simulator) string {
	ticks := s.Trace().Ticks
	if len(ticks) == 0 {
		return ""
	}
	r := ticks[len(ticks)-1]
	return fmt.Sprintf("[tick %07d] T=%.2f °C est=%.2f °C flux=%.1f W/cm² margin=%.1f %% gating=%.2f %s",
		r.Tick, r.MaxTruth, r.MaxEstimate, r.PeakFlux, r.CHFMargin, r.MinGating, r.State)
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "thermal-sim",
	Short: "Closed-loop thermal protection simulator for a two-phase cooled die",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setLogLevel()
	},
}

// simulate resolves the scenario for a single-strategy command and runs it.
func simulate(cmd *cobra.Command, base sim.Scenario) {
	sc, err := scenarioOpts.resolve(cmd.Flags(), base)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	logrus.Infof("Starting %s simulation: %s, %d ticks of %g s", sc.Run.Model, strategy, sc.Run.Steps(), sc.Run.TimeStep)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if _, err := runOnce(ctx, os.Stdout, sc, strategy, trace.TraceLevel(scenarioOpts.traceLevel)); err != nil {
		logrus.Fatalf("Run failed: %v", err)
	}
}

// runCmd simulates the single-zone boiling-wall die
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one strategy on the single-zone two-phase die",
	Run: func(cmd *cobra.Command, args []string) {
		simulate(cmd, sim.DefaultScenario())
	},
}

// meshCmd simulates the 8x8 mesh tracked by the Mesh-EKF
var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Run one strategy on the 8x8 BSPDN mesh with noisy sensors",
	Run: func(cmd *cobra.Command, args []string) {
		simulate(cmd, sim.DefaultMeshScenario())
	},
}

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Race every strategy on the same scenario in parallel",
	Run: func(cmd *cobra.Command, args []string) {
		base, err := baseScenario(modelName)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		sc, err := scenarioOpts.resolve(cmd.Flags(), base)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		for _, name := range strategies {
			if !control.IsValidStrategy(name) {
				logrus.Fatalf("Unknown strategy %q", name)
			}
		}
		logrus.Infof("Starting tournament: %s", strings.Join(strategies, ", "))
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runTournament(ctx, os.Stdout, sc, strategies, trace.TraceLevel(scenarioOpts.traceLevel)); err != nil {
			logrus.Fatalf("Tournament failed: %v", err)
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Pace the control loop against the wall clock and print its state",
	Run: func(cmd *cobra.Command, args []string) {
		base, err := baseScenario(modelName)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		sc, err := scenarioOpts.resolve(cmd.Flags(), base)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if printEvery < 1 {
			logrus.Fatalf("--every must be >= 1, got %d", printEvery)
		}
		s, err := loop.NewSimulator(sc, strategy, trace.TraceLevel(scenarioOpts.traceLevel))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		rt := loop.NewRealtime(period)
		rt.OnTick = func(s *loop.Simulator) {
			if s.Tick()%printEvery == 0 || s.Done() {
				fmt.Println(watchStatus(s))
			}
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		res, err := rt.Run(ctx, s)
		if res != nil {
			res.Summary.Print(os.Stdout, sc.Run.TimeStep)
		}
		if err != nil {
			logrus.Fatalf("Watch stopped: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	scenarioOpts.register(rootCmd.PersistentFlags())

	runCmd.Flags().StringVar(&strategy, "strategy", control.StrategyPredictive, "Protection strategy: unmanaged, reactive or predictive")
	meshCmd.Flags().StringVar(&strategy, "strategy", control.StrategyPredictive, "Protection strategy: unmanaged, reactive or predictive")
	watchCmd.Flags().StringVar(&strategy, "strategy", control.StrategyPredictive, "Protection strategy: unmanaged, reactive or predictive")

	all := []string{control.StrategyUnmanaged, control.StrategyReactive, control.StrategyPredictive}
	tournamentCmd.Flags().StringSliceVar(&strategies, "strategies", all, "Strategies to race")
	tournamentCmd.Flags().StringVar(&modelName, "model", sim.ModelTwoPhase, "Reference die: two-phase or mesh")
	watchCmd.Flags().StringVar(&modelName, "model", sim.ModelTwoPhase, "Reference die: two-phase or mesh")
	watchCmd.Flags().DurationVar(&period, "period", 10*time.Millisecond, "Wall-clock period of one tick")
	watchCmd.Flags().Int64Var(&printEvery, "every", 10, "Ticks between status lines")

	rootCmd.AddCommand(runCmd, meshCmd, tournamentCmd, watchCmd)
}
