package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/helio-sim/driftsim/internal/analysis"
	"github.com/helio-sim/driftsim/internal/config"
	"github.com/helio-sim/driftsim/internal/device"
	"github.com/helio-sim/driftsim/internal/diag"
	"github.com/helio-sim/driftsim/internal/solver"
	"github.com/helio-sim/driftsim/internal/stabilize"
	"github.com/helio-sim/driftsim/internal/storage"
	"github.com/helio-sim/driftsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	muIonic    float64
	muElec     float64
	voltage    float64
	tmax       float64
	rtol       float64
	maxIter    int
	force      bool
	live       bool
	noSave     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "driftsim",
		Short: "steady-state stabilization for time-dependent device simulations",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".driftsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "stabilize a device to steady state",
		RunE:  runStabilize,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "named preset configuration")
	runCmd.Flags().Float64Var(&muIonic, "mu-ion", config.DefaultMuIonic, "ionic mobility")
	runCmd.Flags().Float64Var(&muElec, "mu-e", config.DefaultMuElectronic, "electronic mobility")
	runCmd.Flags().Float64Var(&voltage, "voltage", config.DefaultVoltage, "applied voltage")
	runCmd.Flags().Float64Var(&tmax, "tmax", config.DefaultTMax, "prior horizon hint")
	runCmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRelTol, "stability tolerance")
	runCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIterations, "iteration guard (0 = unbounded)")
	runCmd.Flags().BoolVar(&force, "force", true, "force at least one solver run")
	runCmd.Flags().BoolVar(&live, "live", false, "live progress view")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "print the horizon estimate for a mobility pair",
		RunE:  runEstimate,
	}
	estimateCmd.Flags().Float64Var(&muIonic, "mu-ion", config.DefaultMuIonic, "ionic mobility")
	estimateCmd.Flags().Float64Var(&muElec, "mu-e", config.DefaultMuElectronic, "electronic mobility")
	estimateCmd.Flags().Float64Var(&tmax, "tmax", config.DefaultTMax, "prior horizon hint")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list named presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, estimateCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (see `driftsim presets`)", preset)
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Explicit flags override whatever the file or preset said.
	if cmd.Flags().Changed("mu-ion") {
		cfg.Device.MuIonic = muIonic
	}
	if cmd.Flags().Changed("mu-e") {
		cfg.Device.MuElectronic = muElec
	}
	if cmd.Flags().Changed("voltage") {
		cfg.Device.AppliedVoltage = voltage
	}
	if cmd.Flags().Changed("tmax") {
		cfg.Device.TMax = tmax
	}
	if cmd.Flags().Changed("rtol") {
		cfg.Stabilize.RelTol = rtol
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Stabilize.MaxIterations = maxIter
	}
	if cmd.Flags().Changed("force") {
		cfg.Stabilize.Force = force
	}

	return cfg, cfg.Validate()
}

func runStabilize(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	reporter := diag.NewReporter(os.Stderr)
	rel := solver.NewRelaxation()
	rel.MaxSteps = cfg.Solver.MaxSteps
	rel.Reporter = reporter

	iterations := 0
	var out device.Solution
	var runErr error

	in := device.Solution{Par: cfg.Params()}

	if live {
		p := tea.NewProgram(tui.NewLive())
		ctrl := stabilize.New(rel, stabilize.Options{
			RelTol:        cfg.Stabilize.RelTol,
			MaxIterations: cfg.Stabilize.MaxIterations,
			Reporter:      reporter,
			Observer: stabilize.ObserverFunc(func(it stabilize.Iteration) {
				iterations = it.N
				p.Send(tui.IterationMsg(it))
			}),
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			out, runErr = ctrl.Stabilize(context.Background(), in, cfg.Stabilize.Force)
			p.Send(tui.DoneMsg{Err: runErr})
		}()
		if _, err := p.Run(); err != nil {
			return err
		}
		<-done
	} else {
		ctrl := stabilize.New(rel, stabilize.Options{
			RelTol:        cfg.Stabilize.RelTol,
			MaxIterations: cfg.Stabilize.MaxIterations,
			Reporter:      reporter,
			Observer: stabilize.ObserverFunc(func(it stabilize.Iteration) {
				iterations = it.N
				fmt.Printf("stabilizing: iteration %d, tmax=%.4g, vapp=%.2f, %s (%d rows)\n",
					it.N, it.TMax, it.AppliedVoltage, it.Outcome, it.Rows)
			}),
		})
		out, runErr = ctrl.Stabilize(context.Background(), in, cfg.Stabilize.Force)
	}

	settled := runErr == nil
	var te *stabilize.TimeoutError
	switch {
	case runErr == nil:
		fmt.Printf("settled after %d iterations at tmax=%.4g\n", iterations, out.Par.TMax)
	case errors.As(runErr, &te):
		fmt.Printf("gave up after %d iterations; returning last state (tmax=%.4g)\n",
			te.Iterations, out.Par.TMax)
	default:
		return runErr
	}

	if final := out.Final(); final != nil {
		fmt.Printf("final state: u_ionic=%.6g u_electronic=%.6g\n", final[0], final[1])
	}

	if out.Par.AnalysisEnabled && out.Rows() >= 2 {
		sum, err := analysis.Summarize(out.U, out.T, cfg.Stabilize.RelTol)
		if err != nil {
			return err
		}
		fmt.Printf("settling time: %.4g, residual drift: %.3g\n", sum.SettlingTime, sum.Drift)
	}

	if noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(out, cfg.Stabilize.RelTol, iterations, settled)
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", id)
	return nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	hz, err := stabilize.EstimateHorizon(muIonic, muElec, tmax)
	if err != nil {
		return err
	}
	par := device.Params{}.WithHorizon(hz.TMax)
	fmt.Printf("tmax:    %.6g\n", hz.TMax)
	fmt.Printf("minTmax: %.6g\n", hz.MinTMax)
	fmt.Printf("t0:      %.6g\n", par.T0)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tVAPP\tTMAX\tITER\tSETTLED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.4g\t%d\t%v\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.AppliedVoltage, r.TMax, r.Iterations, r.Settled)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	u, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(u) == 0 {
		fmt.Println("empty run")
		return nil
	}

	names := []string{"u_ionic", "u_electronic"}
	for col := 0; col < len(u[0]); col++ {
		series := make([]float64, len(u))
		for i := range u {
			series[i] = u[i][col]
		}
		caption := fmt.Sprintf("u%d", col)
		if col < len(names) {
			caption = names[col]
		}
		graph := asciigraph.Plot(series,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
