package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ibi/internal/compare"
	"github.com/san-kum/ibi/internal/config"
	"github.com/san-kum/ibi/internal/curve"
	"github.com/san-kum/ibi/internal/ibi"
	"github.com/san-kum/ibi/internal/lammps"
	"github.com/san-kum/ibi/internal/pairtable"
	"github.com/san-kum/ibi/internal/rdf"
	"github.com/san-kum/ibi/internal/storage"
	"github.com/san-kum/ibi/internal/viz"
)

var (
	logLevel   string
	configFile string
	workDir    string
	// run
	preset      string
	iterations  int
	temperature float64
	nproc       int
	runTimeout  time.Duration
	useTUI      bool
	// table
	rdfFiles  []string
	outFile   string
	tableKey  string
	curveKind string
	// measure
	dataFile   string
	trajectory string
	tag        string
	pairRange  []float64
	// history
	asJSON     bool
	withTables bool
	// plot
	plotHeight int
	plotClip   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ibi",
		Short: "iterative Boltzmann inversion for coarse-grained pair tables",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", ".", "directory holding tables, trajectories and plots")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the inversion loop",
		Args:  cobra.NoArgs,
		RunE:  runIterations,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "bond preset (see 'ibi presets')")
	runCmd.Flags().IntVar(&iterations, "iterations", config.DefaultMaxIterations, "number of iterations")
	runCmd.Flags().Float64Var(&temperature, "temp", config.DefaultTemperature, "temperature (K)")
	runCmd.Flags().IntVar(&nproc, "nproc", 1, "MPI processes per simulation")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "limit per simulation run (0 for none)")
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "follow progress in a terminal view")

	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "build a pair table from RDF files by Boltzmann inversion",
		Args:  cobra.NoArgs,
		RunE:  buildTable,
	}
	tableCmd.Flags().StringSliceVar(&rdfFiles, "rdf", nil, "RDF files or globs, averaged")
	tableCmd.Flags().Float64Var(&temperature, "temp", config.DefaultTemperature, "temperature (K)")
	tableCmd.Flags().StringVar(&outFile, "out", "pair.table.0", "output table path")
	tableCmd.Flags().StringVar(&tableKey, "key", config.DefaultTableKey, "table keyword")
	tableCmd.Flags().StringVar(&curveKind, "curve", config.DefaultCurve, "interpolating curve")
	tableCmd.MarkFlagRequired("rdf")

	measureCmd := &cobra.Command{
		Use:   "measure",
		Short: "measure pair, bond and angle distributions of a trajectory",
		Args:  cobra.NoArgs,
		RunE:  measureTrajectory,
	}
	measureCmd.Flags().StringVar(&dataFile, "data", "", "LAMMPS data file with the bond list")
	measureCmd.Flags().StringVar(&trajectory, "traj", "", "trajectory (.lammpstrj)")
	measureCmd.Flags().StringVar(&tag, "tag", "measured", "output file prefix")
	measureCmd.Flags().Float64SliceVar(&pairRange, "range", []float64{2, 15, 0.1}, "pair range min,max,bin (Å)")
	measureCmd.MarkFlagRequired("data")
	measureCmd.MarkFlagRequired("traj")

	plotCmd := &cobra.Command{
		Use:   "plot [table]",
		Short: "plot force and energy of a pair table",
		Args:  cobra.ExactArgs(1),
		RunE:  plotTable,
	}
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "chart height")
	plotCmd.Flags().Float64Var(&plotClip, "clip", 5, "clip |y| above this value (0 for none)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "list finished iterations",
		Args:  cobra.NoArgs,
		RunE:  listHistory,
	}
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	historyCmd.Flags().BoolVar(&withTables, "tables", false, "include pair tables in JSON output")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list bond presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "bond preset")

	rootCmd.AddCommand(runCmd, tableCmd, measureCmd, plotCmd, historyCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies preset, then config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			loaded.Bond = cfg.Bond
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("workdir") || configFile == "" {
		cfg.WorkDir = workDir
	}
	if flags.Changed("iterations") {
		cfg.MaxIterations = iterations
	}
	if flags.Changed("temp") {
		cfg.Temperature = temperature
	}
	if flags.Changed("nproc") {
		cfg.NProc = nproc
	}
	if flags.Changed("timeout") {
		cfg.LAMMPS.RunTimeout = runTimeout
	}
	return cfg, cfg.Check()
}

func runIterations(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fitter, err := curve.NewRegistry().Get(cfg.Table.Curve)
	if err != nil {
		return err
	}

	runner := lammps.NewRunner(cfg.LAMMPS.Binary, cfg.LAMMPS.MPI, cfg.WorkDir, cfg.LAMMPS.RunTimeout)
	ctrl, err := ibi.New(*cfg, runner, rdf.NewMeasurer(), compare.New(fitter))
	if err != nil {
		return err
	}

	st := storage.New(filepath.Join(cfg.WorkDir, ".ibi"))
	if err := st.Init(); err != nil {
		return err
	}
	ctrl.SetRecorder(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !useTUI {
		ctrl.AddObserver(ibi.LogObserver{})
		return ctrl.Run(ctx)
	}

	// logrus output would tear the terminal view
	logrus.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(viz.NewProgress(cfg.MaxIterations, ctrl.Table(), cancel))
	ctrl.AddObserver(viz.NewObserver(p))

	errCh := make(chan error, 1)
	go func() {
		err := ctrl.Run(ctx)
		p.Send(viz.DoneMsg{Err: err})
		errCh <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		return err
	}
	cancel()
	return <-errCh
}

func buildTable(cmd *cobra.Command, args []string) error {
	s, files, err := rdf.ReadAverage(rdfFiles...)
	if err != nil {
		return err
	}
	logrus.Infof("averaged %d RDF files", len(files))

	fitter, err := curve.NewRegistry().Get(curveKind)
	if err != nil {
		return err
	}
	res, err := pairtable.NewFitter(pairtable.DefaultOptions(temperature), fitter).Compute(s)
	if err != nil {
		return err
	}
	if err := pairtable.WriteFile(outFile, tableKey, res.Entry); err != nil {
		return err
	}

	fmt.Printf("%s %s\n", viz.Title.Render("wrote"), outFile)
	fmt.Printf("%s%s\n", viz.MetricLabel.Render("sigma"), viz.MetricValue.Render(fmt.Sprintf("%.4f Å", res.Reference.Sigma)))
	fmt.Printf("%s%s\n", viz.MetricLabel.Render("epsilon"), viz.MetricValue.Render(fmt.Sprintf("%.6f kcal/mol", res.Reference.Epsilon)))
	return nil
}

func measureTrajectory(cmd *cobra.Command, args []string) error {
	if len(pairRange) != 3 {
		return fmt.Errorf("--range needs min,max,bin, got %v", pairRange)
	}
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	res, err := rdf.NewMeasurer().MeasureAll(cmd.Context(), rdf.Request{
		DataFile:   dataFile,
		Trajectory: trajectory,
		Tag:        tag,
		OutDir:     workDir,
		Pair:       rdf.Range{Min: pairRange[0], Max: pairRange[1], Bin: pairRange[2]},
		Bond:       cfg.RDF.Bond,
		Angle:      cfg.RDF.Angle,
	})
	if err != nil {
		return err
	}
	logrus.Infof("measured %d frames, wrote %s.{rdf,bond,angle}", res.Frames, filepath.Join(workDir, tag))
	return nil
}

func plotTable(cmd *cobra.Command, args []string) error {
	key, e, err := pairtable.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s: %s, %d points", args[0], key, e.Len())))
	fmt.Println(viz.TablePlot(e, viz.ChartOptions{Width: 80, Height: plotHeight, Clip: plotClip}))
	return nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	st := storage.New(filepath.Join(workDir, ".ibi"))
	if asJSON {
		return st.Export(os.Stdout, withTables)
	}
	recs, err := st.List()
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("no iterations found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITER\tTIME\tTABLE\tTRAJECTORY\tSKIPPED\tDEVIATION\tSIGMA\tEPSILON")
	for _, r := range recs {
		dev := fmt.Sprintf("%.4g", r.Deviation)
		if r.CompareFailed {
			dev = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\t%s\t%.4f\t%.6f\n",
			r.Iteration,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Table,
			r.Trajectory,
			r.Skipped,
			dev,
			r.Sigma,
			r.Epsilon,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	devs := make([]float64, 0, len(recs))
	for _, r := range recs {
		if !r.CompareFailed {
			devs = append(devs, r.Deviation)
		}
	}
	fmt.Println("\n" + viz.MetricLabel.Render("deviation") + viz.Sparkline(devs, 40))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBOND K (kcal/mol/Å²)\tBOND R0 (Å)")
	for _, name := range config.ListPresets() {
		b := config.Presets[name]
		fmt.Fprintf(w, "%s\t%g\t%g\n", name, b.K, b.R0)
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	path := "ibi.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", viz.Title.Render("wrote"), path)
	return nil
}
