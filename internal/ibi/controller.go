// Package ibi drives iterative Boltzmann inversion: a coarse-grained pair
// table is simulated, its RDF measured and the table corrected until the
// iteration budget is spent.
package ibi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ibi/internal/config"
	"github.com/san-kum/ibi/internal/curve"
	"github.com/san-kum/ibi/internal/lammps"
	"github.com/san-kum/ibi/internal/pairtable"
	"github.com/san-kum/ibi/internal/rdf"
	"github.com/san-kum/ibi/internal/storage"
)

// DefaultPairBin is the pair RDF bin width when the range is derived from
// the current table.
const DefaultPairBin = 0.1

type Simulator interface {
	Run(ctx context.Context, tag string, p lammps.Params) error
}

type Measurer interface {
	Measure(ctx context.Context, req rdf.Request) (rdf.Sample, error)
}

type Comparator interface {
	Compare(iteration int, reference, measured rdf.Sample, imagePath string) (float64, error)
}

// Recorder persists one record per finished iteration.
type Recorder interface {
	Save(rec storage.IterationRecord, table storage.Table) error
}

type Controller struct {
	cfg       config.Config
	sim       Simulator
	meas      Measurer
	cmp       Comparator
	store     Recorder
	observers []Observer

	corrector *pairtable.Corrector
	reference rdf.Sample
	iteration int
	state     State
}

// New validates cfg and builds a controller. cfg is copied.
func New(cfg config.Config, sim Simulator, meas Measurer, cmp Comparator) (*Controller, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.ReferenceRDF = append([]string(nil), cfg.ReferenceRDF...)

	fitter, err := curve.NewRegistry().Get(cfg.Table.Curve)
	if err != nil {
		return nil, err
	}
	fit := pairtable.NewFitter(FitOptions(cfg), fitter)
	corrector := pairtable.NewCorrector(pairtable.NewTable(), fit, fitter,
		pairtable.WithReintegration(cfg.Table.ReintegrateEnergy),
		pairtable.WithKinkRemoval(cfg.Table.RemoveKinks))

	return &Controller{
		cfg:       cfg,
		sim:       sim,
		meas:      meas,
		cmp:       cmp,
		corrector: corrector,
		state:     Idle,
	}, nil
}

// FitOptions maps the table settings of cfg onto pair table fit options.
func FitOptions(cfg config.Config) pairtable.Options {
	opts := pairtable.DefaultOptions(cfg.Temperature)
	opts.FitPoints = cfg.Table.FitPoints
	opts.TablePoints = cfg.Table.Points
	opts.MinDistance = cfg.Table.MinDistance
	opts.ContactThreshold = cfg.Table.ContactThreshold
	opts.SmoothWidth = cfg.Table.SmoothWidth
	opts.SmoothPasses = cfg.Table.SmoothPasses
	return opts
}

func (c *Controller) AddObserver(o Observer) { c.observers = append(c.observers, o) }
func (c *Controller) SetRecorder(r Recorder) { c.store = r }

func (c *Controller) Iteration() int          { return c.iteration }
func (c *Controller) State() State            { return c.state }
func (c *Controller) Table() *pairtable.Table { return c.corrector.Table() }
func (c *Controller) Reference() rdf.Sample   { return c.reference.Clone() }
func (c *Controller) Config() config.Config   { return c.cfg }

func (c *Controller) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.cfg.WorkDir, name)
}

func (c *Controller) emit(ev Event) {
	for _, o := range c.observers {
		o.OnEvent(ev)
	}
}

func (c *Controller) enter(s State) {
	c.state = s
	if s == MaybeSimulate || s == Advance {
		return
	}
	c.emit(Event{Iteration: c.iteration, State: s})
}

func (c *Controller) fail(err error) error {
	ierr := &IterationError{Iteration: c.iteration, State: c.state, Wrapped: err}
	c.emit(Event{Iteration: c.iteration, State: c.state, Err: ierr})
	return ierr
}

// Seed stores entry 0, computed from the target RDF.
func (c *Controller) Seed(target rdf.Sample) error {
	res, err := c.corrector.Seed(target)
	if err != nil {
		return fmt.Errorf("seed from reference RDF: %w", err)
	}
	c.reference = target.Clone()
	logrus.Infof("reference table: sigma=%.4f epsilon=%.6f", res.Reference.Sigma, res.Reference.Epsilon)
	return nil
}

// LoadReference averages the configured reference RDF files and seeds the
// table from them. Relative patterns are resolved against the work dir.
func (c *Controller) LoadReference() error {
	patterns := make([]string, len(c.cfg.ReferenceRDF))
	for i, p := range c.cfg.ReferenceRDF {
		patterns[i] = c.path(p)
	}
	s, files, err := rdf.ReadAverage(patterns...)
	if err != nil {
		return err
	}
	logrus.Infof("reference RDF averaged over %d files", len(files))
	return c.Seed(s)
}

// ShouldRunSimulation reports whether iteration i still needs its
// simulation. An existing trajectory is reused so an interrupted run can
// resume; delete stale trajectories to force a rerun.
func (c *Controller) ShouldRunSimulation(i int) bool {
	_, err := os.Stat(c.path(TrajectoryName(i)))
	return err != nil
}

// Run seeds the table if needed and iterates until MaxIterations.
func (c *Controller) Run(ctx context.Context) error {
	if c.corrector.Table().Len() == 0 {
		if err := c.LoadReference(); err != nil {
			return err
		}
	}
	for c.iteration < c.cfg.MaxIterations {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
	c.enter(Done)
	return nil
}

// Step runs one full iteration.
func (c *Controller) Step(ctx context.Context) error {
	if c.corrector.Table().Len() == 0 {
		return ErrNotSeeded
	}
	i := c.iteration

	c.enter(BuildTable)
	if n := c.corrector.Table().Len(); n != i+1 {
		return c.fail(fmt.Errorf("%w: table holds %d entries at iteration %d", ErrTableOutOfStep, n, i))
	}
	entry, err := c.corrector.Table().At(i)
	if err != nil {
		return c.fail(err)
	}
	tablePath := c.path(TableName(i))
	if err := pairtable.WriteFile(tablePath, c.cfg.Table.Key, entry); err != nil {
		return c.fail(err)
	}
	logrus.Debugf("wrote %s", tablePath)

	if err := ctx.Err(); err != nil {
		return c.fail(err)
	}

	c.enter(MaybeSimulate)
	skipped := !c.ShouldRunSimulation(i)
	c.emit(Event{Iteration: i, State: MaybeSimulate, Skipped: skipped})
	if !skipped {
		if err := c.sim.Run(ctx, Tag(i), c.params(i, entry)); err != nil {
			return c.fail(fmt.Errorf("%w: %w", ErrSimulationFailed, err))
		}
		if c.ShouldRunSimulation(i) {
			return c.fail(fmt.Errorf("%w: %s", ErrMissingTrajectory, TrajectoryName(i)))
		}
	}

	c.enter(MeasureRDF)
	measured, err := c.meas.Measure(ctx, c.request(i, entry))
	if err != nil {
		return c.fail(err)
	}
	deviation, err := c.cmp.Compare(i, c.reference, measured, c.path(ImageName(i)))
	compareFailed := err != nil
	if compareFailed {
		logrus.Warnf("comparison for iteration %d: %v", i, err)
		deviation = 0
	}

	c.enter(Correct)
	corr, err := c.corrector.Correct(measured)
	if err != nil {
		return c.fail(err)
	}

	c.enter(Advance)
	if c.store != nil {
		rec := storage.IterationRecord{
			Iteration:     i,
			Table:         TableName(i),
			Trajectory:    TrajectoryName(i),
			Image:         ImageName(i),
			Skipped:       skipped,
			Deviation:     deviation,
			CompareFailed: compareFailed,
			Sigma:         corr.Reference.Sigma,
			Epsilon:       corr.Reference.Epsilon,
		}
		table := storage.Table{Distance: entry.Distance, Force: entry.Force, Energy: entry.Energy}
		if err := c.store.Save(rec, table); err != nil {
			if terr := c.corrector.Table().Truncate(corr.Index); terr != nil {
				logrus.Warnf("rolling back entry %d: %v", corr.Index, terr)
			}
			return c.fail(err)
		}
	}
	c.iteration++
	c.emit(Event{Iteration: i, State: Advance, Skipped: skipped, Deviation: deviation, CompareFailed: compareFailed})
	return nil
}

func (c *Controller) params(i int, entry pairtable.Entry) lammps.Params {
	return lammps.Params{
		K:           c.cfg.Bond.K,
		R0:          c.cfg.Bond.R0,
		T:           c.cfg.Temperature,
		NProc:       c.cfg.NProc,
		Data:        c.cfg.DataFile,
		Dump:        TrajectoryName(i),
		Iteration:   i,
		TablePath:   TableName(i),
		TableKey:    c.cfg.Table.Key,
		TablePoints: entry.Len(),
		Cutoff:      entry.Distance[entry.Len()-1],
		Steps:       c.cfg.LAMMPS.Steps,
		DumpEvery:   c.cfg.LAMMPS.DumpEvery,
		Timestep:    c.cfg.LAMMPS.Timestep,
	}
}

// request builds the measurement of iteration i. Without a configured pair
// range the range of the current table is used.
func (c *Controller) request(i int, entry pairtable.Entry) rdf.Request {
	pair := c.cfg.RDF.Pair
	if pair == (rdf.Range{}) {
		pair = rdf.Range{Min: entry.Distance[0], Max: entry.Distance[entry.Len()-1], Bin: DefaultPairBin}
	}
	return rdf.Request{
		DataFile:   c.path(c.cfg.DataFile),
		Trajectory: c.path(TrajectoryName(i)),
		Tag:        Tag(i),
		OutDir:     c.cfg.WorkDir,
		Pair:       pair,
		Bond:       c.cfg.RDF.Bond,
		Angle:      c.cfg.RDF.Angle,
	}
}
