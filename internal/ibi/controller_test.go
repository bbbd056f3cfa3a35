package ibi

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"

	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ibi/internal/config"
	"github.com/san-kum/ibi/internal/lammps"
	"github.com/san-kum/ibi/internal/numeric"
	"github.com/san-kum/ibi/internal/pairtable"
	"github.com/san-kum/ibi/internal/rdf"
	"github.com/san-kum/ibi/internal/storage"
)

// ljRDF is g(r) = exp(-U/kT) for a 9-6 potential at 300 K.
func ljRDF(sigma, epsilon float64) rdf.Sample {
	r := numeric.Linspace(3.0, 15.0, 241)
	g := make([]float64, len(r))
	kT := pairtable.Boltzmann * 300
	for i, x := range r {
		s := sigma / x
		g[i] = math.Exp(-epsilon * (2*math.Pow(s, 9) - 3*math.Pow(s, 6)) / kT)
	}
	return rdf.Sample{R: r, G: g}
}

type fakeSim struct {
	dir   string
	calls []string
	err   error
	noOut bool
}

func (f *fakeSim) Run(_ context.Context, tag string, p lammps.Params) error {
	f.calls = append(f.calls, tag)
	if f.err != nil {
		return f.err
	}
	if f.noOut {
		return nil
	}
	return os.WriteFile(filepath.Join(f.dir, p.Dump), []byte("ITEM: TIMESTEP\n0\n"), 0644)
}

type fakeMeasurer struct {
	sample rdf.Sample
	reqs   []rdf.Request
}

func (f *fakeMeasurer) Measure(_ context.Context, req rdf.Request) (rdf.Sample, error) {
	f.reqs = append(f.reqs, req)
	return f.sample, nil
}

type fakeComparator struct {
	images []string
	err    error
}

func (f *fakeComparator) Compare(_ int, _, _ rdf.Sample, imagePath string) (float64, error) {
	f.images = append(f.images, imagePath)
	if f.err != nil {
		return 0, f.err
	}
	return 0.05, nil
}

// flakyRecorder returns an error for the next fails calls to Save and
// keeps every record after that.
type flakyRecorder struct {
	fails int
	recs  []storage.IterationRecord
}

func (f *flakyRecorder) Save(rec storage.IterationRecord, _ storage.Table) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("disk full")
	}
	f.recs = append(f.recs, rec)
	return nil
}

var _ = g.Describe("Controller", func() {
	var (
		dir    string
		cfg    config.Config
		sim    *fakeSim
		meas   *fakeMeasurer
		cmp    *fakeComparator
		events []Event
		ctrl   *Controller
	)

	build := func() {
		var err error
		ctrl, err = New(cfg, sim, meas, cmp)
		Expect(err).NotTo(HaveOccurred())
		ctrl.AddObserver(ObserverFunc(func(ev Event) { events = append(events, ev) }))
		Expect(ctrl.Seed(ljRDF(5.0, 0.3))).To(Succeed())
	}

	g.BeforeEach(func() {
		dir = g.GinkgoT().TempDir()
		cfg = *config.DefaultConfig()
		cfg.WorkDir = dir
		cfg.MaxIterations = 2
		sim = &fakeSim{dir: dir}
		meas = &fakeMeasurer{sample: ljRDF(5.0, 0.35)}
		cmp = &fakeComparator{}
		events = nil
	})

	g.Describe("New", func() {
		g.It("rejects an invalid configuration", func() {
			cfg.Temperature = -1
			_, err := New(cfg, sim, meas, cmp)
			Expect(err).To(HaveOccurred())
		})

		g.It("rejects an unknown curve kind", func() {
			cfg.Table.Curve = "bezier"
			_, err := New(cfg, sim, meas, cmp)
			Expect(err).To(MatchError(ContainSubstring("unknown curve kind")))
		})
	})

	g.Context("with max_iterations = 0", func() {
		g.It("keeps only the seed entry and runs no simulation", func() {
			cfg.MaxIterations = 0
			build()

			Expect(ctrl.Run(context.Background())).To(Succeed())
			Expect(ctrl.Table().Len()).To(Equal(1))
			Expect(sim.calls).To(BeEmpty())
			Expect(ctrl.State()).To(Equal(Done))
		})
	})

	g.Context("running two iterations", func() {
		g.BeforeEach(func() {
			build()
			Expect(ctrl.Run(context.Background())).To(Succeed())
		})

		g.It("simulates every iteration in order", func() {
			Expect(sim.calls).To(Equal([]string{"cg-00", "cg-01"}))
			Expect(ctrl.Iteration()).To(Equal(2))
			Expect(ctrl.Table().Len()).To(Equal(3))
		})

		g.It("writes one pair table per iteration", func() {
			for i := 0; i < 2; i++ {
				key, e, err := pairtable.ReadFile(filepath.Join(dir, TableName(i)))
				Expect(err).NotTo(HaveOccurred())
				Expect(key).To(Equal("SS"))
				Expect(e.Len()).To(Equal(cfg.Table.Points))
				Expect(e.Distance[0]).To(BeNumerically("~", 2.0, 1e-6))
				Expect(e.Energy[e.Len()-1]).To(BeNumerically("~", 0, 1e-9))
			}
		})

		g.It("measures the trajectory over the table range", func() {
			Expect(meas.reqs).To(HaveLen(2))
			req := meas.reqs[1]
			Expect(req.Trajectory).To(Equal(filepath.Join(dir, "cg-01.lammpstrj")))
			Expect(req.Tag).To(Equal("cg-01"))
			Expect(req.Pair.Min).To(BeNumerically("~", 2.0, 1e-9))
			Expect(req.Pair.Bin).To(Equal(DefaultPairBin))
			Expect(req.Angle).To(Equal(rdf.Range{Min: 0, Max: 180, Bin: 1}))
			Expect(cmp.images).To(Equal([]string{
				filepath.Join(dir, "rdf-0.png"),
				filepath.Join(dir, "rdf-1.png"),
			}))
		})

		g.It("reports the state transitions", func() {
			var states []State
			for _, ev := range events {
				Expect(ev.Err).NotTo(HaveOccurred())
				states = append(states, ev.State)
			}
			one := []State{BuildTable, MaybeSimulate, MeasureRDF, Correct, Advance}
			Expect(states).To(Equal(append(append(append([]State{}, one...), one...), Done)))
		})

		g.It("keeps every table energy zero at the cutoff", func() {
			for i := 0; i < ctrl.Table().Len(); i++ {
				e, err := ctrl.Table().At(i)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Energy[e.Len()-1]).To(BeNumerically("~", 0, 1e-12))
			}
		})
	})

	g.Context("when the trajectory already exists", func() {
		g.BeforeEach(func() {
			cfg.MaxIterations = 1
			Expect(os.WriteFile(filepath.Join(dir, "cg-00.lammpstrj"), []byte("x"), 0644)).To(Succeed())
			build()
		})

		g.It("does not run the simulation", func() {
			Expect(ctrl.ShouldRunSimulation(0)).To(BeFalse())
			Expect(ctrl.ShouldRunSimulation(1)).To(BeTrue())

			Expect(ctrl.Run(context.Background())).To(Succeed())
			Expect(sim.calls).To(BeEmpty())
			Expect(meas.reqs).To(HaveLen(1))

			var skipped bool
			for _, ev := range events {
				if ev.State == MaybeSimulate {
					skipped = ev.Skipped
				}
			}
			Expect(skipped).To(BeTrue())
		})
	})

	g.Context("when the simulation fails", func() {
		g.It("aborts before measuring", func() {
			sim.err = errors.New("exit status 1")
			build()

			err := ctrl.Run(context.Background())
			Expect(err).To(MatchError(ErrSimulationFailed))

			var ierr *IterationError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.Iteration).To(Equal(0))
			Expect(ierr.State).To(Equal(MaybeSimulate))
			Expect(meas.reqs).To(BeEmpty())
			Expect(ctrl.Table().Len()).To(Equal(1))
			Expect(events[len(events)-1].Err).To(HaveOccurred())
		})

		g.It("aborts when no trajectory was written", func() {
			sim.noOut = true
			build()

			err := ctrl.Run(context.Background())
			Expect(err).To(MatchError(ErrMissingTrajectory))
			Expect(meas.reqs).To(BeEmpty())
		})
	})

	g.Context("when the measured RDF has no contact region", func() {
		g.It("aborts in the correction step", func() {
			meas.sample = rdf.Sample{R: []float64{2, 3, 4}, G: []float64{0.1, 0.1, 0.2}}
			build()

			err := ctrl.Run(context.Background())
			Expect(err).To(MatchError(pairtable.ErrContactNotResolved))
			var ierr *IterationError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.State).To(Equal(Correct))
			Expect(ctrl.Iteration()).To(Equal(0))
		})
	})

	g.Context("with a recorder", func() {
		g.It("stores one record per iteration", func() {
			build()
			st := storage.New(filepath.Join(dir, ".ibi"))
			ctrl.SetRecorder(st)

			Expect(ctrl.Run(context.Background())).To(Succeed())
			recs, err := st.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[1].Table).To(Equal("pair.table.1"))
			Expect(recs[1].Deviation).To(Equal(0.05))
			Expect(recs[1].Sigma).To(BeNumerically(">", 0))
		})
	})

	g.Context("when saving the record fails", func() {
		g.It("rolls back the correction so a retry rebuilds the same table", func() {
			cfg.MaxIterations = 1
			build()
			rec := &flakyRecorder{fails: 1}
			ctrl.SetRecorder(rec)
			seed, err := ctrl.Table().At(0)
			Expect(err).NotTo(HaveOccurred())

			err = ctrl.Step(context.Background())
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			var ierr *IterationError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.State).To(Equal(Advance))
			Expect(ctrl.Iteration()).To(Equal(0))
			Expect(ctrl.Table().Len()).To(Equal(1))

			Expect(ctrl.Step(context.Background())).To(Succeed())
			Expect(ctrl.Iteration()).To(Equal(1))
			Expect(ctrl.Table().Len()).To(Equal(2))
			Expect(rec.recs).To(HaveLen(1))

			_, written, err := pairtable.ReadFile(filepath.Join(dir, TableName(0)))
			Expect(err).NotTo(HaveOccurred())
			for _, k := range []int{0, 500, written.Len() - 2} {
				Expect(written.Force[k]).To(BeNumerically("~", seed.Force[k], 1e-8*(1+math.Abs(seed.Force[k]))))
			}
		})
	})

	g.Context("when the comparison fails", func() {
		g.It("flags the record instead of reporting a perfect match", func() {
			cfg.MaxIterations = 1
			cmp.err = errors.New("no overlap")
			build()
			rec := &flakyRecorder{}
			ctrl.SetRecorder(rec)

			Expect(ctrl.Run(context.Background())).To(Succeed())
			Expect(rec.recs).To(HaveLen(1))
			Expect(rec.recs[0].CompareFailed).To(BeTrue())

			var advanced bool
			for _, ev := range events {
				if ev.State == Advance {
					advanced = true
					Expect(ev.CompareFailed).To(BeTrue())
				}
			}
			Expect(advanced).To(BeTrue())
		})
	})

	g.It("refuses to step before seeding", func() {
		c, err := New(cfg, sim, meas, cmp)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Step(context.Background())).To(MatchError(ErrNotSeeded))
	})

	g.It("stops on a canceled context", func() {
		build()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(ctrl.Run(ctx)).To(MatchError(context.Canceled))
		Expect(sim.calls).To(BeEmpty())
	})

	g.It("seeds from the configured reference files", func() {
		Expect(rdf.WriteFile(filepath.Join(dir, "md-1.rdf"), ljRDF(5.0, 0.3))).To(Succeed())
		cfg.MaxIterations = 0
		c, err := New(cfg, sim, meas, cmp)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Run(context.Background())).To(Succeed())
		Expect(c.Table().Len()).To(Equal(1))
	})
})
