package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ibi/internal/rdf"
)

const (
	DefaultTemperature      = 300.0 // K
	DefaultBondK            = 0.259240
	DefaultBondR0           = 4.862605
	DefaultMaxIterations    = 10
	DefaultTableKey         = "SS"
	DefaultFitPoints        = 500
	DefaultTablePoints      = 1000
	DefaultMinDistance      = 2.0 // Å
	DefaultContactThreshold = 0.25
	DefaultSmoothWidth      = 1
	DefaultSmoothPasses     = 2
	DefaultCurve            = "akima"
)

// Config is the immutable record handed to the controller. Distances are in
// Å, energies in kcal/mol and temperatures in K.
type Config struct {
	Temperature   float64  `yaml:"temperature"`
	NProc         int      `yaml:"nproc"`
	DataFile      string   `yaml:"data_file"`
	MaxIterations int      `yaml:"max_iterations"`
	WorkDir       string   `yaml:"work_dir"`
	ReferenceRDF  []string `yaml:"reference_rdf"`

	Bond   BondConfig   `yaml:"bond"`
	Table  TableConfig  `yaml:"table"`
	RDF    RDFConfig    `yaml:"rdf"`
	LAMMPS LAMMPSConfig `yaml:"lammps"`
}

// BondConfig is the harmonic bond, k in kcal/mol/Å² and r0 in Å.
type BondConfig struct {
	K  float64 `yaml:"k"`
	R0 float64 `yaml:"r0"`
}

type TableConfig struct {
	Key               string  `yaml:"key"`
	FitPoints         int     `yaml:"fit_points"`
	Points            int     `yaml:"points"`
	MinDistance       float64 `yaml:"min_distance"`
	ContactThreshold  float64 `yaml:"contact_threshold"`
	SmoothWidth       int     `yaml:"smooth_width"`
	SmoothPasses      int     `yaml:"smooth_passes"`
	Curve             string  `yaml:"curve"`
	ReintegrateEnergy bool    `yaml:"reintegrate_energy"`
	RemoveKinks       bool    `yaml:"remove_kinks"`
}

// RDFConfig holds the histogram ranges. A zero pair range is derived from
// the reference RDF grid.
type RDFConfig struct {
	Pair  rdf.Range `yaml:"pair"`
	Bond  rdf.Range `yaml:"bond"`
	Angle rdf.Range `yaml:"angle"`
}

type LAMMPSConfig struct {
	Binary     string        `yaml:"binary"`
	MPI        string        `yaml:"mpi"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	Steps      int           `yaml:"steps"`
	DumpEvery  int           `yaml:"dump_every"`
	Timestep   float64       `yaml:"timestep"`
}

func DefaultConfig() *Config {
	return &Config{
		Temperature:   DefaultTemperature,
		NProc:         1,
		DataFile:      "cg.data",
		MaxIterations: DefaultMaxIterations,
		WorkDir:       ".",
		ReferenceRDF:  []string{"md-*.rdf"},
		Bond: BondConfig{
			K:  DefaultBondK,
			R0: DefaultBondR0,
		},
		Table: TableConfig{
			Key:               DefaultTableKey,
			FitPoints:         DefaultFitPoints,
			Points:            DefaultTablePoints,
			MinDistance:       DefaultMinDistance,
			ContactThreshold:  DefaultContactThreshold,
			SmoothWidth:       DefaultSmoothWidth,
			SmoothPasses:      DefaultSmoothPasses,
			Curve:             DefaultCurve,
			ReintegrateEnergy: true,
		},
		RDF: RDFConfig{
			Bond:  rdf.Range{Min: 0, Max: 15, Bin: 0.1},
			Angle: rdf.Range{Min: 0, Max: 180, Bin: 1},
		},
		LAMMPS: LAMMPSConfig{
			Binary:    "lmp",
			MPI:       "mpirun",
			Steps:     1000000,
			DumpEvery: 1000,
			Timestep:  10.0,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Check validates the configuration and reports every problem found.
func (c *Config) Check() error {
	var errs []error
	if c.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("temperature must be positive, got %g", c.Temperature))
	}
	if c.NProc < 1 {
		errs = append(errs, fmt.Errorf("nproc must be at least 1, got %d", c.NProc))
	}
	if c.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations))
	}
	if c.DataFile == "" {
		errs = append(errs, errors.New("data_file is required"))
	}
	if len(c.ReferenceRDF) == 0 {
		errs = append(errs, errors.New("reference_rdf needs at least one file pattern"))
	}
	if c.Bond.K < 0 || c.Bond.R0 < 0 {
		errs = append(errs, errors.New("bond k and r0 must not be negative"))
	}
	if c.Table.Key == "" {
		errs = append(errs, errors.New("table.key is required"))
	}
	if c.Table.FitPoints < 2 || c.Table.Points < 2 {
		errs = append(errs, errors.New("table.fit_points and table.points must be at least 2"))
	}
	if c.Table.MinDistance <= 0 {
		errs = append(errs, fmt.Errorf("table.min_distance must be positive, got %g", c.Table.MinDistance))
	}
	if c.Table.ContactThreshold <= 0 {
		errs = append(errs, fmt.Errorf("table.contact_threshold must be positive, got %g", c.Table.ContactThreshold))
	}
	if c.Table.SmoothWidth < 0 || c.Table.SmoothPasses < 0 {
		errs = append(errs, errors.New("table smoothing width and passes must not be negative"))
	}
	if c.RDF.Pair != (rdf.Range{}) {
		if err := c.RDF.Pair.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rdf.pair: %w", err))
		}
	}
	if err := c.RDF.Bond.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rdf.bond: %w", err))
	}
	if err := c.RDF.Angle.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rdf.angle: %w", err))
	}
	if c.LAMMPS.Binary == "" {
		errs = append(errs, errors.New("lammps.binary is required"))
	}
	if c.LAMMPS.RunTimeout < 0 {
		errs = append(errs, errors.New("lammps.run_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
