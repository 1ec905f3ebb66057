package radau5

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Linear solver selection for Config.Linear.Solver.
const (
	SolverDense  = "DENSE"
	SolverSparse = "SPARSE"
)

// Config modifies Solver behaviour/output. Build it with DefaultConfig and
// override fields before calling New; it is validated there and treated as
// immutable while integrating.
type Config struct {
	// InitH is the first attempted step size.
	InitH float64 `yaml:"inith"`
	// MaxH bounds the step size from above.
	MaxH float64 `yaml:"maxh"`
	// Rtol is the relative tolerance.
	Rtol float64 `yaml:"rtol"`
	// Atol is the absolute tolerance, either one value for all components
	// or one value per component.
	Atol []float64 `yaml:"atol"`
	// MaxSteps caps accepted plus rejected step attempts per Solve call.
	MaxSteps int `yaml:"maxsteps"`
	// NumJac forces the finite-difference Jacobian even when the problem
	// supplies one.
	NumJac bool `yaml:"numjac"`
	// TimeLimit aborts integration cooperatively once exceeded; it is
	// checked at the per-step report point. Zero disables the check.
	TimeLimit time.Duration `yaml:"timelimit"`
	// OutputTimes switches output to communication-point mode: results are
	// interpolated at exactly these (ascending) times instead of at every
	// accepted step.
	OutputTimes []float64 `yaml:"outputtimes"`

	Newton struct {
		// MaxIter is the iteration cap per factorization.
		MaxIter int `yaml:"maxiter"`
		// Thet is the contraction threshold under which Jacobian and
		// factorization may be reused. Negative disables all reuse.
		Thet float64 `yaml:"thet"`
		// Fnewt is the Newton stopping tolerance; zero selects
		// max(10·ε/rtol, min(0.03, √rtol)).
		Fnewt float64 `yaml:"fnewt"`
	} `yaml:"newton"`

	Step struct {
		// Safe is the safety factor of the controller.
		Safe float64 `yaml:"safe"`
		// Fac1 and Fac2 clamp the step-size change per step to
		// [1/fac2, 1/fac1] in the quotient convention.
		Fac1 float64 `yaml:"fac1"`
		Fac2 float64 `yaml:"fac2"`
		// Quot1 and Quot2 bound the hysteresis band in which the step
		// size is held to avoid refactorizations.
		Quot1 float64 `yaml:"quot1"`
		Quot2 float64 `yaml:"quot2"`
	} `yaml:"step"`

	Linear struct {
		// Solver selects the back-end, SolverDense or SolverSparse.
		Solver string `yaml:"solver"`
		// Nnz is the structural nonzero count of the sparse Jacobian.
		Nnz int `yaml:"nnz"`
		// NumThreads is advisory and consumed by the sparse back-end only.
		NumThreads int `yaml:"numthreads"`
	} `yaml:"linear"`
}

// DefaultConfig returns the configuration the integrator was tuned with.
func DefaultConfig() Config {
	var c Config
	c.InitH = 0.01
	c.MaxH = math.Inf(1)
	c.Rtol = 1e-6
	c.Atol = []float64{1e-6}
	c.MaxSteps = 100000
	c.Newton.MaxIter = 7
	c.Newton.Thet = 1e-3
	c.Step.Safe = 0.9
	c.Step.Fac1 = 0.2
	c.Step.Fac2 = 8.0
	c.Step.Quot1 = 1.0
	c.Step.Quot2 = 1.2
	c.Linear.Solver = SolverDense
	c.Linear.NumThreads = 1
	return c
}

// SetTol sets a scalar absolute and relative tolerance pair.
func (c *Config) SetTol(atol, rtol float64) {
	c.Atol = []float64{atol}
	c.Rtol = rtol
}

// atol returns the absolute tolerance of component i.
func (c *Config) atol(i int) float64 {
	if len(c.Atol) > 1 {
		return c.Atol[i]
	}
	return c.Atol[0]
}

func verifyConfig(cfg *Config, dim int) error {
	if cfg.InitH <= 0 {
		return fmt.Errorf("config: initial step size must be positive. got %v", cfg.InitH)
	}
	if cfg.MaxH <= 0 {
		return fmt.Errorf("config: maximum step size must be positive. got %v", cfg.MaxH)
	}
	if cfg.Rtol <= 0 {
		return fmt.Errorf("config: relative tolerance must be positive. got %v", cfg.Rtol)
	}
	if len(cfg.Atol) != 1 && len(cfg.Atol) != dim {
		return fmt.Errorf("config: absolute tolerance must have 1 or %d components. got %d", dim, len(cfg.Atol))
	}
	for _, a := range cfg.Atol {
		if a <= 0 {
			return fmt.Errorf("config: absolute tolerances must be positive")
		}
	}
	if floats.HasNaN(cfg.Atol) {
		return fmt.Errorf("config: absolute tolerance contains NaN")
	}
	if cfg.MaxSteps < 1 {
		return fmt.Errorf("config: maxsteps must be at least 1. got %d", cfg.MaxSteps)
	}
	if cfg.Newton.MaxIter < 1 {
		return fmt.Errorf("config: newton iteration cap must be at least 1. got %d", cfg.Newton.MaxIter)
	}
	if cfg.Step.Safe <= 0 || cfg.Step.Safe >= 1 {
		return fmt.Errorf("config: safety factor must lie in (0, 1). got %v", cfg.Step.Safe)
	}
	if cfg.Step.Fac1 <= 0 || cfg.Step.Fac1 >= 1 || cfg.Step.Fac2 <= 1 {
		return fmt.Errorf("config: step clamps need fac1 in (0,1) and fac2 > 1. got %v, %v", cfg.Step.Fac1, cfg.Step.Fac2)
	}
	if cfg.Step.Quot1 > 1 || cfg.Step.Quot2 < 1 || cfg.Step.Quot1 > cfg.Step.Quot2 {
		return fmt.Errorf("config: hysteresis band needs quot1 <= 1 <= quot2. got %v, %v", cfg.Step.Quot1, cfg.Step.Quot2)
	}
	switch cfg.Linear.Solver {
	case SolverDense, SolverSparse:
	default:
		return fmt.Errorf("config: linear solver must be %q or %q. got %q", SolverDense, SolverSparse, cfg.Linear.Solver)
	}
	if cfg.Linear.Solver == SolverSparse {
		if cfg.Linear.Nnz <= 0 {
			return fmt.Errorf("config: sparse jacobian nonzero count must be positive. got %d", cfg.Linear.Nnz)
		}
		if cfg.Linear.Nnz > dim*dim+dim {
			return fmt.Errorf("config: sparse jacobian nonzero count %d infeasible for dimension %d", cfg.Linear.Nnz, dim)
		}
	}
	if len(cfg.OutputTimes) > 0 && !sort.Float64sAreSorted(cfg.OutputTimes) {
		return fmt.Errorf("config: output times must be ascending")
	}
	return nil
}
