// Package radau5 integrates stiff systems of ordinary differential
// equations and semi-explicit index-1 differential-algebraic equations
// with the three-stage Radau IIA implicit Runge-Kutta method of order 5.
//
// The method solves its stage equations with a simplified Newton
// iteration on a block-diagonalized system (one real and one complex
// linear solve per iteration), controls the step size with Gustafsson's
// predictive controller, reuses Jacobians and factorizations while the
// iteration contracts fast enough, and carries a cubic collocation
// polynomial for dense output between steps. The polynomial also drives
// the location of state events by bisection.
//
// The solver is single threaded and not reentrant; distinct Solver
// instances may run concurrently when their callbacks are independent.
package radau5

import (
	"math"
	"time"

	"github.com/soypat/radau5/linsol"
	"gonum.org/v1/gonum/floats"
)

// uround is the machine epsilon for IEEE double precision.
const uround = 1.0 / (1 << 52)

// newton outer restart budget: factorizations spent on one attempted step
// before the iteration is declared failed.
const maxNewtonRestarts = 20

// Solver integrates a Problem. Create it with New, optionally attach a
// Logger and a Report callback, then call Solve or SolveDAE. A Solver
// must not be shared between goroutines.
type Solver struct {
	// Logger, when set, receives solver warnings. Messages are flushed
	// when a Solve call returns.
	Logger *Logger
	// Report, when set, is invoked once per accepted step.
	Report ReportFunc
	// Stat accumulates counters across Solve calls.
	Stat Stat

	conf Config
	prob Problem

	n   int // user dimension
	dim int // integrated dimension: n for ODE, 2n for DAE

	back   linsol.Backend
	dense  *linsol.Dense
	sparse *linsol.Sparse
	trip   *linsol.Triplet
	usejac bool

	warnings []string // deferred to the first Solve, when a Logger exists

	fnewt    float64
	deadline time.Time

	// step state
	t, h          float64
	hold, holdold float64
	hacc, errold  float64
	faccon, theta float64
	curiter       int

	first, rejected         bool
	curjac, needjac, needLU bool

	y    []float64 // current stacked state
	yc   []float64 // state at tnew, anchor of the collocation polynomial
	f0   []float64
	scal []float64

	z1, z2, z3 []float64 // stage increments
	w1, w2, w3 []float64 // transformed iterates
	r1, r2, r3 []float64 // rhs / increments of the linear solves
	s1, s2, s3 []float64 // stage function values

	p0, p1, p2 []float64 // collocation polynomial
	told, tnew float64
	hasPoly    bool

	fdbase, fdcol []float64 // finite-difference scratch

	gOld, gNew, gTmp []float64
	eventInfo        []int

	outIdx int // next pending communication point

	freed bool
}

// New validates the problem and configuration and builds a Solver.
// Requesting the sparse back-end without a sparse Jacobian downgrades to
// dense with a logged warning; a DAE with an analytic Jacobian downgrades
// to finite differences the same way.
func New(p Problem, cfg Config) (*Solver, error) {
	if err := verifyProblem(&p); err != nil {
		return nil, err
	}
	dim := p.dim()
	if err := verifyConfig(&cfg, dim); err != nil {
		return nil, err
	}
	sol := &Solver{conf: cfg, prob: p, n: p.Ndim, dim: dim}

	sol.usejac = (p.Jac != nil || p.SparseJac != nil) && !cfg.NumJac
	if p.dae() && sol.usejac {
		sol.usejac = false
		sol.warnings = append(sol.warnings,
			"analytic jacobian ignored for DAE problems; using finite differences on the stacked system\n")
	}

	mass := linsol.Identity
	if p.dae() {
		mass = linsol.SemiExplicit
	}
	useSparse := cfg.Linear.Solver == SolverSparse
	if useSparse && (!sol.usejac || p.SparseJac == nil) {
		useSparse = false
		sol.warnings = append(sol.warnings,
			"switching to DENSE linear solver since a sparse jacobian has not been provided\n")
	}
	if useSparse {
		sol.sparse = linsol.NewSparse(dim, mass, cfg.Linear.Nnz, cfg.Linear.NumThreads)
		sol.trip = linsol.NewTriplet(dim, cfg.Linear.Nnz)
		sol.back = sol.sparse
	} else {
		sol.dense = linsol.NewDense(dim, mass)
		sol.back = sol.dense
	}
	return sol, nil
}

// alloc sizes the work vectors on the first integrate call.
func (sol *Solver) alloc() {
	if sol.y != nil {
		return
	}
	d := sol.dim
	sol.y = make([]float64, d)
	sol.yc = make([]float64, d)
	sol.f0 = make([]float64, d)
	sol.scal = make([]float64, d)
	sol.z1, sol.z2, sol.z3 = make([]float64, d), make([]float64, d), make([]float64, d)
	sol.w1, sol.w2, sol.w3 = make([]float64, d), make([]float64, d), make([]float64, d)
	sol.r1, sol.r2, sol.r3 = make([]float64, d), make([]float64, d), make([]float64, d)
	sol.s1, sol.s2, sol.s3 = make([]float64, d), make([]float64, d), make([]float64, d)
	sol.p0, sol.p1, sol.p2 = make([]float64, d), make([]float64, d), make([]float64, d)
	if !sol.usejac {
		sol.fdbase = make([]float64, d)
		sol.fdcol = make([]float64, d)
	}
	if sol.prob.Events != nil {
		m := sol.prob.NEvents
		sol.gOld = make([]float64, m)
		sol.gNew = make([]float64, m)
		sol.gTmp = make([]float64, m)
		sol.eventInfo = make([]int, m)
	}
}

// odeF evaluates the stacked right-hand side of M·Y' = Φ(t, Y) into dst.
func (sol *Solver) odeF(dst []float64, t float64, y []float64) error {
	sol.Stat.Nfeval++
	if !sol.prob.dae() {
		return sol.prob.Fcn(dst, t, y)
	}
	n := sol.n
	copy(dst[:n], y[n:])
	return sol.prob.Res(dst[n:], t, y[:n], y[n:])
}

// massDiag is the i-th diagonal entry of the mass matrix.
func (sol *Solver) massDiag(i int) float64 {
	if sol.prob.dae() && i >= sol.n {
		return 0
	}
	return 1
}

// updateScaling refreshes the tolerance scaling for the current state and
// step size. Algebraic components of the stacked DAE system carry index 2
// and their scale is divided by h.
func (sol *Solver) updateScaling() {
	for i := 0; i < sol.dim; i++ {
		s := sol.conf.atol(i) + sol.conf.Rtol*math.Abs(sol.y[i])
		if sol.prob.dae() && i >= sol.n {
			s /= sol.h
		}
		sol.scal[i] = s
	}
}

// Interpolate evaluates the continuous output of the most recent accepted
// step. It is valid for t in [t_old, t_new] of that step; for DAE
// problems the second return holds the interpolated derivatives v(t).
func (sol *Solver) Interpolate(t float64) (y, yd []float64, err error) {
	if !sol.hasPoly {
		return nil, nil, ErrInterpolation
	}
	slack := 10 * uround * math.Max(math.Abs(sol.tnew), 1)
	if t < sol.told-slack || t > sol.tnew+slack {
		return nil, nil, ErrInterpolation
	}
	out := make([]float64, sol.dim)
	sol.contOut(out, t)
	if !sol.prob.dae() {
		return out, nil, nil
	}
	return out[:sol.n], out[sol.n:], nil
}

// Free releases the linear back-end. It is idempotent; the solver must
// not be used afterwards.
func (sol *Solver) Free() {
	if sol.freed {
		return
	}
	sol.freed = true
	if sol.back != nil {
		sol.back.Free()
	}
}

func validState(y []float64, want int) bool {
	return len(y) == want && !floats.HasNaN(y)
}
