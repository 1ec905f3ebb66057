package radau5

import (
	"errors"
	"math"

	"github.com/soypat/radau5/linsol"
)

// estimateError computes the scaled norm of the embedded local error
// estimate. On the first step and after rejections a value above one is
// re-estimated with a bootstrapped right-hand-side evaluation before the
// step is given up on.
func (sol *Solver) estimateError(t float64) (float64, error) {
	d := sol.dim
	for i := 0; i < d; i++ {
		sol.r1[i] = sol.massDiag(i) * (e1*sol.z1[i] + e2*sol.z2[i] + e3*sol.z3[i]) / sol.h
		sol.r2[i] = sol.f0[i] + sol.r1[i]
	}
	if err := sol.solveReal(sol.r2); err != nil {
		return 0, err
	}
	errn := sol.errNorm(sol.r2)
	if (sol.rejected || sol.first) && errn >= 1 {
		for i := 0; i < d; i++ {
			sol.r3[i] = sol.y[i] + sol.r2[i]
		}
		if err := sol.odeF(sol.s1, t, sol.r3); err != nil {
			if errors.Is(err, ErrRecoverable) {
				return 2, nil // keep the rejection, shrink and retry
			}
			return 0, &CallbackError{Op: "rhs", Err: err}
		}
		for i := 0; i < d; i++ {
			sol.r2[i] = sol.s1[i] + sol.r1[i]
		}
		if err := sol.solveReal(sol.r2); err != nil {
			return 0, err
		}
		errn = sol.errNorm(sol.r2)
	}
	return errn, nil
}

// solveReal runs a real back-substitution, treating an iterative solver
// breakdown as a rejection-worthy large error rather than a fatal one.
func (sol *Solver) solveReal(r []float64) error {
	if err := sol.back.SolveReal(r); err != nil {
		if errors.Is(err, linsol.ErrSingular) {
			return err
		}
		for i := range r {
			r[i] = 2 * sol.scal[i] // forces err > 1
		}
	}
	return nil
}

func (sol *Solver) errNorm(v []float64) float64 {
	var sum float64
	for i := range v {
		sum += sq(v[i] / sol.scal[i])
	}
	return math.Max(math.Sqrt(sum/float64(len(v))), 1e-10)
}
