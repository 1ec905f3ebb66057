// Package linsol factors and solves the linear systems arising in the
// transformed Newton iteration of a three-stage Radau IIA step.
//
// A step of size h with Jacobian J and mass matrix M requires solutions of
// one real system
//	(γ/h)·M − J
// and one complex system
//	((α+iβ)/h)·M − J
// where (γ, α±iβ) are the eigenvalues of the inverse Butcher matrix. The
// back-ends here differ only in how those systems are represented and
// solved; the caller hands them a Jacobian, calls Factor once per step
// size, and then solves as many right-hand sides as the iteration needs.
package linsol

import "errors"

// Mass selects the mass-matrix structure of the iteration matrices.
type Mass int

const (
	// Identity is the ODE case, M = I.
	Identity Mass = iota
	// SemiExplicit is the stacked index-1 DAE case, M = diag(I, 0):
	// the first half of the system is differential, the second algebraic.
	SemiExplicit
)

// diag returns the i-th diagonal entry of M for a system of size dim.
func (m Mass) diag(i, dim int) float64 {
	if m == SemiExplicit && i >= dim/2 {
		return 0
	}
	return 1
}

// ErrSingular reports a zero pivot in the real or the complex iteration
// matrix; a pivot that is subnormal but not zero is not detected.
// Integration cannot continue with the current Jacobian.
var ErrSingular = errors.New("linsol: iteration matrix is singular")

// Backend is the linear-solver capability required by the integrator.
//
// Implementations own their factorization memory and must release it on
// Free. Solve methods operate in place on the right-hand side slices.
type Backend interface {
	// Factor builds and prepares the real and complex stage matrices for
	// the given step size and eigenvalues.
	Factor(h, gamma, alpha, beta float64) error
	// SolveReal solves the real system, overwriting r with the solution.
	SolveReal(r []float64) error
	// SolveComplex solves the complex system for the right-hand side
	// re + i·im, overwriting both slices with the solution parts.
	SolveComplex(re, im []float64) error
	// Free releases factorization memory. It is idempotent.
	Free()
}
