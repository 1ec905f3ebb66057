package radau5

import (
	"fmt"

	"github.com/soypat/radau5/linsol"
	"gonum.org/v1/gonum/mat"
)

// Func evaluates the right-hand side of y' = f(t, y) into dst.
//
// Returning ErrRecoverable (possibly wrapped) asks the integrator to
// retry with a smaller step; any other non-nil error aborts integration
// and is surfaced through a CallbackError.
type Func func(dst []float64, t float64, y []float64) error

// ResFunc evaluates the residual F(t, y, v) of a semi-explicit index-1
// DAE into dst. The error convention matches Func.
type ResFunc func(dst []float64, t float64, y, v []float64) error

// JacFunc writes the dense Jacobian df/dy at (t, y) into dst.
type JacFunc func(dst *mat.Dense, t float64, y []float64) error

// SparseJacFunc assembles the sparse Jacobian df/dy at (t, y) into the
// triplet. The callback must call dst.Start before putting entries.
type SparseJacFunc func(dst *linsol.Triplet, t float64, y []float64) error

// EventFunc evaluates the state-event root functions g(t, y, sw) into dst.
// A sign change of any component between accepted steps triggers event
// location.
type EventFunc func(dst []float64, t float64, y []float64, sw []bool) error

// ReportFunc is invoked exactly once per accepted step, in order, with the
// step end point (the event point when the step was truncated). For DAE
// problems y is the stacked (y, v) state. A non-nil error aborts
// integration.
type ReportFunc func(t float64, y []float64) error

// Problem describes the system to integrate. It is immutable after New.
//
// Exactly one of Fcn (explicit ODE) and Res (semi-explicit index-1 DAE,
// integrated as the stacked system y' = v, 0 = F(t, y, v)) must be set.
type Problem struct {
	// Ndim is the number of differential variables; the DAE stacked
	// system has size 2·Ndim.
	Ndim int

	Fcn Func
	Res ResFunc

	// Jac and SparseJac are optional analytic Jacobians. SparseJac is
	// required by the sparse linear solver. The DAE path always uses
	// finite differences on the stacked system.
	Jac       JacFunc
	SparseJac SparseJacFunc

	// Events, of dimension NEvents, enables state-event location.
	Events  EventFunc
	NEvents int

	// Sw is the boolean mode vector passed through to Events. The solver
	// observes it but does not own it: the host may flip switches while
	// reacting to an event.
	Sw []bool
}

func (p *Problem) dae() bool { return p.Res != nil }

// dim is the size of the integrated system: Ndim for an ODE, 2·Ndim for
// the stacked DAE.
func (p *Problem) dim() int {
	if p.dae() {
		return 2 * p.Ndim
	}
	return p.Ndim
}

func verifyProblem(p *Problem) error {
	if p.Ndim < 1 {
		return fmt.Errorf("problem: dimension must be at least 1. got %d", p.Ndim)
	}
	if (p.Fcn == nil) == (p.Res == nil) {
		return fmt.Errorf("problem: exactly one of Fcn and Res must be set")
	}
	if p.Events != nil && p.NEvents < 1 {
		return fmt.Errorf("problem: NEvents must be positive when Events is set. got %d", p.NEvents)
	}
	if p.Events == nil && p.NEvents != 0 {
		return fmt.Errorf("problem: NEvents set without an Events function")
	}
	return nil
}
