package radau5

// Stat accumulates run-time counters across Solve calls.
type Stat struct {
	// Nfeval counts right-hand-side (or residual) evaluations, including
	// those spent on finite-difference Jacobians.
	Nfeval int
	// Njeval counts Jacobian evaluations.
	Njeval int
	// Nsteps counts accepted steps.
	Nsteps int
	// Nrejected counts error-test rejections.
	Nrejected int
	// Ndecomp counts factorizations of the stage matrices.
	Ndecomp int
	// Nitnewton counts Newton iterations in total.
	Nitnewton int
	// Nitmax is the largest Newton iteration count reached between two
	// restarts of the iteration; the count starts over at each restart.
	Nitmax int
	// Nnewtfail counts Newton convergence failures.
	Nnewtfail int
	// Ngeval counts event-function evaluations.
	Ngeval int
}

// Reset zeroes all counters.
func (st *Stat) Reset() { *st = Stat{} }
