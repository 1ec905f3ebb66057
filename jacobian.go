package radau5

import "math"

// jacobian refreshes the Jacobian at the current state, either from the
// user callback or by first-order forward differences with per-component
// perturbation √ε·max(|yᵢ|, 10⁻⁵). The difference approximation costs
// dim+1 right-hand-side evaluations. On success any cached factorization
// is marked stale.
func (sol *Solver) jacobian(t float64) error {
	sol.Stat.Njeval++
	var err error
	switch {
	case sol.usejac && sol.sparse != nil:
		sol.trip.Start()
		if err = sol.prob.SparseJac(sol.trip, t, sol.y); err == nil {
			sol.sparse.SetJacobian(sol.trip)
		}
	case sol.usejac:
		err = sol.prob.Jac(sol.dense.Jacobian(), t, sol.y)
	default:
		err = sol.fdJacobian(t)
	}
	if err != nil {
		// A smaller step does not change the evaluation point of the
		// Jacobian, so even recoverable failures end the integration.
		return &CallbackError{Op: "jacobian", Err: err}
	}
	sol.curjac = true
	sol.needLU = true
	sol.needjac = false
	return nil
}

func (sol *Solver) fdJacobian(t float64) error {
	d := sol.dim
	jac := sol.dense.Jacobian()
	if err := sol.odeF(sol.fdbase, t, sol.y); err != nil {
		return err
	}
	for j := 0; j < d; j++ {
		delt := math.Sqrt(uround) * math.Max(math.Abs(sol.y[j]), 1e-5)
		sav := sol.y[j]
		sol.y[j] = sav + delt
		err := sol.odeF(sol.fdcol, t, sol.y)
		sol.y[j] = sav
		if err != nil {
			return err
		}
		for i := 0; i < d; i++ {
			jac.Set(i, j, (sol.fdcol[i]-sol.fdbase[i])/delt)
		}
	}
	return nil
}
