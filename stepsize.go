package radau5

import "math"

// adjustStepsize proposes the next step size from the scaled error
// estimate. With predict set (after an accepted step) the Gustafsson
// predictive term is blended in and the acceptance memory updated. The
// proposal honours the per-step clamps, the hysteresis band in which the
// current step is kept, and the maxh ceiling; a proposal below
// ε·max(|t|, 1) is fatal.
func (sol *Solver) adjustStepsize(t, err float64, predict bool) (float64, error) {
	cfg := &sol.conf.Step
	nit := float64(sol.conf.Newton.MaxIter)
	fac := math.Min(cfg.Safe, cfg.Safe*(2*nit+1)/(2*nit+float64(sol.curiter)))
	quot := math.Max(1/cfg.Fac2, math.Min(1/cfg.Fac1, math.Pow(err, 0.25)/fac))
	hnew := sol.h / quot
	if predict {
		if !sol.first {
			facgus := (sol.hacc / sol.h) * math.Pow(err*err/sol.errold, 0.25) / cfg.Safe
			facgus = math.Max(1/cfg.Fac2, math.Min(1/cfg.Fac1, facgus))
			quot = math.Max(quot, facgus)
			hnew = sol.h / quot
		}
		sol.hacc = sol.h
	}
	if qt := hnew / sol.h; qt >= cfg.Quot1 && qt <= cfg.Quot2 {
		hnew = sol.h
	}
	if hnew > sol.conf.MaxH {
		hnew = sol.conf.MaxH
	}
	if sol.first && err >= 1 {
		hnew = sol.h / 10
	}
	if hnew < uround*math.Max(math.Abs(t), 1) {
		return hnew, ErrStepTooSmall
	}
	return hnew, nil
}

// reuseOnAccept decides whether the Jacobian and the factorizations
// survive into the next step: both when the step size repeats and the
// iteration contracted below thet, the Jacobian alone when only the
// contraction test passes. A negative thet disables reuse entirely.
func (sol *Solver) reuseOnAccept(hnew float64) {
	thet := sol.conf.Newton.Thet
	switch {
	case thet < 0:
		sol.needjac, sol.needLU = true, true
	case sol.holdold == hnew && sol.theta <= thet:
		sol.needjac, sol.needLU = false, false
	case sol.theta <= thet:
		sol.needjac, sol.needLU = false, true
	default:
		sol.needjac, sol.needLU = true, true
	}
}

// reuseOnReject keeps a Jacobian that is current, or one whose iteration
// converged immediately, across an error-test rejection.
func (sol *Solver) reuseOnReject() {
	if sol.curjac || sol.curiter == 1 {
		sol.needjac, sol.needLU = false, true
	} else {
		sol.needjac, sol.needLU = true, true
	}
}
