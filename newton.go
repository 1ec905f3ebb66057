package radau5

import (
	"errors"
	"math"

	"github.com/soypat/radau5/linsol"
)

// startValues seeds the Newton iteration: zero increments on the first
// step, otherwise the collocation polynomial of the previous step
// extrapolated to the new stage times cᵢ·h/h_old.
func (sol *Solver) startValues() {
	d := sol.dim
	if sol.first || !sol.hasPoly {
		for i := 0; i < d; i++ {
			sol.z1[i], sol.z2[i], sol.z3[i] = 0, 0, 0
			sol.w1[i], sol.w2[i], sol.w3[i] = 0, 0, 0
		}
		return
	}
	for s, zi := range [3][]float64{sol.z1, sol.z2, sol.z3} {
		cq := [3]float64{c1, c2, 1}[s] * sol.h / sol.hold
		for i := 0; i < d; i++ {
			zi[i] = cq * (sol.p0[i] + (cq-c2+1)*(sol.p1[i]+(cq-c1+1)*sol.p2[i]))
		}
	}
	for i := 0; i < d; i++ {
		sol.w1[i] = ti11*sol.z1[i] + ti12*sol.z2[i] + ti13*sol.z3[i]
		sol.w2[i] = ti21*sol.z1[i] + ti22*sol.z2[i] + ti23*sol.z3[i]
		sol.w3[i] = ti31*sol.z1[i] + ti32*sol.z2[i] + ti33*sol.z3[i]
	}
}

// stages evaluates the right-hand side at the three collocation points
// y + Zᵢ, filling s1..s3.
func (sol *Solver) stages(t float64) error {
	d := sol.dim
	for i := 0; i < d; i++ {
		sol.r1[i] = sol.y[i] + sol.z1[i]
	}
	if err := sol.odeF(sol.s1, t+c1*sol.h, sol.r1); err != nil {
		return err
	}
	for i := 0; i < d; i++ {
		sol.r1[i] = sol.y[i] + sol.z2[i]
	}
	if err := sol.odeF(sol.s2, t+c2*sol.h, sol.r1); err != nil {
		return err
	}
	for i := 0; i < d; i++ {
		sol.r1[i] = sol.y[i] + sol.z3[i]
	}
	return sol.odeF(sol.s3, t+sol.h, sol.r1)
}

// newton runs the simplified Newton iteration on the transformed stage
// system, restarting with adjusted step size and fresh factorizations
// until it converges or the restart budget is spent. On success the
// converged stage increments are left in z1..z3.
func (sol *Solver) newton(t float64) error {
	d := sol.dim
	nit := sol.conf.Newton.MaxIter
	for restart := 0; restart < maxNewtonRestarts; restart++ {
		sol.curiter = 0
		sol.faccon = math.Pow(math.Max(sol.faccon, uround), 0.8)
		sol.theta = math.Abs(sol.conf.Newton.Thet)
		if sol.needjac {
			if err := sol.jacobian(t); err != nil {
				return err
			}
		}
		if sol.needLU {
			sol.Stat.Ndecomp++
			if err := sol.back.Factor(sol.h, gamma, alpha, beta); err != nil {
				return err
			}
			sol.needLU = false
		}
		sol.updateScaling()
		sol.startValues()

		var oldnrm, thqold float64
		itfail := true
		breakdown := false // recoverable stage or solve failure
		for it := 0; it < nit; it++ {
			sol.curiter++
			sol.Stat.Nitnewton++
			if sol.curiter > sol.Stat.Nitmax {
				sol.Stat.Nitmax = sol.curiter
			}
			if err := sol.stages(t); err != nil {
				if errors.Is(err, ErrRecoverable) {
					breakdown = true
					break
				}
				return &CallbackError{Op: "rhs", Err: err}
			}
			g, al, be := gamma/sol.h, alpha/sol.h, beta/sol.h
			for i := 0; i < d; i++ {
				mi := sol.massDiag(i)
				f1, f2, f3 := sol.s1[i], sol.s2[i], sol.s3[i]
				sol.r1[i] = ti11*f1 + ti12*f2 + ti13*f3 - g*mi*sol.w1[i]
				sol.r2[i] = ti21*f1 + ti22*f2 + ti23*f3 - mi*(al*sol.w2[i]-be*sol.w3[i])
				sol.r3[i] = ti31*f1 + ti32*f2 + ti33*f3 - mi*(be*sol.w2[i]+al*sol.w3[i])
			}
			if err := sol.solveStage(); err != nil {
				if errors.Is(err, linsol.ErrSingular) {
					return err
				}
				breakdown = true
				break
			}
			var sum float64
			for i := 0; i < d; i++ {
				sum += sq(sol.r1[i]/sol.scal[i]) + sq(sol.r2[i]/sol.scal[i]) + sq(sol.r3[i]/sol.scal[i])
			}
			newnrm := math.Sqrt(sum / float64(3*d))
			if it > 0 {
				thq := newnrm / oldnrm
				if it == 1 {
					sol.theta = thq
				} else {
					sol.theta = math.Sqrt(thq * thqold)
				}
				thqold = thq
				if sol.theta >= 0.99 { // diverging, no point iterating on
					break
				}
				sol.faccon = sol.theta / (1 - sol.theta)
				dyth := sol.faccon * newnrm * math.Pow(sol.theta, float64(nit-it-2)) / sol.fnewt
				if dyth >= 1 { // converging too slowly to make it
					qnewt := math.Max(1e-4, math.Min(20, dyth))
					sol.h *= 0.8 * math.Pow(qnewt, -1/(4+float64(nit-it-2)))
					sol.rejected = true
					break
				}
			}
			oldnrm = math.Max(newnrm, uround)
			for i := 0; i < d; i++ {
				sol.w1[i] += sol.r1[i]
				sol.w2[i] += sol.r2[i]
				sol.w3[i] += sol.r3[i]
				sol.z1[i] = t11*sol.w1[i] + t12*sol.w2[i] + t13*sol.w3[i]
				sol.z2[i] = t21*sol.w1[i] + t22*sol.w2[i] + t23*sol.w3[i]
				sol.z3[i] = t31*sol.w1[i] + t32*sol.w2[i] + t33*sol.w3[i]
			}
			if sol.faccon*newnrm <= sol.fnewt {
				itfail = false
				break
			}
		}
		if !itfail && !breakdown {
			return nil
		}
		sol.Stat.Nnewtfail++
		sol.rejected = true
		if breakdown {
			sol.h *= 0.5
			sol.needLU = true
			continue
		}
		if sol.theta >= 0.99 {
			sol.h *= 0.5
		}
		if sol.curjac {
			sol.needjac, sol.needLU = false, true
		} else {
			sol.needjac, sol.needLU = true, true
		}
	}
	return ErrNewtonFailed
}

// solveStage solves the real system for r1 and the complex system for
// (r2, r3) in place.
func (sol *Solver) solveStage() error {
	if err := sol.back.SolveReal(sol.r1); err != nil {
		return err
	}
	return sol.back.SolveComplex(sol.r2, sol.r3)
}

func sq(x float64) float64 { return x * x }
