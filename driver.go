package radau5

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Result collects the output of one Solve call.
type Result struct {
	// Status is COMPLETE when tf was reached and EVENT when integration
	// stopped at a located state event; negative values report the fatal
	// condition that also comes back as the error.
	Status Status
	// T and Y hold the reported points: every accepted step, or the
	// requested communication points when Config.OutputTimes is set. On
	// an event the last point is (t*, y(t*)).
	T []float64
	Y [][]float64
	// Yd holds the reported derivative states v of a DAE problem.
	Yd [][]float64
	// EventInfo encodes crossing directions when Status is StatusEvent:
	// +1 rising, −1 falling, 0 not crossed.
	EventInfo []int
}

// Solve integrates an explicit ODE problem from (t0, y0) to tf.
//
// It returns when tf is reached, when a state event is located (the host
// may adjust state and mode vector and call Solve again from the event
// point), or fatally. The fatal error is also encoded in Result.Status.
func (sol *Solver) Solve(t0, tf float64, y0 []float64) (*Result, error) {
	if sol.prob.dae() {
		return nil, fmt.Errorf("radau5: Solve called on a DAE problem; use SolveDAE")
	}
	if !validState(y0, sol.n) {
		return nil, fmt.Errorf("radau5: initial state must have %d finite components", sol.n)
	}
	return sol.integrate(t0, tf, y0, nil)
}

// SolveDAE integrates a semi-explicit index-1 DAE problem from the
// consistent initial condition (t0, y0, v0) to tf.
func (sol *Solver) SolveDAE(t0, tf float64, y0, v0 []float64) (*Result, error) {
	if !sol.prob.dae() {
		return nil, fmt.Errorf("radau5: SolveDAE called on an ODE problem; use Solve")
	}
	if !validState(y0, sol.n) || !validState(v0, sol.n) {
		return nil, fmt.Errorf("radau5: initial state and derivative must have %d finite components", sol.n)
	}
	return sol.integrate(t0, tf, y0, v0)
}

func (sol *Solver) integrate(t0, tf float64, y0, v0 []float64) (*Result, error) {
	defer sol.Logger.flush()
	if sol.freed {
		return nil, fmt.Errorf("radau5: solver used after Free")
	}
	if tf <= t0 {
		return nil, fmt.Errorf("radau5: final time %v must exceed initial time %v", tf, t0)
	}
	sol.alloc()
	for _, w := range sol.warnings {
		sol.Logger.Warnf(w)
	}
	sol.warnings = nil

	copy(sol.y[:sol.n], y0)
	if v0 != nil {
		copy(sol.y[sol.n:], v0)
	}
	sol.t = t0
	sol.h = math.Min(sol.conf.InitH, math.Min(sol.conf.MaxH, tf-t0))
	sol.hold = sol.h
	sol.holdold = 0
	sol.hacc = sol.h
	sol.errold = 1e-2
	sol.faccon = 1
	sol.first = true
	sol.rejected = false
	sol.curjac = false
	sol.needjac = true
	sol.needLU = true
	sol.hasPoly = false
	sol.fnewt = sol.conf.Newton.Fnewt
	if sol.fnewt == 0 {
		sol.fnewt = math.Max(10*uround/sol.conf.Rtol, math.Min(0.03, math.Sqrt(sol.conf.Rtol)))
	}
	sol.deadline = time.Time{}
	if sol.conf.TimeLimit > 0 {
		sol.deadline = time.Now().Add(sol.conf.TimeLimit)
	}

	res := &Result{Status: StatusOK}
	sol.outIdx = 0
	if pts := sol.conf.OutputTimes; len(pts) > 0 {
		for sol.outIdx < len(pts) && pts[sol.outIdx] <= t0 {
			sol.emitPoint(res, pts[sol.outIdx], sol.y)
			sol.outIdx++
		}
	} else {
		sol.emitPoint(res, t0, sol.y)
	}

	if err := sol.odeF(sol.f0, t0, sol.y); err != nil {
		return sol.fail(res, &CallbackError{Op: "rhs", Err: err})
	}
	if sol.prob.Events != nil {
		if err := sol.evalEvents(sol.gOld, t0, sol.y); err != nil {
			return sol.fail(res, err)
		}
	}

	tdir := 10 * uround * math.Max(math.Abs(tf), 1)
	attempts := 0
	for sol.t < tf-tdir {
		if attempts >= sol.conf.MaxSteps {
			return sol.fail(res, ErrMaxSteps)
		}
		attempts++
		if sol.t+1.0001*sol.h >= tf {
			sol.h = tf - sol.t
		}

		if err := sol.newton(sol.t); err != nil {
			return sol.fail(res, err)
		}
		errn, err := sol.estimateError(sol.t)
		if err != nil {
			return sol.fail(res, err)
		}
		if errn > 1 {
			sol.rejected = true
			sol.Stat.Nrejected++
			hnew, aerr := sol.adjustStepsize(sol.t, errn, false)
			if aerr != nil {
				return sol.fail(res, aerr)
			}
			sol.h = hnew
			sol.reuseOnReject()
			continue
		}

		// step accepted
		sol.Stat.Nsteps++
		tn := sol.t + sol.h
		if math.Abs(tf-tn) < tdir {
			tn = tf // land on the end point exactly
		}
		for i := 0; i < sol.dim; i++ {
			sol.yc[i] = sol.y[i] + sol.z3[i]
		}
		if err := sol.odeF(sol.f0, tn, sol.yc); err != nil {
			return sol.fail(res, &CallbackError{Op: "rhs", Err: err})
		}
		sol.holdold = sol.hold
		sol.hold = sol.h
		sol.told, sol.tnew = sol.t, tn
		sol.buildPoly()
		ht, aerr := sol.adjustStepsize(sol.t, errn, true)
		if aerr != nil {
			return sol.fail(res, aerr)
		}
		hnew := ht
		if sol.rejected {
			hnew = math.Min(sol.h, ht)
		}
		sol.rejected = false
		sol.curjac = false
		sol.reuseOnAccept(hnew)
		sol.errold = math.Max(errn, 1e-2)

		if sol.prob.Events != nil {
			if err := sol.evalEvents(sol.gNew, tn, sol.yc); err != nil {
				return sol.fail(res, err)
			}
			tstar, found, everr := sol.locateEvent(sol.t, tn)
			if everr != nil {
				return sol.fail(res, everr)
			}
			if found {
				return sol.haltAtEvent(res, tstar, tf, hnew)
			}
			copy(sol.gOld, sol.gNew)
		}

		sol.t = tn
		copy(sol.y, sol.yc)
		sol.h = hnew
		sol.first = false

		sol.emit(res, tn, tf)
		if err := sol.report(tn, sol.y); err != nil {
			return sol.fail(res, err)
		}
	}
	if len(sol.conf.OutputTimes) > 0 {
		sol.emitCommUpTo(res, tf, tf) // points between the last step and tf
	}
	res.Status = StatusComplete
	return res, nil
}

// haltAtEvent truncates the accepted step at the located event time and
// returns control to the host.
func (sol *Solver) haltAtEvent(res *Result, tstar, tf, hnew float64) (*Result, error) {
	sol.contOut(sol.y, tstar)
	sol.t = tstar
	sol.h = hnew
	sol.first = false
	if err := sol.odeF(sol.f0, tstar, sol.y); err != nil {
		return sol.fail(res, &CallbackError{Op: "rhs", Err: err})
	}
	if err := sol.evalEvents(sol.gOld, tstar, sol.y); err != nil {
		return sol.fail(res, err)
	}
	sol.emitCommUpTo(res, tstar, tf)
	if len(res.T) == 0 || res.T[len(res.T)-1] != tstar {
		sol.emitPoint(res, tstar, sol.y)
	}
	if err := sol.report(tstar, sol.y); err != nil {
		return sol.fail(res, err)
	}
	res.Status = StatusEvent
	res.EventInfo = append([]int{}, sol.eventInfo...)
	return res, nil
}

// emit reports an accepted step in the active output mode.
func (sol *Solver) emit(res *Result, tn, tf float64) {
	if len(sol.conf.OutputTimes) > 0 {
		sol.emitCommUpTo(res, tn, tf)
		return
	}
	sol.emitPoint(res, tn, sol.y)
}

// emitCommUpTo interpolates and reports pending communication points up
// to min(upTo, tf).
func (sol *Solver) emitCommUpTo(res *Result, upTo, tf float64) {
	pts := sol.conf.OutputTimes
	if upTo > tf {
		upTo = tf
	}
	for sol.outIdx < len(pts) && pts[sol.outIdx] <= upTo {
		sol.contOut(sol.r2, pts[sol.outIdx])
		sol.emitPoint(res, pts[sol.outIdx], sol.r2)
		sol.outIdx++
	}
}

func (sol *Solver) emitPoint(res *Result, t float64, y []float64) {
	res.T = append(res.T, t)
	if sol.prob.dae() {
		res.Y = append(res.Y, append([]float64{}, y[:sol.n]...))
		res.Yd = append(res.Yd, append([]float64{}, y[sol.n:]...))
		return
	}
	res.Y = append(res.Y, append([]float64{}, y...))
}

// report invokes the per-step callback and enforces the time budget.
func (sol *Solver) report(t float64, y []float64) error {
	if sol.Report != nil {
		if err := sol.Report(t, y); err != nil {
			if errors.Is(err, ErrTimeLimit) {
				return ErrTimeLimit
			}
			return &CallbackError{Op: "report", Err: err}
		}
	}
	if !sol.deadline.IsZero() && time.Now().After(sol.deadline) {
		return ErrTimeLimit
	}
	return nil
}

func (sol *Solver) fail(res *Result, err error) (*Result, error) {
	res.Status = statusOf(err)
	return res, err
}
