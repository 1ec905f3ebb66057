package radau5

import "math"

// evalEvents evaluates the root functions g(t, y, sw) into dst.
func (sol *Solver) evalEvents(dst []float64, t float64, y []float64) error {
	sol.Stat.Ngeval++
	if err := sol.prob.Events(dst, t, y, sol.prob.Sw); err != nil {
		return &CallbackError{Op: "events", Err: err}
	}
	return nil
}

// crossed reports a sign change between two root values: opposite signs,
// or exactly one of them zero with the values distinct.
func crossed(ga, gb float64) bool {
	if ga*gb < 0 {
		return true
	}
	return (ga == 0) != (gb == 0) && ga != gb
}

// locateEvent scans the accepted step [ta, tb] for sign changes of the
// root functions, already evaluated into gOld and gNew. Each crossing
// component is narrowed by bisection on the continuous output until the
// bracket shrinks to rounding width; the earliest crossing wins, ties
// resolving to the lowest component index. The winner's direction is
// recorded in eventInfo.
func (sol *Solver) locateEvent(ta, tb float64) (tstar float64, found bool, err error) {
	for i := range sol.eventInfo {
		sol.eventInfo[i] = 0
	}
	best := -1
	var bestT float64
	var bestDir int
	for j := 0; j < sol.prob.NEvents; j++ {
		ga, gb := sol.gOld[j], sol.gNew[j]
		if !crossed(ga, gb) {
			continue
		}
		a, b, fa := ta, tb, ga
		for b-a > 10*uround*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
			m := 0.5 * (a + b)
			if m <= a || m >= b {
				break
			}
			sol.contOut(sol.r1, m)
			if err := sol.evalEvents(sol.gTmp, m, sol.r1); err != nil {
				return 0, false, err
			}
			gm := sol.gTmp[j]
			switch {
			case fa != 0 && gm == 0:
				a = m // root at m: keep b where g has strictly left zero
			case crossed(fa, gm):
				b = m
			default:
				a, fa = m, gm
			}
		}
		dir := 1
		if gb < ga {
			dir = -1
		}
		if best < 0 || b < bestT {
			best, bestT, bestDir = j, b, dir
		}
	}
	if best < 0 {
		return 0, false, nil
	}
	sol.eventInfo[best] = bestDir
	return bestT, true, nil
}
