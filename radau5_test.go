package radau5

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/soypat/radau5/linsol"
	"gonum.org/v1/gonum/mat"
)

func decayProblem() Problem {
	return Problem{
		Ndim: 1,
		Fcn: func(dst []float64, t float64, y []float64) error {
			dst[0] = -y[0]
			return nil
		},
	}
}

func TestExponentialDecay(t *testing.T) {
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(decayProblem(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()

	res, err := sol.Solve(0, 5, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("status = %v, want COMPLETE", res.Status)
	}
	got := res.Y[len(res.Y)-1][0]
	want := math.Exp(-5)
	if e := math.Abs(got - want); e > 1e-7 {
		t.Errorf("y(5) = %v, want %v (err %v)", got, want, e)
	}
	if sol.Stat.Nsteps == 0 || sol.Stat.Nsteps > 300 {
		t.Errorf("unexpected step count %d", sol.Stat.Nsteps)
	}
	if sol.Stat.Njeval > 5 {
		t.Errorf("smooth linear problem recomputed the jacobian %d times", sol.Stat.Njeval)
	}
	if res.T[0] != 0 || res.T[len(res.T)-1] != 5 {
		t.Errorf("reported interval [%v, %v], want [0, 5]", res.T[0], res.T[len(res.T)-1])
	}
}

func TestToleranceLadder(t *testing.T) {
	endErr := func(tol float64) float64 {
		conf := DefaultConfig()
		conf.SetTol(tol, tol)
		sol, err := New(decayProblem(), conf)
		if err != nil {
			t.Fatal(err)
		}
		defer sol.Free()
		res, err := sol.Solve(0, 5, []float64{1})
		if err != nil {
			t.Fatal(err)
		}
		return math.Abs(res.Y[len(res.Y)-1][0] - math.Exp(-5))
	}
	e4, e8 := endErr(1e-4), endErr(1e-8)
	if e4 > 1e-2 || e8 > 1e-6 {
		t.Errorf("end-point errors %g (tol 1e-4), %g (tol 1e-8) out of range", e4, e8)
	}
	if e8 >= e4 && e4 > 1e-12 {
		t.Errorf("tightening the tolerance did not reduce the error: %g -> %g", e4, e8)
	}
}

func TestLinearOscillator(t *testing.T) {
	p := Problem{
		Ndim: 2,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			dst[0] = y[1]
			dst[1] = -y[0]
			return nil
		},
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 2*math.Pi, []float64{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	last := res.Y[len(res.Y)-1]
	if math.Abs(last[0]-1) > 1e-6 || math.Abs(last[1]) > 1e-6 {
		t.Errorf("y(2π) = %v, want (1, 0)", last)
	}
}

// The flow of a skew-symmetric linear system preserves the Euclidean
// norm; the integrator should track it to tolerance accuracy.
func TestNormConservation(t *testing.T) {
	p := Problem{
		Ndim: 3,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			dst[0] = y[1]
			dst[1] = -y[0] + 2*y[2]
			dst[2] = -2 * y[1]
			return nil
		},
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	y0 := []float64{1, 0, 0}
	res, err := sol.Solve(0, 10, y0)
	if err != nil {
		t.Fatal(err)
	}
	last := res.Y[len(res.Y)-1]
	nrm := math.Sqrt(last[0]*last[0] + last[1]*last[1] + last[2]*last[2])
	if math.Abs(nrm-1) > 1e-6 {
		t.Errorf("|y(10)| = %v, want 1", nrm)
	}
}

func TestVanDerPol(t *testing.T) {
	if testing.Short() {
		t.Skip("long stiff run")
	}
	const mu = 1000.0
	p := Problem{
		Ndim: 2,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			dst[0] = y[1]
			dst[1] = mu*(1-y[0]*y[0])*y[1] - y[0]
			return nil
		},
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 3000, []float64{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("status = %v, want COMPLETE", res.Status)
	}
	if sol.Stat.Nsteps > 3500 {
		t.Errorf("van der Pol took %d steps", sol.Stat.Nsteps)
	}
	if sol.Stat.Ndecomp > sol.Stat.Nsteps {
		t.Errorf("more factorizations (%d) than accepted steps (%d)", sol.Stat.Ndecomp, sol.Stat.Nsteps)
	}
}

// stiffLinear is a mildly stiff constant-coefficient system with an
// analytic Jacobian.
func stiffLinear() Problem {
	const lam = -2000.0
	return Problem{
		Ndim: 2,
		Fcn: func(dst []float64, t float64, y []float64) error {
			dst[0] = lam*y[0] + y[1]
			dst[1] = -y[1]
			return nil
		},
		Jac: func(dst *mat.Dense, t float64, y []float64) error {
			dst.Set(0, 0, lam)
			dst.Set(0, 1, 1)
			dst.Set(1, 0, 0)
			dst.Set(1, 1, -1)
			return nil
		},
	}
}

func TestJacobianReuse(t *testing.T) {
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(stiffLinear(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	if _, err := sol.Solve(0, 100, []float64{1, 1}); err != nil {
		t.Fatal(err)
	}
	if 5*sol.Stat.Njeval > sol.Stat.Nsteps {
		t.Errorf("njacs = %d, nsteps = %d; want njacs <= nsteps/5", sol.Stat.Njeval, sol.Stat.Nsteps)
	}
}

func TestSparseBackendIntegration(t *testing.T) {
	const lam = -2000.0
	fcn := func(dst []float64, tt float64, y []float64) error {
		dst[0] = lam*y[0] + y[1]
		dst[1] = -y[1]
		return nil
	}
	sparseProb := Problem{
		Ndim: 2,
		Fcn:  fcn,
		SparseJac: func(dst *linsol.Triplet, tt float64, y []float64) error {
			dst.Start()
			dst.Put(0, 0, lam)
			dst.Put(0, 1, 1)
			dst.Put(1, 1, -1)
			return nil
		},
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	conf.Linear.Solver = SolverSparse
	conf.Linear.Nnz = 3
	sp, err := New(sparseProb, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sp.Free()
	resS, err := sp.Solve(0, 1, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}

	dconf := DefaultConfig()
	dconf.SetTol(1e-8, 1e-8)
	de, err := New(Problem{Ndim: 2, Fcn: fcn}, dconf)
	if err != nil {
		t.Fatal(err)
	}
	defer de.Free()
	resD, err := de.Solve(0, 1, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}

	lastS := resS.Y[len(resS.Y)-1]
	lastD := resD.Y[len(resD.Y)-1]
	for i := range lastS {
		if math.Abs(lastS[i]-lastD[i]) > 1e-6 {
			t.Errorf("component %d: sparse %v vs dense %v", i, lastS[i], lastD[i])
		}
	}
	// y2 decays exactly as e^{-t}.
	if math.Abs(lastS[1]-math.Exp(-1)) > 1e-6 {
		t.Errorf("y2(1) = %v, want %v", lastS[1], math.Exp(-1))
	}
}

func TestReuseDisabled(t *testing.T) {
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	conf.Newton.Thet = -1
	sol, err := New(decayProblem(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	if _, err := sol.Solve(0, 5, []float64{1}); err != nil {
		t.Fatal(err)
	}
	if sol.Stat.Njeval < sol.Stat.Nsteps {
		t.Errorf("thet < 0 must evaluate the jacobian every step: njacs = %d, nsteps = %d",
			sol.Stat.Njeval, sol.Stat.Nsteps)
	}
}

func TestMaxSteps(t *testing.T) {
	conf := DefaultConfig()
	conf.MaxSteps = 3
	sol, err := New(decayProblem(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 1e6, []float64{1})
	if !errors.Is(err, ErrMaxSteps) {
		t.Fatalf("err = %v, want ErrMaxSteps", err)
	}
	if res.Status != StatusMaxSteps {
		t.Errorf("status = %v, want MAX_STEPS", res.Status)
	}
}

func TestRecoverableRHS(t *testing.T) {
	failed := false
	p := Problem{
		Ndim: 1,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			if !failed && tt > 0.3 {
				failed = true
				return ErrRecoverable
			}
			dst[0] = -y[0]
			return nil
		},
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 5, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	if sol.Stat.Nnewtfail == 0 {
		t.Error("recoverable failure was not counted as a newton failure")
	}
	got := res.Y[len(res.Y)-1][0]
	if math.Abs(got-math.Exp(-5)) > 1e-7 {
		t.Errorf("y(5) = %v after recovery, want %v", got, math.Exp(-5))
	}
}

func TestNonRecoverableRHS(t *testing.T) {
	boom := errors.New("model blew up")
	p := Problem{
		Ndim: 1,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			if tt > 0.5 {
				return boom
			}
			dst[0] = -y[0]
			return nil
		},
	}
	sol, err := New(p, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 5, []float64{1})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	var cbe *CallbackError
	if !errors.As(err, &cbe) || cbe.Op != "rhs" {
		t.Errorf("err = %#v, want rhs CallbackError", err)
	}
	if res.Status != StatusCallback {
		t.Errorf("status = %v, want CALLBACK_FAILED", res.Status)
	}
}

func TestTimeLimit(t *testing.T) {
	conf := DefaultConfig()
	conf.TimeLimit = 1 // a nanosecond: expires on the first report
	sol, err := New(decayProblem(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 5, []float64{1})
	if !errors.Is(err, ErrTimeLimit) {
		t.Fatalf("err = %v, want ErrTimeLimit", err)
	}
	if res.Status != StatusTimeLimit {
		t.Errorf("status = %v, want TIME_LIMIT", res.Status)
	}
}

func TestReportOrdering(t *testing.T) {
	var times []float64
	conf := DefaultConfig()
	sol, err := New(decayProblem(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	sol.Report = func(tt float64, y []float64) error {
		times = append(times, tt)
		return nil
	}
	if _, err := sol.Solve(0, 5, []float64{1}); err != nil {
		t.Fatal(err)
	}
	if len(times) != sol.Stat.Nsteps {
		t.Fatalf("report called %d times for %d accepted steps", len(times), sol.Stat.Nsteps)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("report times not increasing at %d: %v <= %v", i, times[i], times[i-1])
		}
	}
}

func TestCommunicationPoints(t *testing.T) {
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	conf.OutputTimes = []float64{0, 1, 2, 3, 4, 5}
	sol, err := New(decayProblem(), conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 5, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.T) != len(conf.OutputTimes) {
		t.Fatalf("reported %d points, want %d", len(res.T), len(conf.OutputTimes))
	}
	for i, tp := range conf.OutputTimes {
		if res.T[i] != tp {
			t.Errorf("point %d at t=%v, want %v", i, res.T[i], tp)
		}
		if e := math.Abs(res.Y[i][0] - math.Exp(-tp)); e > 1e-6 {
			t.Errorf("y(%v) = %v, off by %v", tp, res.Y[i][0], e)
		}
	}
}

func TestInputValidation(t *testing.T) {
	good := decayProblem()
	for _, tc := range []struct {
		name string
		prob func() Problem
		conf func() Config
	}{
		{"zero dimension", func() Problem { p := good; p.Ndim = 0; return p }, DefaultConfig},
		{"no function", func() Problem { return Problem{Ndim: 1} }, DefaultConfig},
		{"both functions", func() Problem {
			p := good
			p.Res = func(dst []float64, t float64, y, v []float64) error { return nil }
			return p
		}, DefaultConfig},
		{"events without dimension", func() Problem {
			p := good
			p.Events = func(dst []float64, t float64, y []float64, sw []bool) error { return nil }
			return p
		}, DefaultConfig},
		{"bad rtol", func() Problem { return good }, func() Config {
			c := DefaultConfig()
			c.Rtol = 0
			return c
		}},
		{"bad atol length", func() Problem { return good }, func() Config {
			c := DefaultConfig()
			c.Atol = []float64{1e-6, 1e-6}
			return c
		}},
		{"negative nnz", func() Problem { return good }, func() Config {
			c := DefaultConfig()
			c.Linear.Solver = SolverSparse
			c.Linear.Nnz = -1
			return c
		}},
		{"zero nnz", func() Problem { return good }, func() Config {
			c := DefaultConfig()
			c.Linear.Solver = SolverSparse
			return c
		}},
		{"unknown solver", func() Problem { return good }, func() Config {
			c := DefaultConfig()
			c.Linear.Solver = "QR"
			return c
		}},
		{"unsorted output times", func() Problem { return good }, func() Config {
			c := DefaultConfig()
			c.OutputTimes = []float64{2, 1}
			return c
		}},
	} {
		if _, err := New(tc.prob(), tc.conf()); err == nil {
			t.Errorf("%s: New accepted invalid input", tc.name)
		}
	}

	sol, err := New(good, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	if _, err := sol.Solve(1, 1, []float64{1}); err == nil {
		t.Error("Solve accepted an empty time interval")
	}
	if _, err := sol.Solve(0, 1, []float64{1, 2}); err == nil {
		t.Error("Solve accepted a mis-sized initial state")
	}
	if _, err := sol.SolveDAE(0, 1, []float64{1}, []float64{0}); err == nil {
		t.Error("SolveDAE accepted an ODE problem")
	}
}

func TestSparseDowngradeWarning(t *testing.T) {
	conf := DefaultConfig()
	conf.Linear.Solver = SolverSparse
	conf.Linear.Nnz = 2
	sol, err := New(decayProblem(), conf) // no sparse jacobian supplied
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	var out strings.Builder
	sol.Logger = NewLogger(&out)
	if _, err := sol.Solve(0, 1, []float64{1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "DENSE") {
		t.Errorf("expected a downgrade warning, got %q", out.String())
	}
}

func TestStatusStrings(t *testing.T) {
	for st, want := range map[Status]string{
		StatusOK:           "OK",
		StatusEvent:        "EVENT",
		StatusComplete:     "COMPLETE",
		StatusMaxSteps:     "MAX_STEPS",
		StatusNewtonFailed: "NEWTON_FAILED",
		Status(42):         "Status(42)",
	} {
		if got := st.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(st), got, want)
		}
	}
}
