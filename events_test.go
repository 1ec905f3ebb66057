package radau5

import (
	"math"
	"testing"
)

func TestEventRising(t *testing.T) {
	p := Problem{
		Ndim: 1,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			dst[0] = 1
			return nil
		},
		Events: func(dst []float64, tt float64, y []float64, sw []bool) error {
			dst[0] = y[0] - 0.5
			return nil
		},
		NEvents: 1,
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 1, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusEvent {
		t.Fatalf("status = %v, want EVENT", res.Status)
	}
	tstar := res.T[len(res.T)-1]
	if math.Abs(tstar-0.5) > 1e-10 {
		t.Errorf("event at t = %.15f, want 0.5", tstar)
	}
	if len(res.EventInfo) != 1 || res.EventInfo[0] != 1 {
		t.Errorf("event info = %v, want [1]", res.EventInfo)
	}
	if math.Abs(res.Y[len(res.Y)-1][0]-0.5) > 1e-9 {
		t.Errorf("y(t*) = %v, want 0.5", res.Y[len(res.Y)-1][0])
	}
	// No reported step crosses the event.
	for _, tp := range res.T {
		if tp > tstar {
			t.Errorf("reported point %v past the event time %v", tp, tstar)
		}
	}

	// The host resumes from the event point to completion.
	res2, err := sol.Solve(tstar, 1, res.Y[len(res.Y)-1])
	if err != nil {
		t.Fatal(err)
	}
	if res2.Status != StatusComplete {
		t.Fatalf("resume status = %v, want COMPLETE", res2.Status)
	}
	got := res2.Y[len(res2.Y)-1][0]
	if math.Abs(got-1) > 1e-7 {
		t.Errorf("y(1) = %v, want 1", got)
	}
}

func TestEventFalling(t *testing.T) {
	p := Problem{
		Ndim: 1,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			dst[0] = -1
			return nil
		},
		Events: func(dst []float64, tt float64, y []float64, sw []bool) error {
			dst[0] = y[0] + 0.25
			return nil
		},
		NEvents: 1,
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 1, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusEvent {
		t.Fatalf("status = %v, want EVENT", res.Status)
	}
	if math.Abs(res.T[len(res.T)-1]-0.25) > 1e-10 {
		t.Errorf("event at t = %v, want 0.25", res.T[len(res.T)-1])
	}
	if res.EventInfo[0] != -1 {
		t.Errorf("event info = %v, want [-1]", res.EventInfo)
	}
}

// Two components crossing inside the same step: the earliest one wins,
// and the mode vector lets the host disarm a root between calls.
func TestEventEarliestAndModes(t *testing.T) {
	sw := []bool{false}
	p := Problem{
		Ndim: 1,
		Fcn: func(dst []float64, tt float64, y []float64) error {
			dst[0] = 1
			return nil
		},
		Events: func(dst []float64, tt float64, y []float64, swv []bool) error {
			if swv[0] {
				dst[0] = 1 // disarmed after the first hit
			} else {
				dst[0] = y[0] - 0.30
			}
			dst[1] = y[0] - 0.31
			return nil
		},
		NEvents: 2,
		Sw:      sw,
	}
	conf := DefaultConfig()
	conf.SetTol(1e-8, 1e-8)
	conf.MaxH = 0.25 // several steps before any crossing
	sol, err := New(p, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sol.Free()
	res, err := sol.Solve(0, 1, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusEvent {
		t.Fatalf("status = %v, want EVENT", res.Status)
	}
	if math.Abs(res.T[len(res.T)-1]-0.30) > 1e-9 {
		t.Errorf("first event at %v, want 0.30", res.T[len(res.T)-1])
	}
	if res.EventInfo[0] != 1 || res.EventInfo[1] != 0 {
		t.Errorf("event info = %v, want [1 0]", res.EventInfo)
	}

	sw[0] = true // host reacts, then resumes
	res, err = sol.Solve(res.T[len(res.T)-1], 1, res.Y[len(res.Y)-1])
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusEvent {
		t.Fatalf("resume status = %v, want second EVENT", res.Status)
	}
	if math.Abs(res.T[len(res.T)-1]-0.31) > 1e-9 {
		t.Errorf("second event at %v, want 0.31", res.T[len(res.T)-1])
	}
	if res.EventInfo[1] != 1 {
		t.Errorf("second event info = %v, want component 1 rising", res.EventInfo)
	}
}
