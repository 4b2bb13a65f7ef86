package acrobot

import (
	"math"
	"testing"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

func newTestAcrobot(t *testing.T, start []r1.Interval, steps int) *Acrobot {
	t.Helper()
	starter := environment.NewUniformStarter(start, 7)
	a, _, err := New(NewSwingUp(starter, steps, GoalHeight), 1.0)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestTipHeight(t *testing.T) {
	tests := []struct {
		theta1, theta2, want float64
	}{
		{0, 0, -2},
		{math.Pi, 0, 2},
		{math.Pi / 2, 0, 0},
		{0, math.Pi, 0},
	}

	for _, test := range tests {
		obs := mat.NewVecDense(ObservationDims, []float64{test.theta1,
			test.theta2, 0, 0})
		if have := TipHeight(obs); math.Abs(have-test.want) > 1e-12 {
			t.Errorf("tipHeight(%v, %v): want(%v) have(%v)", test.theta1,
				test.theta2, test.want, have)
		}
	}
}

func TestAcrobotRest(t *testing.T) {
	a := newTestAcrobot(t, make([]r1.Interval, ObservationDims), 20)

	zero := mat.NewVecDense(ActionDims, []float64{0})
	for i := 1; i <= 20; i++ {
		step, last := a.Step(zero)
		for j := 0; j < ObservationDims; j++ {
			if v := step.Observation.AtVec(j); math.Abs(v) > 1e-6 {
				t.Fatalf("step %v: hanging acrobot moved, feature %v = %v",
					i, j, v)
			}
		}
		if step.Reward != -1 {
			t.Errorf("step %v: reward: want(-1) have(%v)", i, step.Reward)
		}
		if last != (i == 20) {
			t.Errorf("step %v: last: want(%v) have(%v)", i, i == 20, last)
		}
	}
	lastStep := a.LastTimeStep()
	if end := lastStep.EndType(); end != timestep.Timeout {
		t.Errorf("end type: want(%v) have(%v)", timestep.Timeout, end)
	}
}

func TestAcrobotGoal(t *testing.T) {
	start := []r1.Interval{{Min: 3, Max: 3}, {}, {}, {}}
	a := newTestAcrobot(t, start, 20)

	step, last := a.Step(mat.NewVecDense(ActionDims, []float64{0}))
	if !last || !step.Terminal() {
		t.Fatalf("a nearly upright acrobot should be at the goal, "+
			"ended with %v", step.EndType())
	}
	if step.Reward != 0 {
		t.Errorf("goal reward: want(0) have(%v)", step.Reward)
	}
}

func TestAcrobotBounds(t *testing.T) {
	start := []r1.Interval{
		{Min: -0.1, Max: 0.1},
		{Min: -0.1, Max: 0.1},
		{Min: -0.1, Max: 0.1},
		{Min: -0.1, Max: 0.1},
	}
	a := newTestAcrobot(t, start, 500)

	step := a.Reset()
	var last bool
	for !last {
		// Pump energy into the first link
		torque := 1.0
		if step.Observation.AtVec(2) < 0 {
			torque = -1.0
		}
		step, last = a.Step(mat.NewVecDense(ActionDims, []float64{torque}))

		if err := a.ObservationSpec().Contains(step.Observation); err != nil {
			t.Fatalf("step %v: %v", step.Number, err)
		}
	}
}
