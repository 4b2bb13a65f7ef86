package solver

import (
	"encoding/json"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestSolverJSON(t *testing.T) {
	adam, err := NewAdam(3e-4, 1e-8, 0.9, 0.999, 1)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(adam)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != Adam {
		t.Errorf("type: want(%v) have(%v)", Adam, decoded.Type)
	}
	config, ok := decoded.Config.(AdamConfig)
	if !ok {
		t.Fatalf("config: want(AdamConfig) have(%T)", decoded.Config)
	}
	if config != adam.Config.(AdamConfig) {
		t.Errorf("config: want(%v) have(%v)", adam.Config, config)
	}
	if decoded.Solver == nil {
		t.Error("decoded solver has no Gorgonia solver")
	}
}

func TestSolverUnmarshalUnknownType(t *testing.T) {
	var s Solver
	err := json.Unmarshal([]byte(`{"Type":"Nesterov","Config":{}}`), &s)
	if err == nil {
		t.Error("expected an error for an unknown solver type")
	}
}

func TestSolverCopy(t *testing.T) {
	vanilla, err := NewVanilla(0.1, 1, -1)
	if err != nil {
		t.Fatal(err)
	}

	cp := vanilla.Copy()
	if cp.Solver == vanilla.Solver {
		t.Error("copy shares the Gorgonia solver with the original")
	}
	if cp.Config != vanilla.Config || cp.Type != vanilla.Type {
		t.Errorf("copy: want(%v %v) have(%v %v)", vanilla.Type,
			vanilla.Config, cp.Type, cp.Config)
	}
}

func TestSolversDescend(t *testing.T) {
	newSolvers := []func() (*Solver, error){
		func() (*Solver, error) { return NewVanilla(0.1, 1, -1) },
		func() (*Solver, error) { return NewVanilla(0.1, 1, 0.5) },
		func() (*Solver, error) { return NewDefaultAdam(0.1, 1) },
		func() (*Solver, error) { return NewDefaultRMSProp(0.01, 1) },
		func() (*Solver, error) { return NewRMSProp(0.01, 1e-6, 0.9, 2, 1) },
	}

	for _, newSolver := range newSolvers {
		s, err := newSolver()
		if err != nil {
			t.Fatal(err)
		}

		g := G.NewGraph()
		w := G.NewMatrix(g, tensor.Float64, G.WithShape(1, 3), G.WithName("w"),
			G.WithValue(tensor.New(
				tensor.WithShape(1, 3),
				tensor.WithBacking([]float64{1, -2, 0.5}),
			)))
		loss := G.Must(G.Sum(G.Must(G.Square(w))))
		var lossVal G.Value
		G.Read(loss, &lossVal)
		if _, err := G.Grad(loss, w); err != nil {
			t.Fatal(err)
		}
		vm := G.NewTapeMachine(g, G.BindDualValues(w))

		var first, last float64
		for i := 0; i < 20; i++ {
			if err := vm.RunAll(); err != nil {
				t.Fatal(err)
			}
			if err := s.Step(G.NodesToValueGrads(G.Nodes{w})); err != nil {
				t.Fatal(err)
			}
			vm.Reset()

			last = lossVal.Data().(float64)
			if i == 0 {
				first = last
			}
		}
		vm.Close()

		if last >= first {
			t.Errorf("%v %v: loss did not decrease: first(%v) last(%v)",
				s.Type, s.Config, first, last)
		}
	}
}

func TestSolverValidate(t *testing.T) {
	tests := []struct {
		name   string
		create func() (*Solver, error)
	}{
		{"vanilla step size", func() (*Solver, error) {
			return NewVanilla(0, 1, -1)
		}},
		{"adam batch", func() (*Solver, error) {
			return NewDefaultAdam(1e-3, 0)
		}},
		{"adam beta", func() (*Solver, error) {
			return NewAdam(1e-3, 1e-8, 1, 0.999, 1)
		}},
		{"rmsprop rho", func() (*Solver, error) {
			return NewRMSProp(1e-3, 1e-8, 1.5, 1, -1)
		}},
		{"rmsprop epsilon", func() (*Solver, error) {
			return NewRMSProp(1e-3, 0, 0.9, 1, -1)
		}},
	}

	for _, test := range tests {
		if _, err := test.create(); err == nil {
			t.Errorf("%v: expected an error", test.name)
		}
	}

	var s Solver
	data := []byte(`{"Type":"RMSProp","Config":{"StepSize":-1,"Epsilon":1e-8,` +
		`"Rho":0.9,"Batch":1}}`)
	if err := json.Unmarshal(data, &s); err == nil {
		t.Error("expected an error unmarshalling an invalid configuration")
	}
}
