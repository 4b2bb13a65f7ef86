package network

import (
	"bytes"
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// newTestMLP returns a two layer MLP on a new graph with a batch x 3
// input node
func newTestMLP(t *testing.T, batch int, init G.InitWFn,
	prefix string) *MLP {
	t.Helper()

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 3),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	net, err := NewMLP(
		[]*G.Node{input},
		[]int{5, 2},
		[]bool{true, true},
		init,
		[]*Activation{Sigmoid(), Identity()},
		prefix,
	)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

func TestBlend(t *testing.T) {
	online := tensor.New(tensor.WithShape(2, 2),
		tensor.WithBacking([]float64{1, 2, 3, 4}))
	target := tensor.New(tensor.WithShape(2, 2),
		tensor.WithBacking([]float64{0, 0, 10, -4}))

	tests := []struct {
		tau  float64
		want []float64
	}{
		{0, []float64{0, 0, 10, -4}},
		{1, []float64{1, 2, 3, 4}},
		{0.25, []float64{0.25, 0.5, 8.25, -2}},
	}

	for _, test := range tests {
		blended, err := Blend(online, target, test.tau)
		if err != nil {
			t.Fatal(err)
		}
		have := blended.Data().([]float64)
		for i := range test.want {
			if math.Abs(have[i]-test.want[i]) > 1e-12 {
				t.Errorf("tau %v index %v: want(%v) have(%v)", test.tau, i,
					test.want[i], have[i])
			}
		}
	}

	// Inputs must not be modified
	if target.Data().([]float64)[2] != 10 {
		t.Error("blend modified the target tensor")
	}

	if _, err := Blend(online, target, 1.5); err == nil {
		t.Error("expected an error for tau outside [0, 1]")
	}
}

func TestSetAndPolyak(t *testing.T) {
	source := newTestMLP(t, 1, G.GlorotU(1.0), "source")
	dest := newTestMLP(t, 4, G.Zeroes(), "dest")

	if err := Set(dest, source); err != nil {
		t.Fatal(err)
	}
	want := Params(source)
	have := Params(dest)
	for i := range want {
		for j := range want[i] {
			if want[i][j] != have[i][j] {
				t.Fatalf("set: learnable %v index %v: want(%v) have(%v)", i,
					j, want[i][j], have[i][j])
			}
		}
	}

	// Polyak with the zero network pulls dest towards zero
	zero := newTestMLP(t, 1, G.Zeroes(), "zero")
	if err := Polyak(dest, zero, 0.5); err != nil {
		t.Fatal(err)
	}
	have = Params(dest)
	for i := range want {
		for j := range want[i] {
			if math.Abs(have[i][j]-0.5*want[i][j]) > 1e-12 {
				t.Errorf("polyak: learnable %v index %v: want(%v) have(%v)",
					i, j, 0.5*want[i][j], have[i][j])
			}
		}
	}
}

func TestCloneToSharesWeightValues(t *testing.T) {
	net := newTestMLP(t, 1, G.GlorotU(1.0), "net")

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(2, 3),
		G.WithName("input"), G.WithInit(G.Ones()))
	clone, err := net.CloneTo("clone", input)
	if err != nil {
		t.Fatal(err)
	}

	if clone.BatchSize() != 2 || clone.Outputs() != 2 {
		t.Errorf("clone shape: want(2, 2) have(%v, %v)", clone.BatchSize(),
			clone.Outputs())
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}

	out := clone.Output().Data().([]float64)
	if len(out) != 4 {
		t.Fatalf("output size: want(4) have(%v)", len(out))
	}

	// Both rows of the input are equal, so are both rows of the output
	if out[0] != out[2] || out[1] != out[3] {
		t.Errorf("rows differ for equal inputs: %v", out)
	}

	// Mutating the clone must not change the original
	before := Params(net)
	if err := Set(clone, newTestMLP(t, 1, G.Zeroes(), "zero")); err != nil {
		t.Fatal(err)
	}
	after := Params(net)
	for i := range before {
		for j := range before[i] {
			if before[i][j] != after[i][j] {
				t.Fatalf("original modified at learnable %v index %v", i, j)
			}
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	source := newTestMLP(t, 1, G.GlorotN(1.0), "source")
	dest := newTestMLP(t, 3, G.Zeroes(), "dest")

	var buf bytes.Buffer
	if err := Encode(&buf, source); err != nil {
		t.Fatal(err)
	}
	if err := Decode(&buf, dest); err != nil {
		t.Fatal(err)
	}

	want := Params(source)
	have := Params(dest)
	for i := range want {
		for j := range want[i] {
			if want[i][j] != have[i][j] {
				t.Errorf("learnable %v index %v: want(%v) have(%v)", i, j,
					want[i][j], have[i][j])
			}
		}
	}
}

func TestNewMLPValidation(t *testing.T) {
	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(1, 3),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	_, err := NewMLP([]*G.Node{input}, []int{4, 2}, []bool{true},
		G.Zeroes(), []*Activation{ReLU(), Identity()}, "bad")
	if err == nil {
		t.Error("expected an error for mismatched biases")
	}

	_, err = NewMLP([]*G.Node{input}, []int{4, 2}, []bool{true, true},
		G.Zeroes(), []*Activation{ReLU()}, "bad")
	if err == nil {
		t.Error("expected an error for mismatched activations")
	}
}
