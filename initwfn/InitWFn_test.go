package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

func TestGlorotUBounds(t *testing.T) {
	init, err := NewGlorotU(1.0, 42)
	if err != nil {
		t.Fatal(err)
	}

	w := init.InitWFn()(tensor.Float64, 4, 3).([]float64)
	if len(w) != 12 {
		t.Fatalf("size: want(12) have(%v)", len(w))
	}
	limit := 0.9258200997725514 // sqrt(6 / 7)
	for i := range w {
		if w[i] < -limit || w[i] > limit {
			t.Errorf("index %v: %v outside [-%v, %v]", i, w[i], limit, limit)
		}
	}
}

func TestRandomInitWFns(t *testing.T) {
	const rows, cols = 200, 100

	tests := []struct {
		create func(seed uint64) (*InitWFn, error)
		mean   float64
		std    float64
		limit  float64 // 0 if unbounded
	}{
		{
			create: func(seed uint64) (*InitWFn, error) {
				return NewGlorotU(1, seed)
			},
			std:   math.Sqrt(6.0/300) / math.Sqrt(3),
			limit: math.Sqrt(6.0 / 300),
		},
		{
			create: func(seed uint64) (*InitWFn, error) {
				return NewGlorotN(1, seed)
			},
			std: math.Sqrt(2.0 / 300),
		},
		{
			create: func(seed uint64) (*InitWFn, error) {
				return NewHeU(1/math.Sqrt(3), seed)
			},
			std:   1 / math.Sqrt(200) / math.Sqrt(3),
			limit: 1 / math.Sqrt(200),
		},
		{
			create: func(seed uint64) (*InitWFn, error) {
				return NewHeN(math.Sqrt(2), seed)
			},
			std: math.Sqrt(2.0 / 200),
		},
		{
			create: func(seed uint64) (*InitWFn, error) {
				return NewUniform(-0.5, 1.5, seed)
			},
			mean:  0.5,
			std:   2 / math.Sqrt(12),
			limit: 1.5,
		},
		{
			create: func(seed uint64) (*InitWFn, error) {
				return NewGaussian(1, 0.1, seed)
			},
			mean: 1,
			std:  0.1,
		},
	}

	for _, test := range tests {
		a, err := test.create(3)
		if err != nil {
			t.Fatal(err)
		}
		b, err := test.create(3)
		if err != nil {
			t.Fatal(err)
		}
		c, err := test.create(4)
		if err != nil {
			t.Fatal(err)
		}

		for call := 0; call < 2; call++ {
			wa := a.InitWFn()(tensor.Float64, rows, cols).([]float64)
			wb := b.InitWFn()(tensor.Float64, rows, cols).([]float64)
			wc := c.InitWFn()(tensor.Float64, rows, cols).([]float64)

			if !floats.Equal(wa, wb) {
				t.Errorf("%v call %v: equal seeds gave different weights",
					a.Type, call)
			}
			if floats.Equal(wa, wc) {
				t.Errorf("%v call %v: different seeds gave equal weights",
					a.Type, call)
			}

			mean, std := stat.MeanStdDev(wa, nil)
			if math.Abs(mean-test.mean) > 0.05*test.std {
				t.Errorf("%v mean: want(%v) have(%v)", a.Type, test.mean,
					mean)
			}
			if math.Abs(std-test.std) > 0.05*test.std {
				t.Errorf("%v std: want(%v) have(%v)", a.Type, test.std, std)
			}
			if test.limit != 0 {
				low := 2*test.mean - test.limit
				if floats.Min(wa) < low || floats.Max(wa) > test.limit {
					t.Errorf("%v: weights outside [%v, %v]", a.Type, low,
						test.limit)
				}
			}
		}
	}
}

func TestInitWFnJSON(t *testing.T) {
	inits := make([]*InitWFn, 0)
	for _, create := range []func() (*InitWFn, error){
		func() (*InitWFn, error) { return NewGlorotN(2, 7) },
		func() (*InitWFn, error) { return NewHeU(1, 7) },
		func() (*InitWFn, error) { return NewUniform(-0.5, 0.5, 7) },
		func() (*InitWFn, error) { return NewConstant(0.3) },
	} {
		init, err := create()
		if err != nil {
			t.Fatal(err)
		}
		inits = append(inits, init)
	}

	for _, init := range inits {
		data, err := json.Marshal(init)
		if err != nil {
			t.Fatal(err)
		}

		var decoded InitWFn
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}

		if decoded.Type != init.Type {
			t.Errorf("type: want(%v) have(%v)", init.Type, decoded.Type)
		}
		if decoded.Config != init.Config {
			t.Errorf("config: want(%v) have(%v)", init.Config, decoded.Config)
		}

		want := init.InitWFn()(tensor.Float64, 2, 2).([]float64)
		have := decoded.InitWFn()(tensor.Float64, 2, 2).([]float64)
		if !floats.Equal(want, have) {
			t.Errorf("%v weights: want(%v) have(%v)", init.Type, want, have)
		}
	}

	var unknown InitWFn
	if err := json.Unmarshal([]byte(`{"Type":"Orthogonal"}`),
		&unknown); err == nil {
		t.Error("expected an error for an unknown type")
	}
}

func TestConstantInitWFns(t *testing.T) {
	tests := []struct {
		create func() (*InitWFn, error)
		want   float64
	}{
		{NewZeroes, 0},
		{NewOnes, 1},
		{func() (*InitWFn, error) { return NewConstant(0.25) }, 0.25},
	}

	for _, test := range tests {
		init, err := test.create()
		if err != nil {
			t.Fatal(err)
		}

		weights := init.InitWFn()(tensor.Float64, 3, 2).([]float64)
		if len(weights) != 6 {
			t.Fatalf("%v: size: want(6) have(%v)", init.Type, len(weights))
		}
		for i, w := range weights {
			if w != test.want {
				t.Errorf("%v: index %v: want(%v) have(%v)", init.Type, i,
					test.want, w)
			}
		}

		single := init.InitWFn()(tensor.Float32, 4).([]float32)
		if len(single) != 4 || single[0] != float32(test.want) {
			t.Errorf("%v float32: want(4 x %v) have(%v)", init.Type,
				test.want, single)
		}
	}
}
