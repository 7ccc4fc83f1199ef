package exactdiag

import (
	"flag"
	"fmt"
	"log"
	"math"
	"testing"

	"github.com/khidanov/vqite/pauli"
)

func TestEigen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n    int
		g    float64
		vals []float64
	}{
		// H = -ZZ - g(XI+IX) at g=1 has spectrum {-sqrt(5), -1, 1, sqrt(5)}.
		{n: 2, g: 1, vals: []float64{-math.Sqrt(5), -1, 1, math.Sqrt(5)}},
		{n: 2, g: 0, vals: []float64{-1, -1, 1, 1}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d_%f", test.n, test.g), func(t *testing.T) {
			t.Parallel()
			h := pauli.TransverseFieldIsing(test.n, test.g)
			vvs, err := Eigen(h)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if len(vvs) != len(test.vals) {
				t.Fatalf("%d, expected %d", len(vvs), len(test.vals))
			}
			for i, w := range test.vals {
				if g := real(vvs[i].Val); math.Abs(g-w) > 1e-6 {
					t.Fatalf("%d: %f, expected %f", i, g, w)
				}
				if g := imag(vvs[i].Val); math.Abs(g) > 1e-6 {
					t.Fatalf("%d: imaginary part %f", i, g)
				}
			}
		})
	}
}

func TestGround(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n int
		g float64
	}{
		{n: 2, g: 1},
		{n: 3, g: 0.7},
		{n: 4, g: 1.2},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d_%f", test.n, test.g), func(t *testing.T) {
			t.Parallel()
			h := pauli.TransverseFieldIsing(test.n, test.g)

			vvs, err := Eigen(h)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			want := real(vvs[0].Val)

			e0, err := Ground(h)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if g := float64(real(e0)); math.Abs(g-want) > 1e-3 {
				t.Fatalf("%f, expected %f", g, want)
			}
		})
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
