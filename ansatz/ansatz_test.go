package ansatz

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"github.com/fumin/tensor"

	"github.com/khidanov/vqite/dist"
	"github.com/khidanov/vqite/pauli"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		gates []string
		ref   string
		ok    bool
	}{
		{gates: []string{"XY", "ZI"}, ref: "", ok: true},
		{gates: []string{"XY", "ZI"}, ref: "10", ok: true},
		{gates: []string{}, ref: "", ok: false},
		{gates: []string{"XY", "Z"}, ref: "", ok: false},
		{gates: []string{"XY"}, ref: "1", ok: false},
		{gates: []string{"XY"}, ref: "2a", ok: false},
	}
	for i, test := range tests {
		gates := make([]pauli.String, 0, len(test.gates))
		for _, g := range test.gates {
			p, err := pauli.Parse(g)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			gates = append(gates, p)
		}
		_, err := New(gates, test.ref)
		if test.ok != (err == nil) {
			t.Fatalf("%d %v", i, err)
		}
	}
}

func TestState(t *testing.T) {
	t.Parallel()
	// exp(-i theta/2 Y)|0> = cos(theta/2)|0> + sin(theta/2)|1>.
	a := mustAnsatz(t, []string{"Y"}, "")
	theta := 0.7
	psi, buf := tensor.Zeros(1), tensor.Zeros(1)
	a.State(psi, []float64{theta}, buf)

	want := []complex64{
		complex64(complex(math.Cos(theta/2), 0)),
		complex64(complex(math.Sin(theta/2), 0)),
	}
	for i, w := range want {
		if g := psi.At(i, 0); cmplx.Abs(complex128(g-w)) > 1e-6 {
			t.Fatalf("%d: %v, expected %v", i, g, w)
		}
	}
}

func TestStateReference(t *testing.T) {
	t.Parallel()
	// A rotation about Z leaves |10> on the Z axis up to phase.
	a := mustAnsatz(t, []string{"ZI"}, "10")
	psi, buf := tensor.Zeros(1), tensor.Zeros(1)
	a.State(psi, []float64{0}, buf)

	for i := 0; i < 4; i++ {
		want := complex64(0)
		if i == 2 {
			want = 1
		}
		if g := psi.At(i, 0); cmplx.Abs(complex128(g-want)) > 1e-6 {
			t.Fatalf("%d: %v, expected %v", i, g, want)
		}
	}
}

// TestDerivatives checks the analytic derivative states against central
// finite differences of the prepared state.
func TestDerivatives(t *testing.T) {
	t.Parallel()
	tests := []struct {
		gates []string
		theta []float64
	}{
		{gates: []string{"Y"}, theta: []float64{0.3}},
		{gates: []string{"YX", "YI", "IY"}, theta: []float64{0.3, 0.2, 0.1}},
		{gates: []string{"ZZ", "XI", "IX", "YY"}, theta: []float64{0.5, -0.4, 0.3, 0.2}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.gates), func(t *testing.T) {
			t.Parallel()
			a := mustAnsatz(t, test.gates, "")
			np := a.NumParams()
			size := 1 << a.Qubits()
			pool := dist.NewPool(2)

			psi := tensor.Zeros(1)
			ds := make([]*tensor.Dense, np)
			for i := range ds {
				ds[i] = tensor.Zeros(1)
			}
			bufs := make([]*tensor.Dense, pool.Workers()+1)
			for i := range bufs {
				bufs[i] = tensor.Zeros(1)
			}
			if err := a.Derivatives(psi, ds, test.theta, pool, bufs); err != nil {
				t.Fatalf("%+v", err)
			}

			const eps = 1e-3
			plus, minus, buf := tensor.Zeros(1), tensor.Zeros(1), tensor.Zeros(1)
			for k := 0; k < np; k++ {
				shifted := make([]float64, np)

				copy(shifted, test.theta)
				shifted[k] += eps
				a.State(plus, shifted, buf)
				copy(shifted, test.theta)
				shifted[k] -= eps
				a.State(minus, shifted, buf)

				for i := 0; i < size; i++ {
					fd := (complex128(plus.At(i, 0)) - complex128(minus.At(i, 0))) / (2 * eps)
					g := complex128(ds[k].At(i, 0))
					if cmplx.Abs(g-fd) > 1e-3 {
						t.Fatalf("%d %d: %v, finite difference %v", k, i, g, fd)
					}
				}
			}
		})
	}
}

func TestRead(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	fpath := filepath.Join(dir, "ansatz_inp.csv")
	content := `YX,0.4636
YI,1.5708
IY,1.5708
`
	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		t.Fatalf("%+v", err)
	}

	a, params, err := Read(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if a.NumParams() != 3 || a.Qubits() != 2 {
		t.Fatalf("%d %d", a.NumParams(), a.Qubits())
	}
	want := []float64{0.4636, 1.5708, 1.5708}
	for i, w := range want {
		if math.Abs(params[i]-w) > 1e-9 {
			t.Fatalf("%d: %f, expected %f", i, params[i], w)
		}
	}

	// Rows without parameters.
	if err := os.WriteFile(fpath, []byte("YX\nYI\n"), 0644); err != nil {
		t.Fatalf("%+v", err)
	}
	a, params, err = Read(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if a.NumParams() != 2 || params != nil {
		t.Fatalf("%d %v", a.NumParams(), params)
	}

	// Parameters on only some rows.
	if err := os.WriteFile(fpath, []byte("YX,0.1\nYI\n"), 0644); err != nil {
		t.Fatalf("%+v", err)
	}
	if _, _, err := Read(fpath); err == nil {
		t.Fatalf("expected error")
	}
}

func TestInitParams(t *testing.T) {
	t.Parallel()
	a := mustAnsatz(t, []string{"YX", "YI"}, "")

	theta, err := a.InitParams(InitZeros, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, v := range theta {
		if v != 0 {
			t.Fatalf("%d: %f", i, v)
		}
	}

	theta, err = a.InitParams(InitFile, []float64{0.1, 0.2})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if theta[0] != 0.1 || theta[1] != 0.2 {
		t.Fatalf("%v", theta)
	}
	if _, err := a.InitParams(InitFile, nil); err == nil {
		t.Fatalf("expected error")
	}

	theta, err = a.InitParams(InitRandom, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, v := range theta {
		if v < -0.1 || v >= 0.1 {
			t.Fatalf("%d: %f", i, v)
		}
	}

	if _, err := a.InitParams("bogus", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func mustAnsatz(t *testing.T, gateStrs []string, ref string) *Ansatz {
	gates := make([]pauli.String, 0, len(gateStrs))
	for _, g := range gateStrs {
		p, err := pauli.Parse(g)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		gates = append(gates, p)
	}
	a, err := New(gates, ref)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return a
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
