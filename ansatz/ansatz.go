// Package ansatz implements parameterized Pauli rotation circuits.
//
// An ansatz prepares the state
//
//	|psi(theta)> = prod_k exp(-i theta_k/2 P_k) |ref>,
//
// where the P_k are Pauli strings and |ref> is a computational basis state.
// Every parameter belongs to exactly one gate.
package ansatz

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/khidanov/vqite/dist"
	"github.com/khidanov/vqite/pauli"
)

// Initial parameter strategies.
const (
	InitFile   = "file"
	InitZeros  = "zeros"
	InitRandom = "random"
)

// Ansatz is a fixed sequence of Pauli rotation gates.
// Gates and the reference state never change after construction,
// only the parameter vector owned by the caller does.
type Ansatz struct {
	gates []pauli.String
	// ref is the basis state index of the reference state.
	ref int
	n   int
}

// New creates an ansatz from its gate list.
// ref is the reference state bitstring such as "0100"; empty means |00...0>.
func New(gates []pauli.String, ref string) (*Ansatz, error) {
	if len(gates) == 0 {
		return nil, errors.Errorf("no gates")
	}
	n := len(gates[0])
	for i, g := range gates {
		if len(g) != n {
			return nil, errors.Errorf("%d %q %d", i, g, n)
		}
	}

	a := &Ansatz{gates: gates, n: n}
	if ref == "" {
		return a, nil
	}
	if len(ref) != n {
		return nil, errors.Errorf("%q %d", ref, n)
	}
	for _, b := range []byte(ref) {
		a.ref <<= 1
		switch b {
		case '0':
		case '1':
			a.ref |= 1
		default:
			return nil, errors.Errorf("%q", ref)
		}
	}
	return a, nil
}

// Read reads an ansatz input file.
// Each row is a Pauli string, optionally followed by an initial parameter.
// The returned parameters are nil when no row carries one.
func Read(fpath string) (*Ansatz, []float64, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	gates := make([]pauli.String, 0)
	params := make([]float64, 0)
	rowI := -1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("%d", rowI))
		}
		rowI++

		g, err := pauli.Parse(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("%d %#v", rowI, record))
		}
		gates = append(gates, g)

		switch len(record) {
		case 1:
		case 2:
			theta, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
			if err != nil {
				return nil, nil, errors.Wrap(err, fmt.Sprintf("%d %#v", rowI, record))
			}
			params = append(params, theta)
		default:
			return nil, nil, errors.Errorf("%d %#v", rowI, record)
		}
	}
	if len(params) > 0 && len(params) != len(gates) {
		return nil, nil, errors.Errorf("%d gates %d parameters", len(gates), len(params))
	}

	a, err := New(gates, "")
	if err != nil {
		return nil, nil, errors.Wrap(err, fpath)
	}
	if len(params) == 0 {
		return a, nil, nil
	}
	return a, params, nil
}

// NumParams returns the number of variational parameters.
func (a *Ansatz) NumParams() int { return len(a.gates) }

// Qubits returns the number of qubits.
func (a *Ansatz) Qubits() int { return a.n }

// Gates returns the gate list. The caller must not modify it.
func (a *Ansatz) Gates() []pauli.String { return a.gates }

// InitParams returns the initial parameter vector for the given strategy.
// fileParams is the vector read alongside the ansatz file, used by InitFile.
func (a *Ansatz) InitParams(strategy string, fileParams []float64) ([]float64, error) {
	theta := make([]float64, len(a.gates))
	switch strategy {
	case InitFile:
		if len(fileParams) != len(a.gates) {
			return nil, errors.Errorf("%d %d", len(fileParams), len(a.gates))
		}
		copy(theta, fileParams)
	case InitZeros:
	case InitRandom:
		for i := range theta {
			theta[i] = rand.Float64()*0.2 - 0.1
		}
	default:
		return nil, errors.Errorf("%q", strategy)
	}
	return theta, nil
}

// State prepares |psi(theta)> into dst.
func (a *Ansatz) State(dst *tensor.Dense, theta []float64, buf *tensor.Dense) {
	if len(theta) != len(a.gates) {
		panic(fmt.Sprintf("%d %d", len(theta), len(a.gates)))
	}

	a.reference(dst)
	for k, g := range a.gates {
		rotate(dst, g, theta[k], buf)
	}
}

// Derivatives computes |psi(theta)> into psi, and every derivative state
// d_k = d|psi(theta)>/d theta_k into ds.
//
// The states are built in a single forward sweep: at gate k the accumulated
// derivatives d_0..d_{k-1} are propagated through the gate in parallel over
// pool, then d_k is seeded with -i/2 P_k applied to the partial product
// state. bufs must hold at least pool.Workers()+1 scratch tensors.
func (a *Ansatz) Derivatives(psi *tensor.Dense, ds []*tensor.Dense, theta []float64, pool *dist.Pool, bufs []*tensor.Dense) error {
	if len(theta) != len(a.gates) {
		return errors.Errorf("%d %d", len(theta), len(a.gates))
	}
	if len(ds) != len(a.gates) {
		return errors.Errorf("%d %d", len(ds), len(a.gates))
	}
	if len(bufs) < pool.Workers()+1 {
		return errors.Errorf("%d %d", len(bufs), pool.Workers()+1)
	}

	a.reference(psi)
	for k, g := range a.gates {
		err := pool.EachSpan(k, func(part int, s dist.Span) error {
			buf := bufs[part]
			for j := s.Lo; j < s.Hi; j++ {
				rotate(ds[j], g, theta[k], buf)
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", k))
		}

		rotate(psi, g, theta[k], bufs[len(bufs)-1])
		g.Apply(ds[k], psi)
		scale(ds[k], -0.5i)
	}
	return nil
}

// reference writes the reference basis state into dst.
func (a *Ansatz) reference(dst *tensor.Dense) {
	size := 1 << a.n
	dst.Reset(size, 1)
	ijk := []int{0, 0}
	for i := 0; i < size; i++ {
		ijk[0] = i
		var v complex64
		if i == a.ref {
			v = 1
		}
		dst.SetAt(ijk, v)
	}
}

// rotate applies exp(-i theta/2 P) to state in place,
// using cos(theta/2) 1 - i sin(theta/2) P.
func rotate(state *tensor.Dense, p pauli.String, theta float64, buf *tensor.Dense) {
	p.Apply(buf, state)

	c := complex64(complex(math.Cos(theta/2), 0))
	s := complex64(complex(0, -math.Sin(theta/2)))
	size := state.Shape()[0]
	ijk := []int{0, 0}
	for i := 0; i < size; i++ {
		ijk[0] = i
		state.SetAt(ijk, c*state.At(i, 0)+s*buf.At(i, 0))
	}
}

func scale(t *tensor.Dense, c complex64) {
	shape := t.Shape()
	if !slices.Equal(shape[1:], []int{1}) {
		panic(fmt.Sprintf("%#v", shape))
	}
	ijk := []int{0, 0}
	for i := 0; i < shape[0]; i++ {
		ijk[0] = i
		t.SetAt(ijk, c*t.At(i, 0))
	}
}
