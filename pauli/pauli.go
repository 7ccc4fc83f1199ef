// Package pauli implements Pauli string operators acting on statevectors.
//
// A statevector over n qubits is a tensor of shape {2^n, 1}, where qubit 0
// occupies the most significant bit of a basis state index.
package pauli

import (
	"fmt"
	"math/bits"
	"math/cmplx"
	"slices"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// String is a Pauli string such as "XYIZ".
// The letter at position q acts on qubit q.
type String []byte

// Parse parses a Pauli string from its letter representation.
func Parse(s string) (String, error) {
	if len(s) == 0 {
		return nil, errors.Errorf("empty pauli string")
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'I', 'X', 'Y', 'Z':
		default:
			return nil, errors.Errorf("%d %q", i, s)
		}
	}
	return String(s), nil
}

func (p String) String() string { return string(p) }

// Weight returns the number of non-identity letters.
func (p String) Weight() int {
	w := 0
	for _, op := range p {
		if op != 'I' {
			w++
		}
	}
	return w
}

// masks precomputes the action of p on basis state indices.
// flip has a set bit for every qubit on which p is X or Y, and
// sign for every qubit on which p is Y or Z.
type masks struct {
	flip int
	sign int
	// y is i^numY, the phase contributed by the Y letters.
	y complex64
}

func (p String) masks() masks {
	var m masks
	numY := 0
	for q, op := range p {
		bit := 1 << (len(p) - 1 - q)
		switch op {
		case 'X':
			m.flip |= bit
		case 'Y':
			m.flip |= bit
			m.sign |= bit
			numY++
		case 'Z':
			m.sign |= bit
		}
	}
	switch numY % 4 {
	case 0:
		m.y = 1
	case 1:
		m.y = 1i
	case 2:
		m.y = -1
	default:
		m.y = -1i
	}
	return m
}

func (m masks) element(col int) (int, complex64) {
	v := m.y
	if bits.OnesCount(uint(col&m.sign))%2 == 1 {
		v = -v
	}
	return col ^ m.flip, v
}

// Element returns the row index and value of the single nonzero entry in
// column col of the matrix of p.
func (p String) Element(col int) (int, complex64) {
	return p.masks().element(col)
}

// Apply computes dst = p|src>.
func (p String) Apply(dst, src *tensor.Dense) {
	p.applyScaled(dst, src, 1)
}

func (p String) applyScaled(dst, src *tensor.Dense, c complex64) {
	size := 1 << len(p)
	if s := src.Shape(); !slices.Equal(s, []int{size, 1}) {
		panic(fmt.Sprintf("%#v %d", s, len(p)))
	}

	m := p.masks()
	dst.Reset(size, 1)
	ijk := []int{0, 0}
	for i := 0; i < size; i++ {
		j, ph := m.element(i)
		ijk[0] = j
		dst.SetAt(ijk, c*ph*src.At(i, 0))
	}
}

// Inner returns <x|y> of two statevectors, using buf as scratch.
func Inner(x, y, buf *tensor.Dense) complex64 {
	tensor.Product(buf, x.H(), y, [][2]int{{1, 0}})
	if !slices.Equal(buf.Shape(), []int{1, 1}) {
		panic(fmt.Sprintf("%#v", buf.Shape()))
	}
	return buf.At(0, 0)
}

// Term is a weighted Pauli string.
type Term struct {
	C complex64
	P String
}

// Operator is a sum of weighted Pauli strings.
// The term list is fixed for the lifetime of a run.
type Operator []Term

// Qubits returns the number of qubits the operator acts on.
func (h Operator) Qubits() int {
	if len(h) == 0 {
		return 0
	}
	return len(h[0].P)
}

// Validate checks that all terms act on the same qubits with nonzero weights.
func (h Operator) Validate() error {
	if len(h) == 0 {
		return errors.Errorf("no terms")
	}
	n := len(h[0].P)
	for i, t := range h {
		if len(t.P) != n {
			return errors.Errorf("%d %q %d", i, t.P, n)
		}
		if t.C == 0 {
			return errors.Errorf("%d %q zero coefficient", i, t.P)
		}
	}
	return nil
}

// Apply computes dst = h|src>, using buf as scratch.
func (h Operator) Apply(dst, src, buf *tensor.Dense) {
	if len(h) == 0 {
		panic("no terms")
	}
	h[0].P.applyScaled(dst, src, h[0].C)

	size := 1 << len(h[0].P)
	ijk := []int{0, 0}
	for _, t := range h[1:] {
		t.P.applyScaled(buf, src, t.C)
		for i := 0; i < size; i++ {
			ijk[0] = i
			dst.SetAt(ijk, dst.At(i, 0)+buf.At(i, 0))
		}
	}
}

// Expectation returns <psi|h|psi>.
func (h Operator) Expectation(psi *tensor.Dense, bufs [2]*tensor.Dense) complex64 {
	h.Apply(bufs[0], psi, bufs[1])
	return Inner(psi, bufs[0], bufs[1])
}

// Norm1 returns the sum of the absolute values of the term weights,
// an upper bound on the operator spectral radius.
func (h Operator) Norm1() float64 {
	var s float64
	for _, t := range h {
		s += float64(abs(t.C))
	}
	return s
}

// TransverseFieldIsing returns the Hamiltonian of the one dimensional
// transverse field Ising model with open boundaries,
// -sum_i Z_i Z_{i+1} - g sum_i X_i.
func TransverseFieldIsing(n int, g float64) Operator {
	h := make(Operator, 0, 2*n-1)
	for i := 0; i < n-1; i++ {
		p := identity(n)
		p[i], p[i+1] = 'Z', 'Z'
		h = append(h, Term{C: -1, P: p})
	}
	// A vanishing field contributes no X terms.
	if g != 0 {
		for i := 0; i < n; i++ {
			p := identity(n)
			p[i] = 'X'
			h = append(h, Term{C: complex(float32(-g), 0), P: p})
		}
	}
	return h
}

func abs(x complex64) float32 {
	return float32(cmplx.Abs(complex128(x)))
}

func identity(n int) String {
	p := make(String, n)
	for i := range p {
		p[i] = 'I'
	}
	return p
}
