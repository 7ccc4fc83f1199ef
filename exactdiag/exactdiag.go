// Package exactdiag computes reference spectra of Pauli operators by
// exact diagonalization. It is meant for validating variational results
// on small systems.
package exactdiag

import (
	"cmp"
	"slices"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/khidanov/vqite/pauli"
)

// ValVec is an eigenvalue and its eigenvector.
type ValVec struct {
	Val complex128
	Vec []complex128
}

// Eigen returns the full spectrum of h sorted by ascending real part.
// h must be real in the computational basis.
func Eigen(h pauli.Operator) ([]ValVec, error) {
	if err := h.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	size := 1 << h.Qubits()

	gnm := mat.NewDense(size, size, nil)
	for _, t := range h {
		for j := 0; j < size; j++ {
			i, ph := t.P.Element(j)
			v := t.C * ph
			if imag(v) != 0 {
				return nil, errors.Errorf("%q not real", t.P)
			}
			gnm.Set(i, j, gnm.At(i, j)+float64(real(v)))
		}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(gnm, mat.EigenRight); !ok {
		return nil, errors.Errorf("eig.Factorize failed")
	}
	vals := eig.Values(nil)
	vecs := mat.NewCDense(size, size, nil)
	eig.VectorsTo(vecs)

	vvs := make([]ValVec, 0, len(vals))
	for i, v := range vals {
		vec := make([]complex128, 0, size)
		for j := 0; j < size; j++ {
			vec = append(vec, vecs.At(j, i))
		}
		vvs = append(vvs, ValVec{Val: v, Vec: vec})
	}
	slices.SortFunc(vvs, func(a, b ValVec) int { return cmp.Compare(real(a.Val), real(b.Val)) })

	return vvs, nil
}

// Ground returns the ground energy of h via the Arnoldi iteration.
//
// The spectrum is shifted by the 1-norm bound of h so that the ground
// eigenvalue has the largest magnitude, in the manner of the Gerschgorin
// bound, and the shift is removed from the result.
func Ground(h pauli.Operator) (complex64, error) {
	if err := h.Validate(); err != nil {
		return 0, errors.Wrap(err, "")
	}
	size := 1 << h.Qubits()
	shift := complex64(complex(float32(h.Norm1()), 0))

	hm := tensor.Zeros(size, size)
	ijk := []int{0, 0}
	for _, t := range h {
		for j := 0; j < size; j++ {
			i, ph := t.P.Element(j)
			ijk[0], ijk[1] = i, j
			hm.SetAt(ijk, hm.At(i, j)+t.C*ph)
		}
	}
	// Shift the diagonal.
	for i := 0; i < size; i++ {
		ijk[0], ijk[1] = i, i
		hm.SetAt(ijk, hm.At(i, i)-shift)
	}

	eigvals, eigvecs := tensor.Zeros(1), tensor.Zeros(1)
	var bufs [7]*tensor.Dense
	for i := range bufs {
		bufs[i] = tensor.Zeros(1)
	}
	if err := tensor.Arnoldi(eigvals, eigvecs, hm, 1, bufs); err != nil {
		return 0, errors.Wrap(err, "")
	}

	return eigvals.At(0) + shift, nil
}
