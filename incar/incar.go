// Package incar reads incar run parameter files.
//
// An incar file holds "key = value" lines, for example:
//
//	model = tfim
//	nq = 12
//	g = 0.1
//	dtau = 0.01
//	nsteps = 2000
//
// Lines starting with # are comments.
package incar

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/khidanov/vqite/pauli"
)

// Models.
const (
	ModelTFIM = "tfim"
	ModelFile = "file"
)

// Params are the physics and numerics parameters of a run.
type Params struct {
	// Model is the Hamiltonian model, tfim or file.
	Model string
	// NQ is the number of qubits of the tfim model.
	NQ int
	// G is the transverse field strength of the tfim model.
	G float64
	// Ham is the Hamiltonian CSV path of the file model, relative to the incar file.
	Ham string

	// Dtau is the imaginary-time step size.
	Dtau float64
	// NSteps is the maximum number of steps.
	NSteps int
	// Etol is the energy convergence tolerance. Zero disables the convergence requirement.
	Etol float64
	// Ridge is the metric regularization.
	Ridge float64

	dir string
}

func defaults() Params {
	return Params{
		Model:  ModelTFIM,
		Dtau:   0.01,
		NSteps: 2000,
		Etol:   1e-8,
		Ridge:  1e-6,
	}
}

// Read reads an incar file.
func Read(fpath string) (Params, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return Params{}, errors.Wrap(err, "")
	}
	defer f.Close()

	p := defaults()
	p.dir = filepath.Dir(fpath)
	scanner := bufio.NewScanner(f)
	lineI := 0
	for scanner.Scan() {
		lineI++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Params{}, errors.Errorf("%d %q", lineI, line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "model":
			p.Model = value
		case "nq":
			p.NQ, err = strconv.Atoi(value)
		case "g":
			p.G, err = strconv.ParseFloat(value, 64)
		case "ham":
			p.Ham = value
		case "dtau":
			p.Dtau, err = strconv.ParseFloat(value, 64)
		case "nsteps":
			p.NSteps, err = strconv.Atoi(value)
		case "etol":
			p.Etol, err = strconv.ParseFloat(value, 64)
		case "ridge":
			p.Ridge, err = strconv.ParseFloat(value, 64)
		default:
			return Params{}, errors.Errorf("%d unknown key %q", lineI, key)
		}
		if err != nil {
			return Params{}, errors.Wrap(err, fmt.Sprintf("%d %q", lineI, line))
		}
	}
	if err := scanner.Err(); err != nil {
		return Params{}, errors.Wrap(err, "")
	}

	if err := p.validate(); err != nil {
		return Params{}, errors.Wrap(err, fpath)
	}
	return p, nil
}

func (p Params) validate() error {
	switch p.Model {
	case ModelTFIM:
		if p.NQ <= 0 {
			return errors.Errorf("nq %d", p.NQ)
		}
	case ModelFile:
		if p.Ham == "" {
			return errors.Errorf("ham missing")
		}
	default:
		return errors.Errorf("model %q", p.Model)
	}
	if p.Dtau <= 0 {
		return errors.Errorf("dtau %f", p.Dtau)
	}
	if p.NSteps <= 0 {
		return errors.Errorf("nsteps %d", p.NSteps)
	}
	return nil
}

// Operator builds the Hamiltonian described by the parameters.
func (p Params) Operator() (pauli.Operator, error) {
	switch p.Model {
	case ModelTFIM:
		return pauli.TransverseFieldIsing(p.NQ, p.G), nil
	case ModelFile:
		h, err := pauli.ReadOperator(filepath.Join(p.dir, p.Ham))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		return h, nil
	default:
		return nil, errors.Errorf("model %q", p.Model)
	}
}
