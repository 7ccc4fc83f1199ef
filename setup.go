package vqite

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/khidanov/vqite/ansatz"
	"github.com/khidanov/vqite/incar"
)

// Load builds a solver from the on-disk layout of a data directory:
//
//	{dataDir}/incars/incar{name}
//	{dataDir}/data_adaptvqite/{name}/ansatz_inp.csv
//
// initStrategy is one of the ansatz initial parameter strategies.
func Load(dataDir, name, initStrategy string, workers int) (*Solver, incar.Params, error) {
	prm, err := incar.Read(filepath.Join(dataDir, "incars", "incar"+name))
	if err != nil {
		return nil, incar.Params{}, errors.Wrap(err, "")
	}
	ham, err := prm.Operator()
	if err != nil {
		return nil, incar.Params{}, errors.Wrap(err, "")
	}

	anz, fileParams, err := ansatz.Read(filepath.Join(dataDir, "data_adaptvqite", name, "ansatz_inp.csv"))
	if err != nil {
		return nil, incar.Params{}, errors.Wrap(err, "")
	}
	theta, err := anz.InitParams(initStrategy, fileParams)
	if err != nil {
		return nil, incar.Params{}, errors.Wrap(err, "")
	}

	opt := NewOptions().Dtau(prm.Dtau).NSteps(prm.NSteps).Etol(prm.Etol).Ridge(prm.Ridge).Workers(workers)
	s, err := NewSolver(ham, anz, theta, opt)
	if err != nil {
		return nil, incar.Params{}, errors.Wrap(err, "")
	}
	return s, prm, nil
}
