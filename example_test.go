package vqite_test

import (
	"fmt"
	"log"

	"github.com/khidanov/vqite"
	"github.com/khidanov/vqite/ansatz"
	"github.com/khidanov/vqite/pauli"
)

func Example() {
	// The Hamiltonian H = -X has ground energy -1.
	h := pauli.Operator{{C: -1, P: pauli.String("X")}}

	// A single Y rotation reaches the ground state |+> at theta = pi/2.
	gate, err := pauli.Parse("Y")
	if err != nil {
		log.Fatalf("%+v", err)
	}
	anz, err := ansatz.New([]pauli.String{gate}, "")
	if err != nil {
		log.Fatalf("%+v", err)
	}

	// Evolve in imaginary time from a small initial angle.
	opt := vqite.NewOptions().Dtau(0.05).Etol(1e-6)
	solver, err := vqite.NewSolver(h, anz, []float64{0.1}, opt)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	last, err := solver.Run(nil)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	fmt.Printf("Ground energy %.3f\n", last.Energy)

	// Output:
	// Ground energy -1.000
}
