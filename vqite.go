// Package vqite implements Variational Quantum Imaginary-Time Evolution.
//
// The solver evolves the parameters theta of a Pauli rotation ansatz along
// the McLachlan equation
//
//	M thetadot = -V,
//
// where M is the quantum geometric tensor and V the energy gradient vector,
// driving the state towards the ground state of the Hamiltonian.
//
// References:
//   - Theory of variational quantum simulation, Xiao Yuan et al., Quantum 3, 191 (2019)
//   - Adaptive variational quantum imaginary time evolution approach for ground state preparation, Niladri Gomes et al.
package vqite

import (
	"fmt"
	"log"
	"math"
	"slices"
	"time"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/khidanov/vqite/ansatz"
	"github.com/khidanov/vqite/dist"
	"github.com/khidanov/vqite/pauli"
)

// maxRidge bounds the ridge escalation when the metric is ill conditioned,
// and minRidge seeds it when no regularization is configured.
const (
	maxRidge = 1.0
	minRidge = 1e-12
)

// Options are options for the solver.
type Options struct {
	dtau    float64
	nsteps  int
	etol    float64
	ridge   float64
	workers int
}

// NewOptions returns the default solver options.
func NewOptions() Options {
	opt := Options{}
	opt.dtau = 0.01
	opt.nsteps = 2000
	opt.etol = 1e-8
	opt.ridge = 1e-6
	opt.workers = 0
	return opt
}

// Dtau sets the imaginary-time step size.
func (opt Options) Dtau(v float64) Options {
	opt.dtau = v
	return opt
}

// NSteps sets the maximum number of steps.
func (opt Options) NSteps(n int) Options {
	opt.nsteps = n
	return opt
}

// Etol sets the energy convergence tolerance.
// A non-positive tolerance makes Run perform all steps unconditionally.
func (opt Options) Etol(v float64) Options {
	opt.etol = v
	return opt
}

// Ridge sets the metric regularization.
func (opt Options) Ridge(v float64) Options {
	opt.ridge = v
	return opt
}

// Workers sets the number of contraction workers. Zero means one per CPU.
func (opt Options) Workers(n int) Options {
	opt.workers = n
	return opt
}

// StepStats are the statistics of a single imaginary-time step.
type StepStats struct {
	// Step is the step index, starting from zero.
	Step int
	// Energy is <psi|H|psi> before the parameter update of this step.
	Energy float64
	// Residual is the norm of the energy gradient vector V.
	Residual float64
}

// Solver evolves an ansatz in imaginary time.
// The parameter vector is owned by the solver and mutated in place each step.
type Solver struct {
	ham   pauli.Operator
	anz   *ansatz.Ansatz
	theta []float64
	opt   Options
	pool  *dist.Pool

	psi  *tensor.Dense
	hpsi *tensor.Dense
	// ds are the derivative states, one per parameter.
	ds []*tensor.Dense
	// bufs are scratch tensors, one per worker plus one for state preparation.
	bufs []*tensor.Dense

	// pairs enumerates the upper triangle of the metric as independent tasks.
	pairs [][2]int
	// m is the metric in row major order, v the gradient,
	// sk the overlaps <psi|d_k>.
	m  []float64
	v  []float64
	sk []complex64

	step   int
	energy float64
}

// NewSolver creates a solver. The initial parameters theta are copied.
func NewSolver(ham pauli.Operator, anz *ansatz.Ansatz, theta []float64, options ...Options) (*Solver, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	if err := ham.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if ham.Qubits() != anz.Qubits() {
		return nil, errors.Errorf("%d %d", ham.Qubits(), anz.Qubits())
	}
	np := anz.NumParams()
	if len(theta) != np {
		return nil, errors.Errorf("%d %d", len(theta), np)
	}

	s := &Solver{ham: ham, anz: anz, theta: slices.Clone(theta), opt: opt}
	s.pool = dist.NewPool(opt.workers)

	s.psi = tensor.Zeros(1)
	s.hpsi = tensor.Zeros(1)
	s.ds = make([]*tensor.Dense, np)
	for i := range s.ds {
		s.ds[i] = tensor.Zeros(1)
	}
	s.bufs = make([]*tensor.Dense, s.pool.Workers()+1)
	for i := range s.bufs {
		s.bufs[i] = tensor.Zeros(1)
	}

	s.pairs = make([][2]int, 0, np*(np+1)/2)
	for k := 0; k < np; k++ {
		for l := k; l < np; l++ {
			s.pairs = append(s.pairs, [2]int{k, l})
		}
	}
	s.m = make([]float64, np*np)
	s.v = make([]float64, np)
	s.sk = make([]complex64, np)

	return s, nil
}

// Params returns a copy of the current parameter vector.
func (s *Solver) Params() []float64 { return slices.Clone(s.theta) }

// SetParams overwrites the current parameter vector, e.g. when resuming
// from a checkpoint.
func (s *Solver) SetParams(theta []float64) error {
	if len(theta) != len(s.theta) {
		return errors.Errorf("%d %d", len(theta), len(s.theta))
	}
	copy(s.theta, theta)
	return nil
}

// Energy returns the energy of the last completed step.
func (s *Solver) Energy() float64 { return s.energy }

// Step performs a single imaginary-time step: it computes the metric M,
// the gradient V and the energy at the current parameters, then updates
// the parameters by an explicit Euler step of M thetadot = -V.
func (s *Solver) Step() (StepStats, error) {
	stats, err := s.computeMV()
	if err != nil {
		return StepStats{}, errors.Wrap(err, "")
	}
	if err := s.advance(); err != nil {
		return StepStats{}, errors.Wrap(err, "")
	}

	s.energy = stats.Energy
	s.step++
	return stats, nil
}

// Run evolves until the energy difference between consecutive steps drops
// below the tolerance, calling onStep after every step.
func (s *Solver) Run(onStep func(StepStats) error) (StepStats, error) {
	throttle := newThrottler(10 * time.Second)
	var last StepStats
	ePrev := math.NaN()
	converged := false
	for i := 0; i < s.opt.nsteps; i++ {
		stats, err := s.Step()
		if err != nil {
			return last, errors.Wrap(err, fmt.Sprintf("%d", i))
		}
		last = stats

		if onStep != nil {
			if err := onStep(stats); err != nil {
				return last, errors.Wrap(err, fmt.Sprintf("%d", i))
			}
		}
		if throttle.ok() {
			log.Printf("step %d e %.10f residual %.3e", stats.Step, stats.Energy, stats.Residual)
		}

		if s.opt.etol > 0 && math.Abs(stats.Energy-ePrev) < s.opt.etol {
			converged = true
			break
		}
		ePrev = stats.Energy
	}
	if s.opt.etol > 0 && !converged {
		return last, errors.Errorf("not converged after %d steps, energy %f", s.opt.nsteps, last.Energy)
	}
	return last, nil
}

// computeMV computes the metric, the gradient and the energy at the
// current parameters. The elements are independent contraction tasks,
// block partitioned over the worker pool and reduced into s.m and s.v.
func (s *Solver) computeMV() (StepStats, error) {
	np := len(s.theta)
	if err := s.anz.Derivatives(s.psi, s.ds, s.theta, s.pool, s.bufs); err != nil {
		return StepStats{}, errors.Wrap(err, "")
	}

	// Energy.
	s.ham.Apply(s.hpsi, s.psi, s.bufs[0])
	e := pauli.Inner(s.psi, s.hpsi, s.bufs[0])
	eRe := float64(real(e))
	if math.IsNaN(eRe) || math.IsInf(eRe, 0) {
		return StepStats{}, errors.Errorf("%v", e)
	}
	if float64(abs(imag(e))) > 1e-3*max(math.Abs(eRe), 1) {
		return StepStats{}, errors.Errorf("non-hermitian energy %v", e)
	}

	// Overlaps <psi|d_k> and gradient V_k = Re<d_k|H|psi>.
	err := s.pool.EachSpan(np, func(part int, sp dist.Span) error {
		buf := s.bufs[part]
		for k := sp.Lo; k < sp.Hi; k++ {
			s.sk[k] = pauli.Inner(s.psi, s.ds[k], buf)
			s.v[k] = float64(real(pauli.Inner(s.ds[k], s.hpsi, buf)))
		}
		return nil
	})
	if err != nil {
		return StepStats{}, errors.Wrap(err, "")
	}

	// Metric M_kl = Re<d_k|d_l> - Re(<d_k|psi><psi|d_l>).
	err = s.pool.EachSpan(len(s.pairs), func(part int, sp dist.Span) error {
		buf := s.bufs[part]
		for t := sp.Lo; t < sp.Hi; t++ {
			k, l := s.pairs[t][0], s.pairs[t][1]
			g := pauli.Inner(s.ds[k], s.ds[l], buf)
			// Re(conj(sk)*sl).
			corr := float64(real(s.sk[k]))*float64(real(s.sk[l])) + float64(imag(s.sk[k]))*float64(imag(s.sk[l]))
			mkl := float64(real(g)) - corr
			s.m[k*np+l] = mkl
			s.m[l*np+k] = mkl
		}
		return nil
	})
	if err != nil {
		return StepStats{}, errors.Wrap(err, "")
	}

	var res float64
	for _, vk := range s.v {
		res += vk * vk
	}
	return StepStats{Step: s.step, Energy: eRe, Residual: math.Sqrt(res)}, nil
}

// advance solves (M + ridge I) thetadot = -V and applies the Euler update.
// The ridge is escalated tenfold whenever the factorization fails.
func (s *Solver) advance() error {
	np := len(s.theta)
	neg := make([]float64, np)
	for i, vi := range s.v {
		neg[i] = -vi
	}
	b := mat.NewVecDense(np, neg)

	for r := s.opt.ridge; r <= maxRidge; r = escalate(r) {
		a := mat.NewSymDense(np, nil)
		for i := 0; i < np; i++ {
			for j := i; j < np; j++ {
				v := s.m[i*np+j]
				if i == j {
					v += r
				}
				a.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(a) {
			continue
		}
		x := mat.NewVecDense(np, nil)
		if err := chol.SolveVecTo(x, b); err != nil {
			continue
		}

		for i := range s.theta {
			s.theta[i] += s.opt.dtau * x.AtVec(i)
		}
		return nil
	}
	return errors.Errorf("metric ill conditioned at ridge %g", maxRidge)
}

// escalate raises the ridge tenfold, starting from minRidge when the
// configured ridge is zero or negative.
func escalate(r float64) float64 {
	if r < minRidge {
		return minRidge
	}
	return r * 10
}

// throttler rate limits progress logging of long runs.
type throttler struct {
	d    time.Duration
	last time.Time
}

func newThrottler(d time.Duration) *throttler {
	return &throttler{d: d}
}

func (t *throttler) ok() bool {
	now := time.Now()
	if now.Before(t.last.Add(t.d)) {
		return false
	}
	t.last = now
	return true
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
