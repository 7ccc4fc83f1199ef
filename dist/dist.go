// Package dist distributes independent contraction tasks across workers.
//
// Tasks are partitioned in contiguous blocks, one block per worker, in the
// manner of a block distribution across the ranks of a message passing job.
// Partial results are reduced by the caller after Wait returns.
package dist

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// A Span is a half open index interval [Lo, Hi).
type Span struct {
	Lo int
	Hi int
}

// Partition splits n tasks into parts contiguous spans.
// The first n%parts spans carry one extra task.
func Partition(n, parts int) []Span {
	if n < 0 || parts <= 0 {
		panic(fmt.Sprintf("%d %d", n, parts))
	}

	spans := make([]Span, 0, parts)
	q, r := n/parts, n%parts
	lo := 0
	for i := 0; i < parts; i++ {
		sz := q
		if i < r {
			sz++
		}
		spans = append(spans, Span{Lo: lo, Hi: lo + sz})
		lo += sz
	}
	return spans
}

// Pool runs task sets over a fixed number of workers.
type Pool struct {
	workers int
}

// NewPool creates a pool. workers <= 0 means one worker per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

// EachSpan partitions n tasks over the workers and calls f once per
// nonempty span. part identifies the worker and indexes its scratch buffers.
func (p *Pool) EachSpan(n int, f func(part int, s Span) error) error {
	g := &errgroup.Group{}
	for w, s := range Partition(n, p.workers) {
		if s.Lo >= s.Hi {
			continue
		}
		g.Go(func() error {
			return f(w, s)
		})
	}
	return g.Wait()
}

// Each calls f for every i in [0, n) with bounded parallelism.
func (p *Pool) Each(n int, f func(i int) error) error {
	g := &errgroup.Group{}
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return f(i)
		})
	}
	return g.Wait()
}
