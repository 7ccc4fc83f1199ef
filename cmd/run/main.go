// Command run performs a single imaginary-time evolution run.
//
// Inputs are read from the data directory:
//
//	{d}/incars/incar{f}
//	{d}/data_adaptvqite/{f}/ansatz_inp.csv
//
// The trajectory is appended to the sqlite database {d}/runs.db, a
// resumable checkpoint is written alongside the ansatz file, and a
// plain text log of the run is written under {d}/outputs.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/khidanov/vqite"
	"github.com/khidanov/vqite/exactdiag"
	"github.com/khidanov/vqite/store"
)

var (
	name    = flag.String("f", "N12g0.1", "run name, selects incar{f} and data_adaptvqite/{f}")
	initStr = flag.String("i", "random", "initial parameters: file, zeros or random")
	dataDir = flag.String("d", ".", "data directory")
	workers = flag.Int("w", 0, "contraction workers, 0 means one per CPU")
	resume  = flag.Bool("resume", false, "resume from the checkpoint of a previous run")
	exact   = flag.Bool("exact", false, "also compute the exact ground energy for reference")
)

const checkpointEvery = 100

// finalLine renders the energy and parameters of a finished run on one line.
func finalLine(energy float64, params []float64) string {
	return fmt.Sprintf("Final energy: %.10f %v", energy, params)
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	start := time.Now()
	solver, prm, err := vqite.Load(*dataDir, *name, *initStr, *workers)
	if err != nil {
		return errors.Wrap(err, "")
	}
	initDur := time.Since(start)

	ckptPath := filepath.Join(*dataDir, "data_adaptvqite", *name, "checkpoint.zst")
	if *resume {
		ckpt, err := store.ReadCheckpoint(ckptPath)
		if err != nil {
			return errors.Wrap(err, "")
		}
		if err := solver.SetParams(ckpt.Params); err != nil {
			return errors.Wrap(err, "")
		}
		log.Printf("resumed from step %d energy %f", ckpt.Step, ckpt.Energy)
	}

	db, err := store.Open(filepath.Join(*dataDir, "runs.db"))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()
	config, err := json.Marshal(prm)
	if err != nil {
		return errors.Wrap(err, "")
	}
	ctx := context.Background()
	runID, err := db.CreateRun(ctx, *name, string(config))
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("run %s", runID)

	nw := *workers
	if nw <= 0 {
		nw = runtime.NumCPU()
	}
	outDir := filepath.Join(*dataDir, "outputs")
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("output%sn%d_%s.txt", *name, nw, *initStr))
	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer f.Close()
	out := bufio.NewWriter(f)

	fmt.Fprintf(out, "Initialization time: %f s\n", initDur.Seconds())
	fmt.Fprintf(out, "Initial parameters: %v\n", solver.Params())

	onStep := func(stats vqite.StepStats) error {
		fmt.Fprintf(out, "step %d energy %.10f residual %.6e\n", stats.Step, stats.Energy, stats.Residual)

		rec := store.StepRecord{Step: stats.Step, Energy: stats.Energy, Residual: stats.Residual, Params: solver.Params()}
		if err := db.AppendStep(ctx, runID, rec); err != nil {
			return errors.Wrap(err, "")
		}

		if stats.Step%checkpointEvery == 0 {
			ckpt := store.Checkpoint{Step: stats.Step, Energy: stats.Energy, Params: solver.Params()}
			if err := store.WriteCheckpoint(ckptPath, ckpt); err != nil {
				return errors.Wrap(err, "")
			}
		}
		return nil
	}

	last, runErr := solver.Run(onStep)
	fmt.Fprintln(out, finalLine(last.Energy, solver.Params()))
	if *exact {
		ham, err := prm.Operator()
		if err != nil {
			return errors.Wrap(err, "")
		}
		e0, err := exactdiag.Ground(ham)
		if err != nil {
			return errors.Wrap(err, "")
		}
		fmt.Fprintf(out, "Exact energy: %.10f\n", real(e0))
		log.Printf("exact ground energy %.10f", real(e0))
	}
	fmt.Fprintf(out, "Total time: %f s\n", time.Since(start).Seconds())
	if err := out.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	if runErr != nil {
		return errors.Wrap(runErr, "")
	}

	ckpt := store.Checkpoint{Step: last.Step, Energy: last.Energy, Params: solver.Params()}
	if err := store.WriteCheckpoint(ckptPath, ckpt); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("final energy %.10f after %d steps", last.Energy, last.Step+1)
	return nil
}
