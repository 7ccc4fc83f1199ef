package store

import (
	"encoding/json"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Checkpoint is a resumable snapshot of a solver run.
type Checkpoint struct {
	Step   int       `json:"step"`
	Energy float64   `json:"energy"`
	Params []float64 `json:"params"`
}

// WriteCheckpoint writes a zstd compressed checkpoint to fpath.
func WriteCheckpoint(fpath string, c Checkpoint) error {
	b, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "")
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	blob := enc.EncodeAll(b, nil)
	enc.Close()

	if err := os.WriteFile(fpath, blob, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// ReadCheckpoint reads a checkpoint written by WriteCheckpoint.
func ReadCheckpoint(fpath string) (Checkpoint, error) {
	blob, err := os.ReadFile(fpath)
	if err != nil {
		return Checkpoint{}, errors.Wrap(err, "")
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Checkpoint{}, errors.Wrap(err, "")
	}
	defer dec.Close()
	b, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return Checkpoint{}, errors.Wrap(err, "")
	}

	var c Checkpoint
	if err := json.Unmarshal(b, &c); err != nil {
		return Checkpoint{}, errors.Wrap(err, "")
	}
	return c, nil
}
