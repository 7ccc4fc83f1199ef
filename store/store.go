// Package store persists run trajectories and parameter snapshots.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableRun  = "run"
	tableStep = "step"
)

// RunStore records runs and their per-step trajectories in a sqlite database.
type RunStore struct {
	Path string

	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens the store at dbPath, creating tables as needed.
func Open(dbPath string) (*RunStore, error) {
	s := &RunStore{Path: dbPath}

	var err error
	s.db, err = sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(s.db); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "")
	}

	if s.enc, err = zstd.NewWriter(nil); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "")
	}
	if s.dec, err = zstd.NewReader(nil); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

// Close closes the store.
func (s *RunStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// Run is a recorded solver run.
type Run struct {
	ID      string
	Name    string
	Config  string
	Created time.Time
}

// CreateRun records a new run and returns its ID.
func (s *RunStore) CreateRun(ctx context.Context, name, config string) (string, error) {
	id := uuid.NewString()
	sqlStr := fmt.Sprintf(`INSERT INTO %s (id, name, config, created) VALUES (?, ?, ?, ?)`, tableRun)
	if _, err := s.db.ExecContext(ctx, sqlStr, id, name, config, time.Now().Unix()); err != nil {
		return "", errors.Wrap(err, "")
	}
	return id, nil
}

// GetRun returns a recorded run.
func (s *RunStore) GetRun(ctx context.Context, id string) (Run, error) {
	sqlStr := fmt.Sprintf(`SELECT name, config, created FROM %s WHERE id=?`, tableRun)
	r := Run{ID: id}
	var created int64
	if err := s.db.QueryRowContext(ctx, sqlStr, id).Scan(&r.Name, &r.Config, &created); err != nil {
		return Run{}, errors.Wrap(err, id)
	}
	r.Created = time.Unix(created, 0)
	return r, nil
}

// StepRecord is the trajectory record of a single imaginary-time step.
type StepRecord struct {
	Step     int
	Energy   float64
	Residual float64
	Params   []float64
}

// AppendStep records one step of a run.
// The parameter vector is stored as a zstd compressed JSON blob.
func (s *RunStore) AppendStep(ctx context.Context, runID string, rec StepRecord) error {
	b, err := json.Marshal(rec.Params)
	if err != nil {
		return errors.Wrap(err, "")
	}
	blob := s.enc.EncodeAll(b, nil)

	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (run_id, step, e, residual, params) VALUES (?, ?, ?, ?, ?)`, tableStep)
	if _, err := s.db.ExecContext(ctx, sqlStr, runID, rec.Step, rec.Energy, rec.Residual, blob); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Steps returns the trajectory of a run in step order.
func (s *RunStore) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	sqlStr := fmt.Sprintf(`SELECT step, e, residual, params FROM %s WHERE run_id=? ORDER BY step`, tableStep)
	rows, err := s.db.QueryContext(ctx, sqlStr, runID)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	recs := make([]StepRecord, 0)
	for rows.Next() {
		var rec StepRecord
		var blob []byte
		if err := rows.Scan(&rec.Step, &rec.Energy, &rec.Residual, &blob); err != nil {
			return nil, errors.Wrap(err, "")
		}

		b, err := s.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", rec.Step))
		}
		if err := json.Unmarshal(b, &rec.Params); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", rec.Step))
		}

		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return recs, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT, name TEXT, config TEXT, created INTEGER, PRIMARY KEY (id)) STRICT`, tableRun)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run_id TEXT, step INTEGER, e REAL, residual REAL, params BLOB, PRIMARY KEY (run_id, step)) STRICT`, tableStep)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
