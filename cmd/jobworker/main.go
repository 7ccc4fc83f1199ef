// Command jobworker polls a jobd server for pending runs, solves them
// with the local data directory, and reports the results back.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/khidanov/vqite"
)

var (
	server   = flag.String("server", "http://localhost:8000", "jobd address")
	dataDir  = flag.String("d", ".", "data directory")
	interval = flag.Duration("poll", 10*time.Second, "poll interval when the queue is empty")
)

type jobSpec struct {
	Name         string `json:"name"`
	InitStrategy string `json:"initStrategy"`
	Workers      int    `json:"workers"`
}

type claimedJob struct {
	ID   string  `json:"id"`
	Spec jobSpec `json:"spec"`
}

type jobResult struct {
	Energy float64   `json:"energy"`
	Steps  int       `json:"steps"`
	Params []float64 `json:"params"`
	Error  string    `json:"error"`
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.NewString())
	log.Printf("worker %s polling %s", workerID, *server)

	for {
		j, ok, err := claim(workerID)
		if err != nil {
			log.Printf("claim: %+v", err)
			time.Sleep(*interval)
			continue
		}
		if !ok {
			time.Sleep(*interval)
			continue
		}

		log.Printf("job %s %q", j.ID, j.Spec.Name)
		res := solve(j.Spec)
		if err := report(j.ID, res); err != nil {
			log.Printf("report %s: %+v", j.ID, err)
		}
	}
}

func solve(spec jobSpec) jobResult {
	solver, _, err := vqite.Load(*dataDir, spec.Name, spec.InitStrategy, spec.Workers)
	if err != nil {
		return jobResult{Error: fmt.Sprintf("%+v", err)}
	}
	last, err := solver.Run(nil)
	if err != nil {
		return jobResult{Error: fmt.Sprintf("%+v", err)}
	}
	return jobResult{Energy: last.Energy, Steps: last.Step + 1, Params: solver.Params()}
}

// claim asks the server for a pending job. ok is false when the queue is empty.
func claim(workerID string) (claimedJob, bool, error) {
	body, err := json.Marshal(map[string]string{"workerId": workerID})
	if err != nil {
		return claimedJob{}, false, errors.Wrap(err, "")
	}
	resp, err := http.Post(*server+"/jobs/claim", "application/json", bytes.NewReader(body))
	if err != nil {
		return claimedJob{}, false, errors.Wrap(err, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return claimedJob{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return claimedJob{}, false, errors.Errorf("%d %s", resp.StatusCode, b)
	}

	var j claimedJob
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return claimedJob{}, false, errors.Wrap(err, "")
	}
	return j, true, nil
}

func report(id string, res jobResult) error {
	body, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "")
	}
	resp, err := http.Post(fmt.Sprintf("%s/jobs/%s/result", *server, id), "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return errors.Errorf("%d %s", resp.StatusCode, b)
	}
	return nil
}
