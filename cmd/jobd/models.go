package main

import (
	"time"
)

// Job statuses.
const (
	StatusPending = "Pending"
	StatusRunning = "Running"
	StatusDone    = "Done"
	StatusFailed  = "Failed"
)

// JobSpec describes one imaginary-time evolution run.
// Name selects the incar and ansatz files inside the worker's data directory.
type JobSpec struct {
	Name         string `json:"name" bson:"name" binding:"required"`
	InitStrategy string `json:"initStrategy" bson:"initStrategy"`
	Workers      int    `json:"workers" bson:"workers"`
}

// JobResult is the outcome reported by a worker.
type JobResult struct {
	Energy float64   `json:"energy" bson:"energy"`
	Steps  int       `json:"steps" bson:"steps"`
	Params []float64 `json:"params" bson:"params"`
	Error  string    `json:"error" bson:"error"`
}

type job struct {
	TimeCreated time.Time `json:"timeCreated" bson:"timeCreated"`
	Spec        JobSpec   `json:"spec" bson:"spec"`
	Status      string    `json:"status" bson:"status"`
	WorkerID    string    `json:"workerId" bson:"workerId"`
	Result      JobResult `json:"result" bson:"result"`
}
