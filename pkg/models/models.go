// Package models holds the DTOs the API and storage layers exchange:
// the HTTP request/response shapes, the persisted run record, and the
// progress events streamed over the WebSocket hub.
package models

import "time"

// TrainRunRequest is the POST /api/v1/runs request body. It bundles
// the rulelib.Params hyperparameters with the demo synthetic data
// generator's sizing knobs and the search method to run.
type TrainRunRequest struct {
	NSamples  int     `json:"nSamples"`
	NRules    int     `json:"nRules"`
	Lambda    float64 `json:"lambda"`
	Eta       float64 `json:"eta"`
	Alpha0    float64 `json:"alpha0"`
	Alpha1    float64 `json:"alpha1"`
	Iters     int     `json:"iters"`
	InitSize  int     `json:"initSize"`
	NChain    int     `json:"nChain"`
	Threshold float64 `json:"threshold"`
	Method    string  `json:"method"`
	Seed      *int64  `json:"seed,omitempty"`
}

// RunStatus is the lifecycle state of a training run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// TrainRun is a training run's full record: the request that started
// it, its current status, and (once complete) the trained list.
type TrainRun struct {
	ID              string          `json:"id"`
	Status          RunStatus       `json:"status"`
	Request         TrainRunRequest `json:"request"`
	RuleIDs         []int           `json:"ruleIds,omitempty"`
	Theta           []float64       `json:"theta,omitempty"`
	MaxLogPosterior float64         `json:"maxLogPosterior,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// ProgressEvent is broadcast over the WebSocket hub every time a
// run's best-seen posterior improves.
type ProgressEvent struct {
	RunID           string  `json:"runId"`
	Iteration       int     `json:"iteration"`
	MaxLogPosterior float64 `json:"maxLogPosterior"`
	NAdd            int     `json:"nAdd"`
	NDelete         int     `json:"nDelete"`
	NSwap           int     `json:"nSwap"`
	NReject         int     `json:"nReject"`
}
