package dto

// ImportRunState is the state reported when a run is handed to the worker.
type ImportRunState string

const ImportRunQueued ImportRunState = "queued"

// ImportRunResponse is returned when an operator triggers an import run.
type ImportRunResponse struct {
	JobID  string         `json:"jobId"`
	Status ImportRunState `json:"status"`
}
