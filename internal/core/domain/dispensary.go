package domain

import "time"

// Dispensary is one entry from the static Pennsylvania medical
// dispensary directory. The directory is reference data loaded from
// disk; it is not itself a polled source, but sources are derived
// from it.
type Dispensary struct {
	Permittee    string `json:"permittee"`
	LocationName string `json:"location_name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Website      string `json:"website"`
}

// PollTask is the durable per-source polling state kept for operator
// visibility. It mirrors the scheduler's view of one source loop.
type PollTask struct {
	SourceID        string
	SourceName      string
	IntervalSeconds int
	LastRun         time.Time
	LastSuccess     time.Time
	LastError       string
	NextRun         time.Time
}

// PollResult records the outcome of one ingestion cycle.
type PollResult struct {
	SourceID    string
	StartedAt   time.Time
	EndedAt     time.Time
	EventsSaved int
	ErrorCount  int
	Heartbeat   bool
	Success     bool
	Error       string
}
