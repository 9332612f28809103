package pipeline

import "time"

// Report summarises one Run.
type Report struct {
	RunID    string
	Source   string
	Started  time.Time
	Finished time.Time

	Discovered    int
	FetchFailed   int
	Extracted     int
	Discarded     int
	Inserted      int
	Updated       int
	PersistFailed int

	// Discards counts discarded pages per reason.
	Discards map[string]int
	// Errors holds one error per failed batch.
	Errors []error
}

func (r Report) Persisted() int {
	return r.Inserted + r.Updated
}
