package runner

import (
	"time"
)

// Result is the outcome of one check.
type Result struct {
	Name     string
	Passed   bool
	Extended bool
	// Err is nil when the check passed.
	Err      error
	Duration time.Duration
}

// Reason is the printable failure reason, empty on pass.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary aggregates one run.
type Summary struct {
	RunID     string
	Target    string
	StartedAt time.Time
	Duration  time.Duration
	Results   []Result
	Passed    int
	Failed    int
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	if r.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
}

// Total is the number of checks that ran.
func (s *Summary) Total() int {
	return s.Passed + s.Failed
}

// SuccessRate is Passed/(Passed+Failed)*100, or 0 when nothing ran.
func (s *Summary) SuccessRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total()) * 100
}

// OK reports whether no check failed.
func (s *Summary) OK() bool {
	return s.Failed == 0
}

// FailedResults returns only the failing results.
func (s *Summary) FailedResults() []Result {
	var failed []Result
	for _, r := range s.Results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
