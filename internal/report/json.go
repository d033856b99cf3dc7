package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/leslieo2/go-api-probe/internal/runner"
)

type jsonReport struct {
	RunID       string      `json:"run_id"`
	Target      string      `json:"target"`
	StartedAt   time.Time   `json:"started_at"`
	DurationMS  float64     `json:"duration_ms"`
	Passed      int         `json:"passed"`
	Failed      int         `json:"failed"`
	SuccessRate float64     `json:"success_rate"`
	OK          bool        `json:"ok"`
	Checks      []jsonCheck `json:"checks"`
}

type jsonCheck struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Extended   bool    `json:"extended,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// JSONWriter writes the run summary as one indented JSON document.
type JSONWriter struct {
	out io.Writer
}

func NewJSONWriter(out io.Writer) *JSONWriter {
	return &JSONWriter{out: out}
}

func (w *JSONWriter) Write(s *runner.Summary) error {
	doc := jsonReport{
		RunID:       s.RunID,
		Target:      s.Target,
		StartedAt:   s.StartedAt,
		DurationMS:  milliseconds(s.Duration),
		Passed:      s.Passed,
		Failed:      s.Failed,
		SuccessRate: s.SuccessRate(),
		OK:          s.OK(),
		Checks:      make([]jsonCheck, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		doc.Checks = append(doc.Checks, jsonCheck{
			Name:       r.Name,
			Passed:     r.Passed,
			Extended:   r.Extended,
			Reason:     r.Reason(),
			DurationMS: milliseconds(r.Duration),
		})
	}

	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
