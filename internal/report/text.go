package report

import (
	"fmt"
	"io"

	"github.com/leslieo2/go-api-probe/internal/runner"
)

// TextWriter writes the plain transcript of a finished run.
type TextWriter struct {
	out io.Writer
}

func NewTextWriter(out io.Writer) *TextWriter {
	return &TextWriter{out: out}
}

func (w *TextWriter) Write(s *runner.Summary) error {
	ew := &errWriter{w: w.out}

	fmt.Fprintf(ew, "Run %s against %s (%s)\n", s.RunID, s.Target, s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(ew, "%s\n", separator)
	for _, r := range s.Results {
		if r.Passed {
			fmt.Fprintf(ew, "Testing %s... ✅ PASS\n", r.Name)
		} else {
			fmt.Fprintf(ew, "Testing %s... ❌ FAIL - %s\n", r.Name, r.Reason())
		}
	}
	fmt.Fprintf(ew, "\n%s\n", separator)
	writeTally(ew, s)

	return ew.err
}

// errWriter keeps the first write error so a run of Fprintf calls can be
// checked once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
