package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/leslieo2/go-api-probe/internal/runner"
)

// MarkdownWriter writes the run summary as a Markdown document suitable for
// CI job summaries.
type MarkdownWriter struct {
	out io.Writer
}

func NewMarkdownWriter(out io.Writer) *MarkdownWriter {
	return &MarkdownWriter{out: out}
}

func (w *MarkdownWriter) Write(s *runner.Summary) error {
	md := markdown.NewMarkdown(w.out)

	md.H1("API Integration Test Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + s.Target + "`"},
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Passed", strconv.Itoa(s.Passed)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Success Rate", fmt.Sprintf("%.1f%%", s.SuccessRate())},
		},
	})
	md.PlainText("")

	if s.OK() {
		md.Tip("All checks passed.")
	} else {
		md.Warningf("%d of %d checks failed.", s.Failed, s.Total())
	}
	md.PlainText("")

	md.H2("Checks")
	md.PlainText("")
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		status := "✅ PASS"
		reason := "-"
		if !r.Passed {
			status = "❌ FAIL"
			reason = r.Reason()
		}
		rows = append(rows, []string{r.Name, status, r.Duration.Round(time.Microsecond).String(), reason})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result", "Duration", "Reason"},
		Rows:   rows,
	})

	if failed := s.FailedResults(); len(failed) > 0 {
		md.PlainText("")
		md.H2("Failures")
		md.PlainText("")
		items := make([]string, 0, len(failed))
		for _, r := range failed {
			items = append(items, fmt.Sprintf("**%s**: %s", r.Name, r.Reason()))
		}
		md.BulletList(items...)
	}

	return md.Build()
}
