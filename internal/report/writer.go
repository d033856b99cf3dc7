package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leslieo2/go-api-probe/internal/constants"
	"github.com/leslieo2/go-api-probe/internal/runner"
)

// Writer renders a finished run summary.
type Writer interface {
	Write(summary *runner.Summary) error
}

// NewWriter returns the writer for format, one of text, json or markdown.
func NewWriter(format string, out io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case constants.FormatText:
		return NewTextWriter(out), nil
	case constants.FormatJSON:
		return NewJSONWriter(out), nil
	case constants.FormatMarkdown:
		return NewMarkdownWriter(out), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// WriteFile renders summary into path, creating parent directories as needed.
func WriteFile(path, format string, summary *runner.Summary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path) // #nosec G304 - path is supplied by the operator
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	w, err := NewWriter(format, f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Write(summary); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	return f.Close()
}
