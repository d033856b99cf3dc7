package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/leslieo2/go-api-probe/internal/runner"
)

const separatorWidth = 60

var separator = strings.Repeat("=", separatorWidth)

// Console streams the run transcript as checks execute. It implements
// runner.Observer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) RunStarted(target string) {
	c.printf("🚀 Starting API integration tests against %s\n%s\n", target, separator)
}

func (c *Console) WaitingForServer() {
	c.printf("Waiting for server to be ready...\n")
}

func (c *Console) ServerReady() {
	c.printf("✅ Server is ready!\n\n")
}

func (c *Console) ServerNotReady(err error) {
	c.printf("❌ Server not responding, aborting tests (%v)\n", err)
}

func (c *Console) CheckStarted(name string) {
	c.printf("Testing %s... ", name)
}

func (c *Console) CheckFinished(result runner.Result) {
	if result.Passed {
		c.printf("✅ PASS\n")
		return
	}
	c.printf("❌ FAIL - %s\n", result.Reason())
}

func (c *Console) RunFinished(summary *runner.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\n%s\n", separator)
	writeTally(c.out, summary)
}

// writeTally prints the closing results block shared by the console and the
// text writer.
func writeTally(w io.Writer, s *runner.Summary) {
	fmt.Fprintf(w, "📊 Test Results:\n")
	fmt.Fprintf(w, "✅ Passed: %d\n", s.Passed)
	fmt.Fprintf(w, "❌ Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "📈 Success Rate: %.1f%%\n", s.SuccessRate())

	if s.OK() {
		fmt.Fprintf(w, "\n🎉 ALL API INTEGRATION TESTS PASSED!\n")
		fmt.Fprintf(w, "✅ %s is compatible with OpenAI-style clients!\n", s.Target)
		return
	}
	fmt.Fprintf(w, "\n⚠️  %d tests failed. Please review the issues.\n", s.Failed)
}
