// Package checks holds the named probes run against the server under test.
package checks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leslieo2/go-api-probe/internal/client"
	"github.com/leslieo2/go-api-probe/internal/config"
	"github.com/leslieo2/go-api-probe/internal/contract"
)

// ErrCheckFailed matches every failure reported by a check, as opposed to
// transport errors surfaced by the client.
var ErrCheckFailed = errors.New("check failed")

// Failure is a check assertion that did not hold.
type Failure struct {
	Reason string
}

func (f *Failure) Error() string { return f.Reason }

func (f *Failure) Is(target error) bool { return target == ErrCheckFailed }

func failf(format string, args ...any) error {
	return &Failure{Reason: fmt.Sprintf(format, args...)}
}

// Env is what every check runs against.
type Env struct {
	Client *client.Client
	Config config.ChecksConfig
	// Contract is only required by the contract conformance check.
	Contract *contract.Contract
}

// Check is one named pass/fail probe. Run returns nil on pass.
type Check struct {
	Name     string
	Extended bool
	Run      func(ctx context.Context, env *Env) error
}

// Core returns the ten standard checks in execution order.
func Core(cfg config.ChecksConfig) []Check {
	return []Check{
		{Name: "Health endpoint functionality", Run: checkHealthEndpoint},
		{Name: "Models endpoint functionality", Run: checkModelsEndpoint},
		{Name: "404 error handling", Run: checkNotFound},
		{Name: "CORS headers present", Run: checkCORSHeaders},
		{Name: "OPTIONS method support", Run: checkOptionsMethod},
		{Name: "JSON content type", Run: checkContentType},
		{Name: fmt.Sprintf("Response time < %s", cfg.ResponseTimeLimit), Run: checkResponseTime},
		{Name: fmt.Sprintf("Concurrent requests (%d)", cfg.ConcurrentRequests), Run: checkConcurrentRequests},
		{Name: "Sequential requests", Run: checkSequentialRequests},
		{Name: "OpenAI API compatibility", Run: checkOpenAICompatibility},
	}
}

// Extended returns the opt-in checks.
func Extended() []Check {
	return []Check{
		{Name: "OpenAPI contract conformance", Extended: true, Run: checkContract},
		{Name: "Chat completions rejects malformed JSON", Extended: true, Run: checkMalformedChatRequest},
		{Name: "Persistent connection", Extended: true, Run: checkPersistentConnection},
		{Name: "Large concurrent load", Extended: true, Run: checkLargeConcurrentLoad},
		{Name: "Chat completions accepts valid request", Extended: true, Run: checkChatCompletion},
	}
}

// Select returns the checks enabled by cfg, minus skipped ones.
func Select(cfg config.ChecksConfig) []Check {
	all := Core(cfg)
	if cfg.Extended {
		all = append(all, Extended()...)
	}

	selected := make([]Check, 0, len(all))
	for _, c := range all {
		if cfg.Skipped(c.Name) {
			continue
		}
		selected = append(selected, c)
	}
	return selected
}

func expectStatus(resp *client.Response, want int) error {
	if resp.StatusCode != want {
		return failf("expected status %d, got %d", want, resp.StatusCode)
	}
	return nil
}

func expectObject(resp *client.Response) (map[string]any, error) {
	obj := resp.Object()
	if obj == nil {
		return nil, failf("response body is not a JSON object: %q", truncate(string(resp.Body), 80))
	}
	return obj, nil
}

// missingFields returns the names absent from obj, sorted.
func missingFields(obj map[string]any, fields ...string) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := obj[f]; !ok {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	return missing
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
