package checks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/go-api-probe/internal/client"
	"github.com/leslieo2/go-api-probe/internal/config"
	"github.com/leslieo2/go-api-probe/internal/contract"
	"github.com/leslieo2/go-api-probe/internal/stubserver"
)

func newEnv(t *testing.T, baseURL string) *Env {
	t.Helper()
	target := config.DefaultTargetConfig()
	target.BaseURL = baseURL
	c, err := client.New(target)
	require.NoError(t, err)

	ct, err := contract.Default()
	require.NoError(t, err)

	return &Env{Client: c, Config: config.DefaultChecksConfig(), Contract: ct}
}

func findCheck(t *testing.T, name string) Check {
	t.Helper()
	cfg := config.DefaultChecksConfig()
	cfg.Extended = true
	for _, c := range Select(cfg) {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return Check{}
}

func TestCore_NamesAndOrder(t *testing.T) {
	var names []string
	for _, c := range Core(config.DefaultChecksConfig()) {
		names = append(names, c.Name)
	}

	assert.Equal(t, []string{
		"Health endpoint functionality",
		"Models endpoint functionality",
		"404 error handling",
		"CORS headers present",
		"OPTIONS method support",
		"JSON content type",
		"Response time < 100ms",
		"Concurrent requests (15)",
		"Sequential requests",
		"OpenAI API compatibility",
	}, names)
}

func TestSelect(t *testing.T) {
	cfg := config.DefaultChecksConfig()
	assert.Len(t, Select(cfg), 10)

	cfg.Extended = true
	assert.Len(t, Select(cfg), 15)

	cfg.Skip = []string{"sequential requests", "OpenAPI contract conformance"}
	selected := Select(cfg)
	assert.Len(t, selected, 13)
	for _, c := range selected {
		assert.NotEqual(t, "Sequential requests", c.Name)
	}
}

func TestChecks_PassAgainstConformingServer(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	defer srv.Close()

	env := newEnv(t, srv.URL)
	env.Config.SequentialInterval = 5 * time.Millisecond
	env.Config.KeepAliveInterval = 5 * time.Millisecond

	cfg := env.Config
	cfg.Extended = true
	for _, c := range Select(cfg) {
		t.Run(c.Name, func(t *testing.T) {
			assert.NoError(t, c.Run(context.Background(), env))
		})
	}
}

func TestChecks_DetectViolations(t *testing.T) {
	tests := []struct {
		check      string
		opts       stubserver.Options
		wantReason string
	}{
		{
			check:      "Health endpoint functionality",
			opts:       stubserver.Options{OmitHealthFields: []string{"timestamp", "service"}},
			wantReason: "missing field(s): service, timestamp",
		},
		{
			check:      "Health endpoint functionality",
			opts:       stubserver.Options{HealthStatus: "degraded"},
			wantReason: `status is degraded, want "ok"`,
		},
		{
			check:      "Health endpoint functionality",
			opts:       stubserver.Options{UnavailableFor: 1},
			wantReason: "expected status 200, got 503",
		},
		{
			check:      "Models endpoint functionality",
			opts:       stubserver.Options{Models: []stubserver.Model{}},
			wantReason: "model list is empty",
		},
		{
			check:      "Models endpoint functionality",
			opts:       stubserver.Options{RawModels: `{"object":"dict","data":[]}`},
			wantReason: `object is dict, want "list"`,
		},
		{
			check:      "Models endpoint functionality",
			opts:       stubserver.Options{RawModels: `{"object":"list","data":[{"id":"m"}]}`},
			wantReason: "data[0] missing field(s): object, owned_by",
		},
		{
			check:      "Models endpoint functionality",
			opts:       stubserver.Options{RawModels: `{"object":"list"}`},
			wantReason: "missing field: data",
		},
		{
			check:      "404 error handling",
			opts:       stubserver.Options{NotFoundStatus: http.StatusOK},
			wantReason: "expected status 404, got 200",
		},
		{
			check:      "CORS headers present",
			opts:       stubserver.Options{DisableCORS: true},
			wantReason: "missing header(s): Access-Control-Allow-Origin, Access-Control-Allow-Methods",
		},
		{
			check:      "OPTIONS method support",
			opts:       stubserver.Options{OptionsStatus: http.StatusNoContent},
			wantReason: "expected status 200, got 204",
		},
		{
			check:      "JSON content type",
			opts:       stubserver.Options{HealthContentType: "text/plain"},
			wantReason: `content-type is "text/plain", want application/json`,
		},
		{
			check:      "Response time < 100ms",
			opts:       stubserver.Options{HealthDelay: 150 * time.Millisecond},
			wantReason: "limit 100ms",
		},
		{
			check:      "Concurrent requests (15)",
			opts:       stubserver.Options{FailHealthAfter: 10},
			wantReason: "5 of 15 concurrent requests failed",
		},
		{
			check:      "Sequential requests",
			opts:       stubserver.Options{FailHealthAfter: 3},
			wantReason: "request 4 of 10: expected status 200, got 500",
		},
		{
			check:      "OpenAI API compatibility",
			opts:       stubserver.Options{RawModels: `{"object":"list","data":[{"id":"a","object":"model","created":1,"owned_by":"x"},{"id":"b","object":"engine","created":1,"owned_by":"x"}]}`},
			wantReason: `data[1].object is engine, want "model"`,
		},
		{
			check:      "OpenAI API compatibility",
			opts:       stubserver.Options{RawModels: `{"object":"list","data":[{"id":"a","object":"model","owned_by":"x"}]}`},
			wantReason: "data[0] missing field(s): created",
		},
		{
			check:      "OpenAPI contract conformance",
			opts:       stubserver.Options{Models: []stubserver.Model{}},
			wantReason: "violates contract",
		},
		{
			check:      "Persistent connection",
			opts:       stubserver.Options{FailHealthAfter: 2},
			wantReason: "request 3 of 5 on the same connection: expected status 200, got 500",
		},
		{
			check:      "Large concurrent load",
			opts:       stubserver.Options{FailHealthAfter: 30},
			wantReason: "30 of 50 requests succeeded under load, need 40",
		},
		{
			check:      "Chat completions accepts valid request",
			opts:       stubserver.Options{RawChat: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`},
			wantReason: "response has no choices",
		},
		{
			check:      "Chat completions accepts valid request",
			opts:       stubserver.Options{RawChat: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0}]}`},
			wantReason: "violates contract",
		},
	}

	for _, tt := range tests {
		t.Run(tt.check+"/"+tt.wantReason, func(t *testing.T) {
			srv := stubserver.New(tt.opts)
			defer srv.Close()

			env := newEnv(t, srv.URL)
			env.Config.SequentialInterval = time.Millisecond
			env.Config.KeepAliveInterval = time.Millisecond

			err := findCheck(t, tt.check).Run(context.Background(), env)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCheckFailed), "expected a check failure, got %v", err)
			assert.Contains(t, err.Error(), tt.wantReason)
		})
	}
}

func TestOpenAICompatibility_EmptyListPasses(t *testing.T) {
	srv := stubserver.New(stubserver.Options{Models: []stubserver.Model{}})
	defer srv.Close()

	assert.NoError(t, checkOpenAICompatibility(context.Background(), newEnv(t, srv.URL)))
}

func TestChecks_TransportErrorIsNotCheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := checkHealthEndpoint(context.Background(), newEnv(t, url))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCheckFailed))
}

func TestSequentialRequests_Pacing(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	defer srv.Close()

	env := newEnv(t, srv.URL)
	env.Config.SequentialRequests = 5
	env.Config.SequentialInterval = 20 * time.Millisecond

	start := time.Now()
	require.NoError(t, checkSequentialRequests(context.Background(), env))

	assert.GreaterOrEqual(t, time.Since(start), 4*20*time.Millisecond)
	assert.Equal(t, int64(5), srv.HealthHits())
}

func TestSequentialRequests_Cancelled(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	defer srv.Close()

	env := newEnv(t, srv.URL)
	env.Config.SequentialInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := checkSequentialRequests(ctx, env)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCheckFailed))
}

func TestConcurrentRequests_AllSent(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	defer srv.Close()

	env := newEnv(t, srv.URL)
	require.NoError(t, checkConcurrentRequests(context.Background(), env))
	assert.Equal(t, int64(15), srv.HealthHits())
}

func TestConcurrentRequests_ReportsEveryFailure(t *testing.T) {
	srv := stubserver.New(stubserver.Options{UnavailableFor: 15})
	defer srv.Close()

	err := checkConcurrentRequests(context.Background(), newEnv(t, srv.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCheckFailed))
	assert.Contains(t, err.Error(), "15 of 15 concurrent requests failed, first: expected status 200, got 503")
}

func TestLargeConcurrentLoad_BoundedWorkers(t *testing.T) {
	srv := stubserver.New(stubserver.Options{HealthDelay: 5 * time.Millisecond})
	defer srv.Close()

	env := newEnv(t, srv.URL)
	require.NoError(t, checkLargeConcurrentLoad(context.Background(), env))

	assert.Equal(t, int64(50), srv.HealthHits())
	assert.LessOrEqual(t, srv.MaxInFlight(), int64(5))
}

func TestLargeConcurrentLoad_ToleratesFewFailures(t *testing.T) {
	srv := stubserver.New(stubserver.Options{FailHealthAfter: 45})
	defer srv.Close()

	require.NoError(t, checkLargeConcurrentLoad(context.Background(), newEnv(t, srv.URL)))
	assert.Equal(t, int64(50), srv.HealthHits())
}

func TestPersistentConnection_ReusesOneConnection(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	defer srv.Close()

	env := newEnv(t, srv.URL)
	env.Config.KeepAliveInterval = 20 * time.Millisecond

	start := time.Now()
	require.NoError(t, checkPersistentConnection(context.Background(), env))

	assert.GreaterOrEqual(t, time.Since(start), 4*20*time.Millisecond)
	assert.Equal(t, int64(5), srv.HealthHits())
	assert.Equal(t, int64(1), srv.Connections())
}

func TestChatCompletion_SendsListedModel(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"local-llama","object":"model","created":1,"owned_by":"me"}]}`))
			return
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		_, _ = w.Write([]byte(`{"id":"c","object":"chat.completion","created":1,"model":"local-llama","choices":[{"index":0,"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	require.NoError(t, checkChatCompletion(context.Background(), newEnv(t, srv.URL)))
	assert.Equal(t, "local-llama", gotModel)
}

func TestChatCompletion_RejectedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not installed"}`))
	}))
	defer srv.Close()

	err := checkChatCompletion(context.Background(), newEnv(t, srv.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCheckFailed))
	assert.Contains(t, err.Error(), "expected status 200, got 404")
	assert.Contains(t, err.Error(), "model not installed")
}

func TestChecks_OneRequestEachWithCacheEnabled(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	defer srv.Close()

	target := config.DefaultTargetConfig()
	target.BaseURL = srv.URL
	target.CacheTTL = time.Minute
	c, err := client.New(target)
	require.NoError(t, err)
	ct, err := contract.Default()
	require.NoError(t, err)
	env := &Env{Client: c, Config: config.DefaultChecksConfig(), Contract: ct}

	ctx := context.Background()
	for _, run := range []func(context.Context, *Env) error{checkHealthEndpoint, checkCORSHeaders, checkContentType} {
		require.NoError(t, run(ctx, env))
	}
	assert.Equal(t, int64(3), srv.HealthHits())

	require.NoError(t, checkContract(ctx, env))
	assert.Equal(t, int64(3), srv.HealthHits(), "contract check reuses the memoized health response")
}

func TestMalformedChatRequest_ServerAcceptsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	err := checkMalformedChatRequest(context.Background(), newEnv(t, srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected status 400, got 200")
}

func TestContractCheck_NoContract(t *testing.T) {
	env := newEnv(t, "http://localhost:4891")
	env.Contract = nil
	assert.Error(t, checkContract(context.Background(), env))
}
