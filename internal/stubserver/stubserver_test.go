package stubserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestServer_ConformingDefaults(t *testing.T) {
	srv := New(Options{})
	defer srv.Close()

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "GPT4All Local API", body["service"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))

	resp, body = get(t, srv.URL+"/v1/models")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "list", body["object"])
	assert.Len(t, body["data"], 1)

	resp, body = get(t, srv.URL+"/nonexistent")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "Endpoint /nonexistent not found", body["message"])

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/health", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int64(1), srv.HealthHits())
}

func TestServer_ChatCompletions(t *testing.T) {
	srv := New(Options{})
	defer srv.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed", body: "{not json", want: http.StatusBadRequest},
		{name: "missing fields", body: `{"model":"gpt4all-test"}`, want: http.StatusBadRequest},
		{name: "valid", body: `{"model":"gpt4all-test","messages":[{"role":"user","content":"hi"}]}`, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_FaultInjection(t *testing.T) {
	srv := New(Options{
		DisableCORS:       true,
		UnavailableFor:    1,
		FailHealthAfter:   2,
		HealthContentType: "text/plain",
		RawModels:         `{"object":"list","data":[]}`,
	})
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	_, body := get(t, srv.URL+"/v1/models")
	assert.Empty(t, body["data"])
}
