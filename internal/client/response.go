package client

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// Request describes one call against the target. Path is resolved against
// the configured base URL.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
	// NoCache skips the cache lookup; the response is still memoized.
	NoCache bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// JSON is the decoded body, or nil when the body is empty or not JSON.
	JSON     any
	Duration time.Duration
	// Cached is set when the response was served from the memoization cache.
	Cached bool
}

func newResponse(resp *http.Response, body []byte, duration time.Duration) *Response {
	r := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   duration,
	}
	if len(body) > 0 {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err == nil {
			r.JSON = decoded
		}
	}
	return r
}

// Object returns the body as a JSON object, or nil if it is not one.
func (r *Response) Object() map[string]any {
	obj, _ := r.JSON.(map[string]any)
	return obj
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string {
	return r.Header.Get(constants.HeaderContentType)
}

// IsJSON reports whether the response declares a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType()), constants.ContentTypeJSON)
}
