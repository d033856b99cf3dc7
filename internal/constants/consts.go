package constants

import "time"

// AppName is used for the binary name and the XDG config/data directories.
const AppName = "go-api-probe"

// Environment variable constants
const (
	EnvBaseURL            = "GO_API_PROBE_BASE_URL"
	EnvAPIKey             = "GO_API_PROBE_API_KEY"
	EnvRequestTimeout     = "GO_API_PROBE_REQUEST_TIMEOUT"
	EnvReadinessAttempts  = "GO_API_PROBE_READINESS_ATTEMPTS"
	EnvReadinessInterval  = "GO_API_PROBE_READINESS_INTERVAL"
	EnvResponseTimeLimit  = "GO_API_PROBE_RESPONSE_TIME_LIMIT"
	EnvConcurrentRequests = "GO_API_PROBE_CONCURRENT_REQUESTS"
	EnvExtended           = "GO_API_PROBE_EXTENDED"
	EnvContractFile       = "GO_API_PROBE_CONTRACT_FILE"
	EnvReportFormat       = "GO_API_PROBE_REPORT_FORMAT"
	EnvReportOutput       = "GO_API_PROBE_REPORT_OUTPUT"
	EnvHistoryEnabled     = "GO_API_PROBE_HISTORY"
	EnvHistoryPath        = "GO_API_PROBE_HISTORY_PATH"
	EnvLogLevel           = "GO_API_PROBE_LOG_LEVEL"
	EnvMetricsFile        = "GO_API_PROBE_METRICS_FILE"
	EnvTracingEnabled     = "GO_API_PROBE_TRACING"
	EnvCacheTTL           = "GO_API_PROBE_CACHE_TTL"
)

// HTTP method constants
const (
	MethodGET     = "GET"
	MethodPOST    = "POST"
	MethodOPTIONS = "OPTIONS"
)

// HTTP header constants
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	HeaderOrigin        = "Origin"
)

// Content type constants
const (
	ContentTypeJSON = "application/json"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowMethods = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
)

// Authentication constants
const (
	BearerPrefix = "Bearer "
)

// Paths of the server under test
const (
	PathHealth          = "/health"
	PathModels          = "/v1/models"
	PathChatCompletions = "/v1/chat/completions"
	PathNotFound        = "/nonexistent"
)

// Probe defaults
const (
	DefaultBaseURL   = "http://localhost:4891"
	DefaultUserAgent = AppName + "/1.0"

	// DefaultRequestTimeout bounds every single HTTP request.
	DefaultRequestTimeout = 5 * time.Second

	DefaultReadinessAttempts = 10
	DefaultReadinessInterval = time.Second

	DefaultResponseTimeLimit  = 100 * time.Millisecond
	DefaultConcurrentRequests = 15
	DefaultSequentialRequests = 10
	DefaultSequentialInterval = 50 * time.Millisecond

	DefaultKeepAliveRequests     = 5
	DefaultKeepAliveInterval     = 100 * time.Millisecond
	DefaultLoadWorkers           = 5
	DefaultLoadRequestsPerWorker = 10
	DefaultLoadMinSuccessRate    = 0.8

	// DefaultChatModel is sent when the server lists no models.
	DefaultChatModel = "gpt-3.5-turbo"

	DefaultWatchDebounce = 500 * time.Millisecond
)

// Health payload values
const (
	HealthStatusOK = "ok"
)

// OpenAI list/model object discriminators
const (
	ObjectList  = "list"
	ObjectModel = "model"
)

// Report formats
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)
