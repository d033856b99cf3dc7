// Command go-api-probe runs an integration test suite against a local
// OpenAI-compatible API server and exits non-zero when any check fails.
//
// Usage:
//
//	go-api-probe
//	go-api-probe --base-url http://localhost:8080 --extended
//	go-api-probe history
package main

func main() {
	Execute()
}
