// Package contract validates target responses against an OpenAPI document.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"

	"github.com/leslieo2/go-api-probe/internal/client"
)

//go:embed openapi.yaml
var defaultDocument []byte

// ErrUndocumented is returned when a method/path pair is absent from the document.
var ErrUndocumented = errors.New("operation not documented in contract")

type Contract struct {
	doc *openapi3.T
}

// Operation is one documented method/path pair.
type Operation struct {
	Method string
	Path   string
}

// Default returns the built-in contract of an OpenAI-compatible local server.
func Default() (*Contract, error) {
	return FromData(defaultDocument)
}

// Load reads an OpenAPI document from disk.
func Load(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}
	return FromData(data)
}

// FromData parses and validates an OpenAPI document (YAML or JSON).
func FromData(data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI contract: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("OpenAPI contract validation failed: %w", err)
	}

	return &Contract{doc: doc}, nil
}

// Operations lists documented operations sorted by path then method.
func (c *Contract) Operations() []Operation {
	var ops []Operation
	for path, item := range c.doc.Paths.Map() {
		for method := range item.Operations() {
			ops = append(ops, Operation{Method: strings.ToUpper(method), Path: path})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

// Validate checks resp against the documented response for method and path.
func (c *Contract) Validate(ctx context.Context, method, path string, resp *client.Response) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}

	method = strings.ToUpper(method)
	pathItem := c.doc.Paths.Find(path)
	if pathItem == nil {
		return fmt.Errorf("%w: %s %s", ErrUndocumented, method, path)
	}
	operation := pathItem.GetOperation(method)
	if operation == nil {
		return fmt.Errorf("%w: %s %s", ErrUndocumented, method, path)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, nil)
	if err != nil {
		return fmt.Errorf("create validation request: %w", err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request: req,
			Route: &routers.Route{
				Spec:      c.doc,
				Path:      path,
				PathItem:  pathItem,
				Method:    method,
				Operation: operation,
			},
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
			MultiError:            true,
		},
	}
	input.SetBodyBytes(resp.Body)

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("%s %s violates contract: %w", method, path, err)
	}
	return nil
}
