package checks

import (
	"context"
	"net/http"
	"strings"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// listModels fetches /v1/models and returns the data array after checking
// the list envelope.
func listModels(ctx context.Context, env *Env) ([]any, error) {
	resp, err := env.Client.GetFresh(ctx, constants.PathModels)
	if err != nil {
		return nil, err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	obj, err := expectObject(resp)
	if err != nil {
		return nil, err
	}
	if obj["object"] != constants.ObjectList {
		return nil, failf("object is %v, want %q", obj["object"], constants.ObjectList)
	}
	raw, ok := obj["data"]
	if !ok {
		return nil, failf("missing field: data")
	}
	data, ok := raw.([]any)
	if !ok {
		return nil, failf("data is not an array")
	}
	return data, nil
}

func checkModelsEndpoint(ctx context.Context, env *Env) error {
	data, err := listModels(ctx, env)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return failf("model list is empty")
	}

	model, ok := data[0].(map[string]any)
	if !ok {
		return failf("data[0] is not an object")
	}
	if missing := missingFields(model, "id", "object", "owned_by"); len(missing) > 0 {
		return failf("data[0] missing field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// checkOpenAICompatibility validates every listed model, not just the first.
func checkOpenAICompatibility(ctx context.Context, env *Env) error {
	data, err := listModels(ctx, env)
	if err != nil {
		return err
	}

	for i, entry := range data {
		model, ok := entry.(map[string]any)
		if !ok {
			return failf("data[%d] is not an object", i)
		}
		if missing := missingFields(model, "id", "object", "created", "owned_by"); len(missing) > 0 {
			return failf("data[%d] missing field(s): %s", i, strings.Join(missing, ", "))
		}
		if model["object"] != constants.ObjectModel {
			return failf("data[%d].object is %v, want %q", i, model["object"], constants.ObjectModel)
		}
	}
	return nil
}
