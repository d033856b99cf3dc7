package checks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

func checkContract(ctx context.Context, env *Env) error {
	if env.Contract == nil {
		return errors.New("no contract loaded")
	}

	// Get reuses responses earlier checks fetched when memoization is on.
	for _, path := range []string{constants.PathHealth, constants.PathModels} {
		resp, err := env.Client.Get(ctx, path)
		if err != nil {
			return err
		}
		if err := env.Contract.Validate(ctx, constants.MethodGET, path, resp); err != nil {
			return failf("%v", err)
		}
	}
	return nil
}

func checkMalformedChatRequest(ctx context.Context, env *Env) error {
	resp, err := env.Client.PostJSON(ctx, constants.PathChatCompletions, []byte(`{"model": "`+constants.DefaultChatModel+`", "messages": [`))
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusBadRequest); err != nil {
		return err
	}

	obj, err := expectObject(resp)
	if err != nil {
		return err
	}
	if _, ok := obj["error"]; !ok {
		return failf("error body missing field: error")
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatModel picks the first listed model so servers that only serve
// installed models accept the request.
func chatModel(ctx context.Context, env *Env) (string, error) {
	data, err := listModels(ctx, env)
	if err != nil {
		return "", err
	}
	if len(data) > 0 {
		if m, ok := data[0].(map[string]any); ok {
			if id, ok := m["id"].(string); ok && id != "" {
				return id, nil
			}
		}
	}
	return constants.DefaultChatModel, nil
}

func checkChatCompletion(ctx context.Context, env *Env) error {
	model, err := chatModel(ctx, env)
	if err != nil {
		return err
	}
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: "Hello, this is a test message"}},
	})
	if err != nil {
		return err
	}

	resp, err := env.Client.PostJSON(ctx, constants.PathChatCompletions, body)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return failf("%v: %s", err, truncate(string(resp.Body), 200))
	}

	obj, err := expectObject(resp)
	if err != nil {
		return err
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return failf("response has no choices")
	}

	if env.Contract != nil {
		if err := env.Contract.Validate(ctx, constants.MethodPOST, constants.PathChatCompletions, resp); err != nil {
			return failf("%v", err)
		}
	}
	return nil
}
