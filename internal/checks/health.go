package checks

import (
	"context"
	"net/http"
	"strings"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

func checkHealthEndpoint(ctx context.Context, env *Env) error {
	resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	obj, err := expectObject(resp)
	if err != nil {
		return err
	}
	if missing := missingFields(obj, "status", "timestamp", "service"); len(missing) > 0 {
		return failf("missing field(s): %s", strings.Join(missing, ", "))
	}
	if obj["status"] != constants.HealthStatusOK {
		return failf("status is %v, want %q", obj["status"], constants.HealthStatusOK)
	}
	return nil
}

func checkNotFound(ctx context.Context, env *Env) error {
	resp, err := env.Client.GetFresh(ctx, env.Config.NotFoundPath)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusNotFound)
}

func checkCORSHeaders(ctx context.Context, env *Env) error {
	resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
	if err != nil {
		return err
	}

	var missing []string
	for _, h := range []string{constants.HeaderAccessControlAllowOrigin, constants.HeaderAccessControlAllowMethods} {
		if len(resp.Header.Values(h)) == 0 {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return failf("missing header(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkOptionsMethod(ctx context.Context, env *Env) error {
	resp, err := env.Client.Options(ctx, constants.PathHealth)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK)
}

func checkContentType(ctx context.Context, env *Env) error {
	resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
	if err != nil {
		return err
	}
	if !resp.IsJSON() {
		return failf("content-type is %q, want %s", resp.ContentType(), constants.ContentTypeJSON)
	}
	return nil
}
