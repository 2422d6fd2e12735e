package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/gokit/httpclient"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

const validatePath = "/auth/validate"

// RemoteValidator calls the /auth/validate endpoint of another instance.
type RemoteValidator struct {
	client  *httpclient.Client
	service *ServiceAuth
}

// RemoteConfig returns the client settings for a validator at baseURL,
// e.g. http://auth:8431/rockie-api. Connection failures and 5xx answers are
// retried with backoff; token verdicts never are.
func RemoteConfig(baseURL string) httpclient.Config {
	return httpclient.Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Headers: map[string]string{"Accept": "application/json"},
		Retry:   httpclient.DefaultRetryConfig(),
	}
}

func NewRemoteValidator(cfg httpclient.Config) (*RemoteValidator, error) {
	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("remote validator: %w", err)
	}
	return &RemoteValidator{client: client}, nil
}

var _ TokenValidator = (*RemoteValidator)(nil)

// WithServiceAuth signs every call with a fresh service token.
func (v *RemoteValidator) WithServiceAuth(a *ServiceAuth) *RemoteValidator {
	v.service = a
	return v
}

func (v *RemoteValidator) Validate(ctx context.Context, token string) (entity.AuthContext, error) {
	if token == "" {
		return entity.AuthContext{}, common.ErrMissingCredential
	}
	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   validatePath,
		Body:   ValidateRequest{Token: token},
	}
	if v.service != nil {
		st, err := v.service.Mint()
		if err != nil {
			return entity.AuthContext{}, fmt.Errorf("mint service token: %w", err)
		}
		req.Headers = map[string]string{ServiceTokenHeader: st}
	}

	resp, err := v.client.Do(ctx, req)
	if err != nil {
		var herr *httpclient.Error
		if errors.As(err, &herr) && herr.StatusCode > 0 {
			return entity.AuthContext{}, remoteError(herr.StatusCode, herr.Body)
		}
		return entity.AuthContext{}, fmt.Errorf("validate request: %w", err)
	}

	var out ValidateResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return entity.AuthContext{}, fmt.Errorf("decode validate response (status %d): %w", resp.StatusCode, err)
	}
	if out.Principal == nil {
		return entity.AuthContext{}, fmt.Errorf("validator responded %d without a principal", resp.StatusCode)
	}
	ac := entity.AuthContext{TenantID: out.Principal.TenantID, StudentID: out.Principal.StudentID}
	if out.ExpiresAt != nil {
		ac.ExpiresAt = *out.ExpiresAt
	}
	return ac, nil
}

// remoteError turns a failure body back into the sentinel it was rendered from.
func remoteError(status int, raw []byte) error {
	var out ValidateResponse
	_ = json.Unmarshal(raw, &out)
	for _, e := range []error{common.ErrInvalidToken, common.ErrExpiredToken, common.ErrRevokedToken, common.ErrMissingCredential} {
		if out.Body == e.Error() {
			return e
		}
	}
	return fmt.Errorf("validator responded %d: %s", status, out.Body)
}
