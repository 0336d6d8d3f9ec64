package client

//go:generate mockgen -source=./client.go --destination=./client_mock_test.go --package=client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/klothoplatform/inference-stack/pkg/closenicely"
	"github.com/klothoplatform/inference-stack/pkg/infra/stack"
	"go.uber.org/zap"
)

type (
	Doer interface {
		Do(req *http.Request) (*http.Response, error)
	}

	// Client calls the inference routes of a deployed stack.
	Client struct {
		// BaseURL is the stage URL, the `HttpApiUrl` output of the stack.
		BaseURL string
		HTTP    Doer
		Log     *zap.Logger
	}

	Options struct {
		Timeout time.Duration
		Retries int
		Backoff time.Duration
	}

	StatusError struct {
		Model      string
		StatusCode int
		Body       string
	}
)

// DefaultOptions allow for a cold start: the function mounts the file system and loads the model weights
// before it can answer.
var DefaultOptions = Options{
	Timeout: 5 * time.Minute,
	Retries: 2,
	Backoff: 2 * time.Second,
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference %s failed with status %d: %s", e.Model, e.StatusCode, e.Body)
}

func New(baseURL string, opts Options, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	retrier := heimdall.NewRetrier(heimdall.NewConstantBackoff(opts.Backoff, opts.Backoff/4))
	return &Client{
		BaseURL: baseURL,
		HTTP: httpclient.NewClient(
			httpclient.WithHTTPTimeout(opts.Timeout),
			httpclient.WithRetryCount(opts.Retries),
			httpclient.WithRetrier(retrier),
		),
		Log: log.Named("client"),
	}
}

// Endpoint returns the URL of the inference route of `model` for the image at `imageURL`.
func (c *Client) Endpoint(model, imageURL string) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid base url %q: must be absolute", c.BaseURL)
	}
	base.Path += stack.InferencePath(model)
	base.RawQuery = url.Values{"url": {imageURL}}.Encode()
	return base.String(), nil
}

// Infer runs `model` on the image at `imageURL` and returns the JSON the function responded with.
func (c *Client) Infer(ctx context.Context, model, imageURL string) (json.RawMessage, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	endpoint, err := c.Endpoint(model, imageURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("invoking", zap.String("model", model), zap.String("url", endpoint))

	start := time.Now()
	res, err := c.HTTP.Do(req)
	if err != nil {
		if res != nil {
			closenicely.OrDebug(res.Body)
		}
		return nil, fmt.Errorf("could not invoke %s: %w", model, err)
	}
	defer closenicely.OrDebug(res.Body)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response of %s: %w", model, err)
	}
	log.Debug("invoked",
		zap.String("model", model),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	if res.StatusCode > 299 {
		return nil, &StatusError{Model: model, StatusCode: res.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response of %s is not JSON: %q", model, body)
	}
	return json.RawMessage(body), nil
}
