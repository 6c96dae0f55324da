package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// API is the network transport used by the publisher, the auth service and
// the sync transport. Paths are relative to the API host; an empty token
// sends no Authorization header. out may be nil to discard the body.
type API interface {
	Get(ctx context.Context, path, token string, out any) error
	Post(ctx context.Context, path string, body any, token string, out any) error
	Patch(ctx context.Context, path string, body any, token string, out any) error
	Delete(ctx context.Context, path, token string) error
	Ping(ctx context.Context) error
}

// HTTPClient implements API over net/http with JSON bodies.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient returns a client rooted at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HTTP exposes the underlying client for raw transfers such as presigned
// blob URLs.
func (c *HTTPClient) HTTP() *http.Client {
	return c.httpClient
}

func (c *HTTPClient) Get(ctx context.Context, path, token string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, token, out)
}

func (c *HTTPClient) Post(ctx context.Context, path string, body any, token string, out any) error {
	return c.call(ctx, http.MethodPost, path, body, token, out)
}

func (c *HTTPClient) Patch(ctx context.Context, path string, body any, token string, out any) error {
	return c.call(ctx, http.MethodPatch, path, body, token, out)
}

func (c *HTTPClient) Delete(ctx context.Context, path, token string) error {
	return c.call(ctx, http.MethodDelete, path, nil, token, nil)
}

// Ping checks the health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, "", nil)
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body any, token string, out any) error {
	resp, err := c.doRequest(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	return resp, nil
}

func mapTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// decodeResponse maps the status code and decodes the JSON body into target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway:
		return ErrUnavailable
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
