package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UserAgent is sent with every request so the server can exempt or single
// out SDK traffic.
const UserAgent = "gatekeeper-authsdk/1"

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// send builds and executes a request. An empty bearer sends no
// Authorization header.
func (c *SDKClient) send(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
	bearer string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	return resp, nil
}

// doRequest performs an unauthenticated request.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	return c.send(ctx, method, path, body, headers, "")
}

// doAuthRequest checks the required permissions against the token, refreshes
// it when close to expiry, and sends the request with it.
func (s *Session) doAuthRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
	required ...string,
) (*http.Response, error) {
	if err := s.checkPermissions(required...); err != nil {
		return nil, err
	}

	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.send(ctx, method, path, body, headers, token)
}

// doAuthJSON is doAuthRequest with body encoded as JSON. A nil body sends none.
func (s *Session) doAuthJSON(
	ctx context.Context,
	method, path string,
	body any,
	required ...string,
) (*http.Response, error) {
	if body == nil {
		return s.doAuthRequest(ctx, method, path, nil, nil, required...)
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return s.doAuthRequest(ctx, method, path, bytes.NewReader(buf), jsonHeaders, required...)
}

// decodeJSON reads the whole body and decodes it into target, or returns an
// *APIError when the status is not the expected one.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, body)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func checkStatusNoContent(resp *http.Response) error {
	return checkStatus(resp, http.StatusNoContent)
}

// checkStatus discards the body and returns an *APIError unless the status
// is the expected one.
func checkStatus(resp *http.Response, expected int) error {
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expected {
		return parseErrorResponse(resp, body)
	}
	return nil
}
