// Package api is the REST client for the remote platform API. The API is an
// external collaborator: this package only encodes the request/response
// contracts the web client observes, it never invents server behavior.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quizbd/quizbd-go/internal/errors"
)

// TokenSource supplies the bearer credential of the active session.
// The session store implements it; the client only ever reads.
type TokenSource interface {
	Token() (string, bool)
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		base:   c.BaseURL,
		http:   hc,
		tokens: c.Tokens,
	}
}

// envelope is the {success, data, message} wrapper some endpoints use.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends one JSON request. The bearer token is attached automatically
// whenever a session is active, and every request carries a request ID.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// doMultipart sends one multipart/form-data request, used by the profile
// endpoints that upload an avatar image.
func (c *Client) doMultipart(ctx context.Context, method, path string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("api: write form field %s: %w", k, err)
		}
	}

	if file != nil {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			return fmt.Errorf("api: create form file: %w", err)
		}
		if _, err := io.Copy(fw, file); err != nil {
			return fmt.Errorf("api: copy form file: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("api: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("X-Request-ID", uuid.New().String())
	if tok, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable, errors.WithCause(err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		opts := []errors.Option{}
		var env envelope
		if err := json.Unmarshal(b, &env); err == nil && env.Message != "" {
			opts = append(opts, errors.WithMessagef("%s", env.Message))
		}
		return errors.FromStatusCode(resp.StatusCode, opts...)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("api: decode %s %s response: %w", req.Method, req.URL.Path, err)
	}

	return nil
}

// unwrapData decodes the data field of an enveloped response.
func unwrapData(env envelope, out any) error {
	if len(env.Data) == 0 {
		return errors.New(errors.CodeInternal, errors.WithMessagef("response data missing"))
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("api: decode response data: %w", err)
	}

	return nil
}
