package spapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxResponseSize bounds how much of an upstream body we keep in memory.
const maxResponseSize = 4 << 20

// Client is the low-level signed transport. Every request is signed with
// the session's delegated keys and carries the session's access token; the
// caller interprets the response body.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	signer     *Signer
	logger     *zap.Logger
}

// NewClient creates a signed transport against the configured endpoint.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		signer: &Signer{Region: cfg.Region, Service: "execute-api"},
		logger: logger,
	}
}

// HTTPClient exposes the underlying client so the credential broker shares
// the same timeout policy.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Response is the raw outcome of a signed call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// SignedCall issues one signed request. path is the endpoint-relative
// resource path, query the already-built query values, payload the JSON
// body (nil for GET).
func (c *Client) SignedCall(ctx context.Context, sess *Session, method, path string, query url.Values, payload []byte) (*Response, error) {
	tracer := otel.Tracer("spapi")
	ctx, span := tracer.Start(ctx, "spapi."+method+" "+path)
	defer span.End()

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("spapi: invalid endpoint: %w", err)
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("spapi: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-amz-access-token", sess.AccessToken.Value)
	c.signer.Sign(req, sess.Credentials, payload, time.Now())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("spapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("spapi: failed to read response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("spapi call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}
