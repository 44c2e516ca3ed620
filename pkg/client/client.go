// Package client issues authenticated requests against the Data Lake Gen2
// REST surface. It owns URL construction and header assembly so listing,
// metadata, read, and write paths share one auth and versioning funnel:
// every non-success status becomes a typed error, and nothing is retried
// unless the caller opts in with a retry configuration.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/datalake-go/adlfs/pkg/metrics"
	"github.com/datalake-go/adlfs/pkg/protocol"
	"github.com/datalake-go/adlfs/pkg/retry"
)

// TokenProvider supplies the current bearer token. It is read on every
// request, so a refresh elsewhere is picked up immediately.
type TokenProvider interface {
	Token() string
}

// ByteRange selects a byte subrange of an object. End is one past the last
// byte wanted; a nil End requests everything from Start onward. The wire
// header is inclusive, so "bytes=start-(end-1)".
type ByteRange struct {
	Start uint64
	End   *uint64
}

func (r ByteRange) String() string {
	if r.End != nil {
		return fmt.Sprintf("bytes=%d-%d", r.Start, *r.End-1)
	}
	return fmt.Sprintf("bytes=%d-", r.Start)
}

// Headers are the optional per-request headers. Authorization and
// x-ms-version are always injected and cannot be overridden.
type Headers struct {
	ContentType string
	MediaType   string
	Range       *ByteRange
}

// Response is a completed successful request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Config holds client configuration.
type Config struct {
	// Account is the storage account name; DNSSuffix completes the host
	// (default ".dfs.core.windows.net").
	Account    string
	DNSSuffix  string
	Filesystem string

	// Endpoint overrides the account URL entirely, for storage emulators
	// and tests.
	Endpoint string

	Tokens     TokenProvider
	HTTPClient *http.Client

	// Retry enables retries for transport failures and 5xx responses.
	// Nil means every failure surfaces immediately.
	Retry *retry.Config

	Logger *zap.Logger
}

// Client is the remote store client.
type Client struct {
	account    string
	dnsSuffix  string
	filesystem string
	endpoint   string
	tokens     TokenProvider
	http       *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.DNSSuffix == "" {
		cfg.DNSSuffix = protocol.DefaultDNSSuffix
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		account:    cfg.Account,
		dnsSuffix:  cfg.DNSSuffix,
		filesystem: cfg.Filesystem,
		endpoint:   cfg.Endpoint,
		tokens:     cfg.Tokens,
		http:       cfg.HTTPClient,
		retryCfg:   cfg.Retry,
		logger:     cfg.Logger,
	}
}

// URL builds the request URL for a path within the filesystem. An empty
// path addresses the filesystem root.
func (c *Client) URL(path string) string {
	base := fmt.Sprintf("https://%s%s/%s", c.account, c.dnsSuffix, c.filesystem)
	if c.endpoint != "" {
		base = c.endpoint + "/" + c.filesystem
	}
	if path == "" {
		return base
	}
	return base + "/" + path
}

// Get issues a GET against path (empty for the filesystem root).
func (c *Client) Get(ctx context.Context, path string, query url.Values, hdr Headers) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, query, hdr, nil)
}

// Head issues a HEAD against path.
func (c *Client) Head(ctx context.Context, path string, query url.Values, hdr Headers) (*Response, error) {
	return c.do(ctx, http.MethodHead, path, query, hdr, nil)
}

// Put issues a PUT against path. A nil body still sends Content-Length: 0.
func (c *Client) Put(ctx context.Context, path string, query url.Values, hdr Headers, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, query, hdr, body)
}

// Patch issues a PATCH against path.
func (c *Client) Patch(ctx context.Context, path string, query url.Values, hdr Headers, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, query, hdr, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, hdr Headers, body []byte) (*Response, error) {
	if c.retryCfg == nil {
		return c.doOnce(ctx, method, path, query, hdr, body)
	}
	return retry.DoWithResult(ctx, *c.retryCfg, func() (*Response, error) {
		resp, err := c.doOnce(ctx, method, path, query, hdr, body)
		if err != nil && shouldRetry(err) {
			return nil, retry.Retryable(err)
		}
		return resp, err
	})
}

// shouldRetry allows retries for transport-level failures and 5xx only.
// NotFound, protocol violations, and other 4xx are never retried.
func shouldRetry(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.Status == 0 || te.Status >= 500
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, hdr Headers, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	// Methods that carry a body must send Content-Length even when empty.
	req.ContentLength = int64(len(body))

	req.Header.Set(protocol.HeaderVersion, protocol.APIVersion)
	req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	if hdr.ContentType != "" {
		req.Header.Set("Content-Type", hdr.ContentType)
	}
	if hdr.MediaType != "" {
		req.Header.Set(protocol.HeaderMediaType, hdr.MediaType)
	}
	if hdr.Range != nil {
		req.Header.Set("Range", hdr.Range.String())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordRequest(method, 0, time.Since(start))
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordRequest(method, resp.StatusCode, time.Since(start))
		return nil, &TransportError{Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	duration := time.Since(start)
	metrics.RecordRequest(method, resp.StatusCode, duration)
	metrics.RecordUpload(int64(len(body)))
	metrics.RecordDownload(int64(len(data)))
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("response_bytes", len(data)),
		zap.Duration("duration", duration))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusPartialContent:
		return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
	}
	return nil, classify(method, path, resp.StatusCode, resp.Header, data)
}
