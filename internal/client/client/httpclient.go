package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/netx"
)

const (
	maxImageBytes    = 10 << 20
	maxResponseBytes = 4 << 20
)

type noAuth struct{}

func (noAuth) Attach(*http.Request) {}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithRetryDelay sets the pause before the single retry.
func WithRetryDelay(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// HTTPClient talks to the catalog server over HTTP/JSON.
type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	retryDelay time.Duration
	http       *http.Client
	auth       Authenticator
}

// NewHTTPClient builds a client for the server at baseURL. Every request is
// bounded by timeout and decorated by auth (which may be nil).
func NewHTTPClient(baseURL string, timeout time.Duration, auth Authenticator, opts ...Option) *HTTPClient {
	if auth == nil {
		auth = noAuth{}
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		retryDelay: 250 * time.Millisecond,
		http:       &http.Client{},
		auth:       auth,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type messageBody struct {
	Message string `json:"message"`
}

// retryPolicy says which network failures earn the single extra attempt.
type retryPolicy int

const (
	// noRetry: the first failure is returned as is.
	noRetry retryPolicy = iota
	// retryUnsent: only failures raised before the request left the
	// machine (dial errors, refused connections). Used for calls whose
	// repetition the server would answer differently.
	retryUnsent
	// retryTransient: also timeouts and connections dropped mid-exchange.
	// Only for calls that are safe to repeat.
	retryTransient
)

// isUnsent reports failures that happened before any byte of the request
// could reach the server.
func isUnsent(err error) bool {
	var op *net.OpError
	if errors.As(err, &op) && op.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// isTransient reports network failures worth one more attempt for
// repeatable calls: unsent requests, timeouts and dropped connections.
func isTransient(err error) bool {
	if isUnsent(err) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

func (p retryPolicy) allows(err error) bool {
	switch p {
	case retryUnsent:
		return isUnsent(err)
	case retryTransient:
		return isTransient(err)
	default:
		return false
	}
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	var mb messageBody
	_ = json.Unmarshal(data, &mb)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if mb.Message != "" && mb.Message != "unauthorized" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, mb.Message)
		}
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		if mb.Message == "" {
			return ErrBadRequest
		}
		return fmt.Errorf("%w: %s", ErrBadRequest, mb.Message)
	default:
		if mb.Message == "" {
			return fmt.Errorf("%w: %s", ErrServer, resp.Status)
		}
		return fmt.Errorf("%w: %s", ErrServer, mb.Message)
	}
}

// do sends one request and decodes a 2xx JSON answer into out (if non-nil).
// A network failure allowed by policy is retried once.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, policy retryPolicy) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	attempt := func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(rctx, method, c.baseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.auth.Attach(req)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			uerr := fmt.Errorf("%w: %v", ErrUnavailable, err)
			if policy.allows(err) {
				return retry.RetryableError(uerr)
			}
			return uerr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError(resp)
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
			return fmt.Errorf("%w: malformed response: %v", ErrServer, err)
		}
		return nil
	}

	if policy == noRetry {
		return attempt(ctx)
	}
	return retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(c.retryDelay)), attempt)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	var out models.LoginResult
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out, retryTransient); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register is retried only when the first attempt never reached the server;
// a repeat of a registration that went through would report the username
// as taken.
func (c *HTTPClient) Register(ctx context.Context, username, password, email string) error {
	in := map[string]string{"username": username, "password": password, "email": email}
	return c.do(ctx, http.MethodPost, "/auth/register", in, nil, retryUnsent)
}

func (c *HTTPClient) Verify(ctx context.Context) (*models.Identity, error) {
	var out models.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &out, retryTransient); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, retryTransient)
}

func (c *HTTPClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out, retryTransient); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodGet, productPath(id), nil, &out, retryTransient); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct is never retried: a lost response would otherwise create
// the product twice.
func (c *HTTPClient) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPost, "/products", p, &out, noRetry); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPut, productPath(p.ID), p, &out, retryTransient); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct follows Register: a repeated delete would answer 404.
func (c *HTTPClient) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, productPath(id), nil, nil, retryUnsent)
}

// UploadImage asks the server for a presigned URL, PUTs the file there and
// then confirms the key so the product points at it. A failed upload leaves
// the product's current image in place. The content type is sniffed from
// the file itself.
func (c *HTTPClient) UploadImage(ctx context.Context, id int64, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxImageBytes {
		return fmt.Errorf("%w: image larger than %d bytes", ErrBadRequest, maxImageBytes)
	}
	contentType := http.DetectContentType(data)

	var up models.ImageUpload
	in := map[string]string{"contentType": contentType}
	if err := c.do(ctx, http.MethodPost, productPath(id)+"/image-upload-url", in, &up, noRetry); err != nil {
		return err
	}

	uctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := netx.UploadPresigned(uctx, c.http, up.URL, up.ContentType, data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	confirm := map[string]string{"key": up.Key}
	return c.do(ctx, http.MethodPut, productPath(id)+"/image", confirm, nil, retryTransient)
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}
