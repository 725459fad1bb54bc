// Package chatbees talks to the remote document question-answering service:
// audio transcription, document registration and the ask/outline/summary
// queries made against registered documents.
package chatbees

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	namespace = "public"

	headerAPIKey = "api-key"
	headerOrgURL = "x-org-url"

	maxErrorBody = 4096
)

// ErrUnreachable wraps transport failures: the request never got an HTTP
// response back.
var ErrUnreachable = errors.New("chatbees: service unreachable")

// StatusError is a non-2xx reply from the service.
type StatusError struct {
	Endpoint string
	Status   int
	Reason   string
	Body     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: status: %d, error: %s", e.Endpoint, e.Status, e.Reason)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether the status is worth retrying for idempotent queries.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Config holds everything a Client needs. Nothing is read from the
// environment here.
type Config struct {
	ServiceBaseURL        string
	AccountID             string
	APIKey                string
	LocalDevRoutingHeader bool

	Timeout time.Duration
	// QueryRetryMaxElapsed bounds retries of ask/outline/summary. Transcription
	// and registration are never retried.
	QueryRetryMaxElapsed time.Duration
	QueryRetryInitial    time.Duration

	HTTPClient *http.Client
	Log        *logrus.Entry
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Entry
}

func New(cfg Config) (*Client, error) {
	if cfg.ServiceBaseURL == "" {
		return nil, errors.New("chatbees: service base url required")
	}
	if cfg.AccountID == "" {
		return nil, errors.New("chatbees: account id not found")
	}
	cfg.ServiceBaseURL = strings.TrimRight(cfg.ServiceBaseURL, "/")
	if cfg.QueryRetryMaxElapsed == 0 {
		cfg.QueryRetryMaxElapsed = 12 * time.Second
	}
	if cfg.QueryRetryInitial == 0 {
		cfg.QueryRetryInitial = backoff.DefaultInitialInterval
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{cfg: cfg, http: hc, log: log.WithField("module", "chatbees")}, nil
}

func (c *Client) AccountID() string { return c.cfg.AccountID }

func (c *Client) url(suffix string) string {
	return c.cfg.ServiceBaseURL + suffix
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(headerAPIKey, c.cfg.APIKey)
	if c.cfg.LocalDevRoutingHeader {
		req.Header.Set(headerOrgURL, c.cfg.AccountID)
	}
}

// postMultipart sends a single multipart request. It is not retried.
func (c *Client) postMultipart(ctx context.Context, suffix string, build func(*multipart.Writer) error, target any) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	if err := build(w); err != nil {
		return fmt.Errorf("build %s request: %w", suffix, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build %s request: %w", suffix, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(suffix), &b)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, suffix, target)
}

// postJSON sends a JSON query, retrying transport failures and 5xx replies
// with exponential backoff.
func (c *Client) postJSON(ctx context.Context, suffix string, body any, target any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", suffix, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.QueryRetryInitial
	bo.MaxElapsedTime = c.cfg.QueryRetryMaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(suffix), bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		err = c.do(req, suffix, target)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.log.WithFields(logrus.Fields{"endpoint": suffix, "attempt": attempt}).WithError(err).Warn("query failed, retrying")
		return err
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (c *Client) do(req *http.Request, suffix string, target any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, suffix, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrUnreachable, suffix, err)
	}
	c.log.WithFields(logrus.Fields{
		"endpoint":    suffix,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("chatbees call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Endpoint: suffix,
			Status:   resp.StatusCode,
			Reason:   reason(resp),
			Body:     truncate(strings.TrimSpace(string(body)), maxErrorBody),
		}
	}
	if target == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%s: empty body", suffix)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: json decode error: %v body=%s", suffix, err, truncate(string(body), maxErrorBody))
	}
	return nil
}

func reason(resp *http.Response) string {
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func requestJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
