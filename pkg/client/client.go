package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/telemetry/tracing"
)

// DefaultMaxWait bounds how long a client keeps polling.
const DefaultMaxWait = 60 * time.Second

// ErrGaveUp is returned when no final response arrived within the maximum
// wait.
var ErrGaveUp = errors.New("gave up waiting for a protected response")

// Client sends requests with a correlation id and switches to long polling
// when the server or a gateway in front of it answers before the response is
// ready.
type Client struct {
	httpClient    *http.Client
	initialHeader string
	pollHeader    string
	maxWait       time.Duration
	pollAfter     time.Duration
	newID         func() string
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for the original request and every
// poll. Its Timeout, if any, applies to each request separately.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeaders overrides the correlation header names.
func WithHeaders(initialRequest, poll string) Option {
	return func(c *Client) {
		c.initialHeader = initialRequest
		c.pollHeader = poll
	}
}

// WithMaxWait bounds how long the client polls once polling has started.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) { c.maxWait = d }
}

// WithPollAfter makes the client start polling once the original request has
// been open for d, without waiting for the original to be answered. This is
// needed to receive hand-off responses when no gateway times the original
// request out. Zero disables it.
func WithPollAfter(d time.Duration) Option {
	return func(c *Client) { c.pollAfter = d }
}

// WithIDGenerator replaces the uuid correlation id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		initialHeader: config.DefaultInitialRequestHeader,
		pollHeader:    config.DefaultPollHeader,
		maxWait:       DefaultMaxWait,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "client")
	return c
}

type result struct {
	resp *http.Response
	err  error
}

// Do sends req as a protected original request and returns the final
// response, whether it arrived on the original connection or on a poll.
// Polls reuse the method, URL and headers of req but carry no body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	id := c.newID()

	original := req.Clone(ctx)
	original.Header.Set(c.initialHeader, id)
	tracing.Inject(ctx, original.Header)

	if c.pollAfter <= 0 {
		resp, err := c.httpClient.Do(original)
		if err != nil {
			return nil, err
		}
		if !c.diverted(resp) {
			return resp, nil
		}
		c.logger.DebugContext(ctx, "switching to long poll", "correlation_id", id, "status", resp.StatusCode)
		drain(resp)
		return c.poll(ctx, req, id)
	}

	origCh := make(chan result, 1)
	go func() {
		resp, err := c.httpClient.Do(original)
		origCh <- result{resp, err}
	}()

	timer := time.NewTimer(c.pollAfter)
	defer timer.Stop()

	select {
	case r := <-origCh:
		if r.err != nil {
			return nil, r.err
		}
		if !c.diverted(r.resp) {
			return r.resp, nil
		}
		drain(r.resp)
		return c.poll(ctx, req, id)
	case <-timer.C:
	}

	c.logger.DebugContext(ctx, "original still open, polling", "correlation_id", id, "after", c.pollAfter)

	pollCtx, cancelPoll := context.WithCancel(ctx)
	pollCh := make(chan result, 1)
	go func() {
		resp, err := c.poll(pollCtx, req, id)
		pollCh <- result{resp, err}
	}()

	for {
		select {
		case r := <-origCh:
			origCh = nil
			if r.err == nil && !c.diverted(r.resp) {
				cancelPoll()
				go discard(pollCh)
				return r.resp, nil
			}
			if r.err != nil {
				c.logger.DebugContext(ctx, "original request failed while polling", "correlation_id", id, "error", r.err)
			} else {
				drain(r.resp)
			}

		case r := <-pollCh:
			if origCh != nil {
				// The original is answered once the hand-off finishes.
				go discard(origCh)
			}
			if r.err != nil {
				cancelPoll()
				return nil, r.err
			}
			r.resp.Body = &cancelOnClose{ReadCloser: r.resp.Body, cancel: cancelPoll}
			return r.resp, nil
		}
	}
}

// diverted reports whether resp is an interim answer: a gateway timeout, or
// the server's 204 carrying the poll header.
func (c *Client) diverted(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusGatewayTimeout:
		return true
	case http.StatusNoContent:
		return resp.Header.Get(c.pollHeader) != ""
	default:
		return false
	}
}

// poll repeats poll requests for id until one is answered with something
// other than an interim response, or the maximum wait passes.
func (c *Client) poll(parent context.Context, req *http.Request, id string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(parent, c.maxWait)

	for attempt := 1; ; attempt++ {
		pollReq, err := c.newPollRequest(ctx, req, id)
		if err != nil {
			cancel()
			return nil, err
		}

		c.logger.DebugContext(ctx, "sending poll", "correlation_id", id, "attempt", attempt)

		resp, err := c.httpClient.Do(pollReq)
		if err != nil {
			cancel()
			if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
				return nil, fmt.Errorf("%w after %s (correlation id %s)", ErrGaveUp, c.maxWait, id)
			}
			return nil, err
		}

		if c.diverted(resp) {
			drain(resp)
			if ctx.Err() != nil {
				cancel()
				if parent.Err() != nil {
					return nil, parent.Err()
				}
				return nil, fmt.Errorf("%w after %s (correlation id %s)", ErrGaveUp, c.maxWait, id)
			}
			continue
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
}

func (c *Client) newPollRequest(ctx context.Context, req *http.Request, id string) (*http.Request, error) {
	pollReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	for k, v := range req.Header {
		pollReq.Header[k] = append([]string(nil), v...)
	}
	pollReq.Header.Del("Content-Type")
	pollReq.Header.Del("Content-Length")
	pollReq.Header.Del(c.initialHeader)
	pollReq.Header.Set(c.pollHeader, id)
	tracing.Inject(ctx, pollReq.Header)
	return pollReq, nil
}

// cancelOnClose releases the poll context once the caller is done with the
// body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func discard(ch <-chan result) {
	if r := <-ch; r.err == nil {
		drain(r.resp)
	}
}
