// File: transport/transport.go

// Package transport issues JSON Wire Protocol requests over HTTP. It owns
// connection pooling, timeouts, protocol headers and rate limiting, and
// reports every failure to reach or read the remote end as a *RequestError.
// Interpreting response bodies is left to the wire package.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/selwire/jsonwire/command"
)

const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultKeepAliveInterval     = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second

	// Commands like script execution or page loads can legitimately take a
	// long time, so the overall budget is generous.
	DefaultRequestTimeout = 60 * time.Second

	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	defaultUserAgent = "jsonwire-go"

	contentType = "application/json;charset=UTF-8"
	accept      = "application/json"
)

var errUnsupportedVerb = errors.New("unsupported verb")

// Config holds the tuning knobs for the HTTP layer. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// Timeout settings.
	RequestTimeout        time.Duration
	DialTimeout           time.Duration
	KeepAliveInterval     time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// Connection pool settings.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Protocol settings.
	ForceHTTP2 bool
	UserAgent  string

	// Security settings.
	IgnoreTLSErrors bool
	TLSConfig       *tls.Config

	// Proxy settings. When set, all traffic is routed through this proxy,
	// which is how the wiretap in internal/proxy observes a session.
	ProxyURL *url.URL

	// RequestsPerSecond caps the outgoing command rate when positive. Useful
	// against remote ends that throttle or meter sessions.
	RequestsPerSecond float64

	Logger *zap.Logger
}

// DefaultConfig returns a configuration suitable for driving a local or
// nearby WebDriver remote end.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout:        DefaultRequestTimeout,
		DialTimeout:           DefaultDialTimeout,
		KeepAliveInterval:     DefaultKeepAliveInterval,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		UserAgent:             defaultUserAgent,
	}
}

// Request is one protocol command ready for the network. Body is the JSON
// payload for POST and nil for GET and DELETE.
type Request struct {
	Verb command.Verb
	URL  string
	Body []byte
}

// Response is the raw HTTP answer. Decoding the envelope is the wire
// package's job.
type Response struct {
	StatusCode int
	Body       []byte
}

// RequestError is a command that never produced a usable response: the
// request could not be built, sent, or its body read.
type RequestError struct {
	Verb command.Verb
	URL  string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Verb, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client executes protocol requests. It is safe for concurrent use by
// multiple goroutines, so one Client can back any number of sessions.
type Client struct {
	hc        *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       *zap.Logger
}

// NewClient builds a Client from cfg. A nil cfg gets the defaults.
//
// Redirects are followed automatically. That matters for session creation,
// where remote ends commonly answer POST /session with a redirect to the new
// session's URL.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		hc: &http.Client{
			Transport: newHTTPTransport(cfg, log),
			Timeout:   cfg.RequestTimeout,
		},
		userAgent: cfg.UserAgent,
		log:       log,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Do sends one request and reads the full response body. Transport-level
// failures come back as *RequestError; HTTP error statuses do not, since the
// protocol routinely carries envelopes on 4xx and 5xx responses.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if !req.Verb.Valid() {
		return nil, &RequestError{Verb: req.Verb, URL: req.URL, Err: errUnsupportedVerb}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &RequestError{Verb: req.Verb, URL: req.URL, Err: err}
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Verb), req.URL, body)
	if err != nil {
		return nil, &RequestError{Verb: req.Verb, URL: req.URL, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)

	id := uuid.NewString()
	start := time.Now()
	c.log.Debug("dispatching command request",
		zap.String("request_id", id),
		zap.String("verb", string(req.Verb)),
		zap.String("url", req.URL),
		zap.Int("body_bytes", len(req.Body)),
	)

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Verb: req.Verb, URL: req.URL, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &RequestError{Verb: req.Verb, URL: req.URL, Err: err}
	}

	c.log.Debug("command response received",
		zap.String("request_id", id),
		zap.Int("http_status", httpResp.StatusCode),
		zap.Int("body_bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Response{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}

// CloseIdleConnections drains the connection pool. Call it when the Client
// will not be used again.
func (c *Client) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}

func newHTTPTransport(cfg *Config, log *zap.Logger) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAliveInterval,
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig != nil {
		tlsConfig = tlsConfig.Clone()
	} else {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ClientSessionCache: tls.NewLRUClientSessionCache(64),
		}
	}
	tlsConfig.InsecureSkipVerify = cfg.IgnoreTLSErrors

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ForceAttemptHTTP2:     cfg.ForceHTTP2,
	}
	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}
	if cfg.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			log.Warn("failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	}
	return transport
}
