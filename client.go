// File: client.go

// Package jsonwire drives WebDriver remote ends over the Selenium JSON Wire
// Protocol. Commands are dispatched through per-resource nodes that validate
// every invocation against a static command table before anything touches
// the network; the typed Session, Window, Element and Storage facades wrap
// those nodes with the full protocol vocabulary.
package jsonwire

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/selwire/jsonwire/command"
	"github.com/selwire/jsonwire/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultURL is where a locally run Selenium server listens.
const DefaultURL = "http://localhost:4444/wd/hub"

// Client is the entry point to a remote end: it owns the hub node and mints
// sessions. One Client can serve many concurrent sessions.
type Client struct {
	node *Node
	tr   *transport.Client
	log  *zap.Logger
}

// Option customises a Client at construction time.
type Option func(*Client)

// WithLogger routes the client's diagnostics through log.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTransport substitutes a pre-configured transport, for callers that
// need proxies, rate limits or custom TLS settings.
func WithTransport(tr *transport.Client) Option {
	return func(c *Client) { c.tr = tr }
}

// New builds a Client for the remote end at baseURL. An empty baseURL means
// DefaultURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q: missing host", baseURL)
	}

	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.tr == nil {
		cfg := transport.DefaultConfig()
		cfg.Logger = c.log.Named("transport")
		c.tr = transport.NewClient(cfg)
	}
	c.node = NewNode(strings.TrimRight(u.String(), "/"), command.Server(), c.tr, c.log.Named("hub"))
	return c, nil
}

// BaseURL returns the hub URL commands are resolved against.
func (c *Client) BaseURL() string {
	return c.node.BaseURL()
}

// Node exposes the hub's raw dispatch node.
func (c *Client) Node() *Node {
	return c.node
}

// Close releases pooled connections. Sessions created by the client must be
// closed separately; the remote end keeps them alive regardless.
func (c *Client) Close() {
	c.tr.CloseIdleConnections()
}

// Status asks the remote end whether it is up and what it is running on.
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	return decode[*ServerStatus](c.node.Invoke(ctx, "status"))
}

// NewSession asks the remote end for a browser matching the desired
// capabilities. The required set may be nil; remote ends reject the session
// outright when they cannot honour it.
func (c *Client) NewSession(ctx context.Context, desired, required Capabilities) (*Session, error) {
	if desired == nil {
		desired = Capabilities{}
	}
	params := map[string]any{
		"desiredCapabilities":  desired,
		"requiredCapabilities": required,
	}
	env, err := c.node.dispatch(ctx, "", "session", []any{params})
	if err != nil {
		return nil, err
	}
	if env.SessionID == "" {
		return nil, errors.New("remote end returned no session id")
	}
	var granted Capabilities
	if err := env.Unmarshal(&granted); err != nil {
		return nil, fmt.Errorf("decode granted capabilities: %w", err)
	}
	c.log.Info("session created", zap.String("session_id", env.SessionID))
	return c.session(env.SessionID, granted), nil
}

// Attach wraps an already-running session by id without any network traffic.
// The capabilities are unknown until queried.
func (c *Client) Attach(id string) *Session {
	return c.session(id, nil)
}

// SessionEntry is one row of the remote end's session listing.
type SessionEntry struct {
	ID           string       `json:"id"`
	Capabilities Capabilities `json:"capabilities"`
}

// Sessions lists the sessions currently alive on the remote end.
func (c *Client) Sessions(ctx context.Context) ([]SessionEntry, error) {
	return decode[[]SessionEntry](c.node.Invoke(ctx, "sessions"))
}

// SessionCapabilities fetches the capabilities the remote end granted to an
// existing session.
func (c *Client) SessionCapabilities(ctx context.Context, id string) (Capabilities, error) {
	return decode[Capabilities](c.node.InvokeVerb(ctx, command.Get, "session", id))
}

func (c *Client) session(id string, caps Capabilities) *Session {
	return &Session{
		ID:           id,
		Capabilities: caps,
		hub:          c.node,
		node:         c.node.Child(command.Session(), "session", id),
		log:          c.log.Named("session").With(zap.String("session_id", id)),
	}
}

// decode funnels an Invoke result into a typed value. The error from the
// invocation passes through untouched so callers keep the dispatcher's and
// the wire layer's error types.
func decode[T any](raw stdjson.RawMessage, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode command result: %w", err)
	}
	return v, nil
}
