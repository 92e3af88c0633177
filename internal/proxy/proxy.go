// File: internal/proxy/proxy.go

// Package proxy implements a logging forward proxy for wire protocol
// traffic. Pointing any client through it prints a summary of each command
// and response envelope that passes by, which makes driver conversations
// easy to watch without touching the client.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elazarl/goproxy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/selwire/jsonwire/wire"
)

const (
	// snoopLimit caps how much of a body lands in a log field. Screenshot
	// responses run to megabytes of base64.
	snoopLimit = 1024

	shutdownTimeout = 15 * time.Second
)

// Wiretap is a forward HTTP proxy that decodes protocol envelopes as they
// pass through and logs each exchange. Traffic it cannot parse is forwarded
// untouched, so it is safe in front of arbitrary clients. HTTPS is tunneled,
// not intercepted.
type Wiretap struct {
	proxy   *goproxy.ProxyHttpServer
	log     *zap.Logger
	verbose bool

	mu     sync.Mutex
	server *http.Server
	addr   string

	exchanges atomic.Int64
	failures  atomic.Int64
}

// New builds a Wiretap. With verbose set, per-exchange log lines are raised
// to info level and include body snippets.
func New(log *zap.Logger, verbose bool) *Wiretap {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("wiretap")

	w := &Wiretap{
		proxy:   goproxy.NewProxyHttpServer(),
		log:     log,
		verbose: verbose,
	}

	// Compressed upstream bodies would defeat the envelope snooping below.
	w.proxy.Tr = &http.Transport{
		DisableCompression: true,
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
	}
	w.proxy.Verbose = verbose
	w.proxy.Logger = zap.NewStdLog(log.Named("goproxy"))

	w.proxy.OnRequest().HandleConnect(goproxy.FuncHttpsHandler(w.handleConnect))
	w.proxy.OnRequest().DoFunc(w.handleRequest)
	w.proxy.OnResponse().DoFunc(w.handleResponse)
	return w
}

// Handler exposes the proxy handler so tests and embedders can serve it
// without going through Start.
func (w *Wiretap) Handler() http.Handler { return w.proxy }

// Addr reports the bound listen address while the wiretap is running, and
// "" otherwise. Useful when Start was given port 0.
func (w *Wiretap) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addr
}

// Stats reports how many exchanges passed through and how many of them
// carried a failure status.
func (w *Wiretap) Stats() (exchanges, failures int64) {
	return w.exchanges.Load(), w.failures.Load()
}

// Start runs the proxy on addr and blocks until ctx is cancelled or the
// server fails.
func (w *Wiretap) Start(ctx context.Context, addr string) error {
	w.mu.Lock()
	if w.server != nil {
		w.mu.Unlock()
		return errors.New("wiretap already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("wiretap listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      w.proxy,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     zap.NewStdLog(w.log.Named("http_server")),
	}
	w.server = server
	w.addr = ln.Addr().String()
	w.mu.Unlock()

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		w.log.Info("shutdown signal received, stopping wiretap")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	w.log.Info("wiretap proxy listening", zap.String("address", ln.Addr().String()))
	err = server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		err = <-shutdownErr
	}

	w.mu.Lock()
	if w.server == server {
		w.server = nil
		w.addr = ""
	}
	w.mu.Unlock()

	if err != nil {
		return fmt.Errorf("wiretap server failed: %w", err)
	}
	w.log.Info("wiretap stopped")
	return nil
}

func (w *Wiretap) handleConnect(host string, _ *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
	w.log.Debug("tunneling https connection", zap.String("host", host))
	return goproxy.OkConnect, host
}

// handleRequest records the outgoing command. POST bodies are read and
// restored so they can appear in verbose output.
func (w *Wiretap) handleRequest(r *http.Request, _ *goproxy.ProxyCtx) (*http.Request, *http.Response) {
	w.exchanges.Add(1)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("url", r.URL.String()),
	}
	session, command := splitCommand(r.URL.Path)
	if command != "" {
		fields = append(fields, zap.String("command", command))
	}
	if session != "" {
		fields = append(fields, zap.String("session", session))
	}

	if r.Body != nil && r.Method == http.MethodPost {
		payload, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			w.log.Warn("failed to read request body", append(fields, zap.Error(err))...)
			return r, goproxy.NewResponse(r, goproxy.ContentTypeText, http.StatusBadGateway,
				"wiretap: could not read request body")
		}
		r.Body = io.NopCloser(bytes.NewReader(payload))
		if w.verbose {
			fields = append(fields, zap.String("body", snippet(payload)))
		}
	}

	w.logTraffic("proxying command", fields)
	return r, nil
}

// handleResponse decodes the envelope best-effort and restores the body for
// the client. A nil response means the upstream never answered.
func (w *Wiretap) handleResponse(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
	if resp == nil {
		w.failures.Add(1)
		detail := "unknown error"
		if ctx.Error != nil {
			detail = ctx.Error.Error()
		}
		w.log.Warn("upstream connection failed",
			zap.String("url", requestURL(ctx)),
			zap.String("error", detail),
		)

		if ctx.Req == nil {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				ProtoMajor: 1,
				ProtoMinor: 1,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader("wiretap: upstream connection failed: " + detail)),
			}
		}

		status := http.StatusBadGateway
		var netErr net.Error
		if errors.As(ctx.Error, &netErr) && netErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		return goproxy.NewResponse(ctx.Req, goproxy.ContentTypeText, status,
			"wiretap: upstream connection failed: "+detail)
	}

	payload, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		// The body is gone; the client sees the truncation either way.
		w.log.Warn("failed to read response body", zap.String("url", requestURL(ctx)), zap.Error(err))
		resp.Body = io.NopCloser(bytes.NewReader(nil))
		return resp
	}
	resp.Body = io.NopCloser(bytes.NewReader(payload))

	fields := []zap.Field{
		zap.String("url", requestURL(ctx)),
		zap.Int("http_status", resp.StatusCode),
	}
	if w.verbose {
		fields = append(fields, zap.String("body", snippet(payload)))
	}

	env, err := wire.Decode(resp.StatusCode, payload)
	var se *wire.StatusError
	switch {
	case err == nil:
		if env.SessionID != "" {
			fields = append(fields, zap.String("session", env.SessionID))
		}
		w.logTraffic("command succeeded", fields)
	case errors.As(err, &se):
		w.failures.Add(1)
		fields = append(fields,
			zap.Int("status", int(se.Code)),
			zap.String("condition", se.Code.String()),
		)
		if se.Message != "" {
			fields = append(fields, zap.String("message", se.Message))
		}
		w.log.Warn("command failed", fields...)
	default:
		// Not an envelope. The proxy also sees favicon fetches and the like.
		w.log.Debug("response without protocol envelope", fields...)
	}

	return resp
}

// logTraffic writes routine traffic lines at debug, or info when verbose.
func (w *Wiretap) logTraffic(msg string, fields []zap.Field) {
	level := zapcore.DebugLevel
	if w.verbose {
		level = zapcore.InfoLevel
	}
	if ce := w.log.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// splitCommand extracts the session id and trailing command path from a
// request path like /wd/hub/session/<id>/element/<el>/click. A path that
// ends at the session id is the session command itself.
func splitCommand(path string) (session, command string) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segs {
		if seg == "session" && i+1 < len(segs) {
			session = segs[i+1]
			command = strings.Join(segs[i+2:], "/")
			if command == "" {
				command = "session"
			}
			return session, command
		}
	}
	if n := len(segs); n > 0 {
		return "", segs[n-1]
	}
	return "", ""
}

func requestURL(ctx *goproxy.ProxyCtx) string {
	if ctx != nil && ctx.Req != nil && ctx.Req.URL != nil {
		return ctx.Req.URL.String()
	}
	return "unknown"
}

// snippet renders a body for a log field, truncated so screenshot payloads
// do not flood the output.
func snippet(b []byte) string {
	if len(b) > snoopLimit {
		return string(b[:snoopLimit]) + "..."
	}
	return string(b)
}
