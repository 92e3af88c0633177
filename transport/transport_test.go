// transport/transport_test.go
package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/selwire/jsonwire/command"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = zaptest.NewLogger(t)
	c := NewClient(cfg)
	t.Cleanup(c.CloseIdleConnections)
	return c
}

func TestDoSetsProtocolHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"status":0}`))
	}))
	defer ts.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), Request{Verb: command.Get, URL: ts.URL + "/status"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "application/json;charset=UTF-8", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, defaultUserAgent, got.Get("User-Agent"))
}

func TestDoSendsPostBody(t *testing.T) {
	var gotBody []byte
	var gotMethod string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"status":0}`))
	}))
	defer ts.Close()

	c := newTestClient(t)
	payload := []byte(`{"url":"http://example.com"}`)
	_, err := c.Do(context.Background(), Request{Verb: command.Post, URL: ts.URL + "/url", Body: payload})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, payload, gotBody)
}

func TestDoOmitsBodyForGetAndDelete(t *testing.T) {
	var lengths []int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lengths = append(lengths, r.ContentLength)
		w.Write([]byte(`{"status":0}`))
	}))
	defer ts.Close()

	c := newTestClient(t)
	for _, verb := range []command.Verb{command.Get, command.Delete} {
		_, err := c.Do(context.Background(), Request{Verb: verb, URL: ts.URL + "/cookie"})
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{0, 0}, lengths)
}

func TestDoPassesThroughHTTPErrors(t *testing.T) {
	// 4xx and 5xx responses still carry protocol envelopes, so they must not
	// surface as transport errors.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":13,"value":{"message":"boom"}}`))
	}))
	defer ts.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), Request{Verb: command.Get, URL: ts.URL + "/title"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "boom")
}

func TestDoFollowsSessionRedirect(t *testing.T) {
	// Remote ends often answer POST /session with a redirect to the session
	// URL; the client has to follow it and hand back the final body.
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		http.Redirect(w, r, "/session/abc123", http.StatusSeeOther)
	})
	mux.HandleFunc("/session/abc123", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{"sessionId":"abc123","status":0,"value":{}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), Request{Verb: command.Post, URL: ts.URL + "/session", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "abc123")
}

func TestDoConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := newTestClient(t)
	_, err := c.Do(context.Background(), Request{Verb: command.Get, URL: url + "/status"})

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, command.Get, re.Verb)
	assert.Contains(t, re.URL, url)
}

func TestDoRejectsUnsupportedVerb(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Do(context.Background(), Request{Verb: command.Verb("PUT"), URL: "http://127.0.0.1:1/x"})

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, errUnsupportedVerb)
}

func TestDoRateLimit(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"status":0}`))
	}))
	defer ts.Close()

	cfg := DefaultConfig()
	cfg.Logger = zaptest.NewLogger(t)
	cfg.RequestsPerSecond = 1
	c := NewClient(cfg)
	defer c.CloseIdleConnections()

	// The first request consumes the only token; the second cannot be served
	// within the deadline and must fail without reaching the server.
	_, err := c.Do(context.Background(), Request{Verb: command.Get, URL: ts.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, Request{Verb: command.Get, URL: ts.URL})

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(1), calls.Load())
}

func TestClientLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0}`))
	}))

	cfg := DefaultConfig()
	cfg.Logger = zaptest.NewLogger(t)
	c := NewClient(cfg)
	_, err := c.Do(context.Background(), Request{Verb: command.Get, URL: ts.URL + "/status"})
	require.NoError(t, err)

	c.CloseIdleConnections()
	ts.Close()
}
