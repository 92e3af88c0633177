// wiretest/server_test.go
package wiretest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/selwire/jsonwire/wire"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(zaptest.NewLogger(t))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

// call sends one raw protocol request and parses the envelope.
func call(t *testing.T, ts *httptest.Server, method, path, body string) (int, gjson.Result) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(raw)
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	code, env := call(t, ts, http.MethodPost, "/wd/hub/session",
		`{"desiredCapabilities":{"browserName":"wiretest"},"requiredCapabilities":null}`)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 0, env.Get("status").Int())
	id := env.Get("sessionId").String()
	require.NotEmpty(t, id)
	return id
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	code, env := call(t, ts, http.MethodGet, "/wd/hub/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, env.Get("status").Int())
	assert.Equal(t, serverVersion, env.Get("value.build.version").String())
	assert.NotEmpty(t, env.Get("value.os.name").String())
}

func TestSessionLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv := New(zaptest.NewLogger(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	id := createSession(t, ts)
	assert.Equal(t, []string{id}, srv.OpenSessions())

	code, env := call(t, ts, http.MethodGet, "/wd/hub/sessions", "")
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, env.Get("value").Array(), 1)
	assert.Equal(t, id, env.Get("value.0.id").String())

	code, env = call(t, ts, http.MethodGet, "/wd/hub/session/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "wiretest", env.Get("value.browserName").String())

	code, env = call(t, ts, http.MethodDelete, "/wd/hub/session/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, srv.OpenSessions())

	// Commands against the dead session carry the protocol's session error.
	code, env = call(t, ts, http.MethodGet, "/wd/hub/session/"+id+"/url", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, wire.StatusNoSuchDriver, env.Get("status").Int())
}

func TestUnknownCommandGetsProtocolEnvelope(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)

	code, env := call(t, ts, http.MethodGet, "/wd/hub/session/"+id+"/teleport", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, wire.StatusUnknownCommand, env.Get("status").Int())
	assert.Contains(t, env.Get("value.message").String(), "unknown command")
}

func TestWrongMethodGetsProtocolEnvelope(t *testing.T) {
	_, ts := newTestServer(t)

	code, env := call(t, ts, http.MethodDelete, "/wd/hub/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.EqualValues(t, wire.StatusUnknownCommand, env.Get("status").Int())
}

func TestFailNextInjectsOneFailure(t *testing.T) {
	srv, ts := newTestServer(t)
	id := createSession(t, ts)

	srv.FailNext(wire.StatusUnknownError, "injected failure")

	code, env := call(t, ts, http.MethodGet, "/wd/hub/session/"+id+"/url", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, wire.StatusUnknownError, env.Get("status").Int())
	assert.Equal(t, "injected failure", env.Get("value.message").String())

	// Only the one request is poisoned.
	code, env = call(t, ts, http.MethodGet, "/wd/hub/session/"+id+"/url", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, env.Get("status").Int())
}

func TestNavigationHistory(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	_, env := call(t, ts, http.MethodGet, base+"/url", "")
	assert.Equal(t, "about:blank", env.Get("value").String())

	call(t, ts, http.MethodPost, base+"/url", `{"url":"http://one.test/"}`)
	call(t, ts, http.MethodPost, base+"/url", `{"url":"http://two.test/"}`)

	_, env = call(t, ts, http.MethodGet, base+"/url", "")
	assert.Equal(t, "http://two.test/", env.Get("value").String())

	call(t, ts, http.MethodPost, base+"/back", "{}")
	_, env = call(t, ts, http.MethodGet, base+"/url", "")
	assert.Equal(t, "http://one.test/", env.Get("value").String())

	call(t, ts, http.MethodPost, base+"/forward", "{}")
	_, env = call(t, ts, http.MethodGet, base+"/title", "")
	assert.Equal(t, "Mock page: http://two.test/", env.Get("value").String())
}

func TestFindAndTypeIntoElement(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	code, env := call(t, ts, http.MethodPost, base+"/element", `{"using":"id","value":"search"}`)
	require.Equal(t, http.StatusOK, code)
	eid := env.Get("value.ELEMENT").String()
	require.NotEmpty(t, eid)

	code, _ = call(t, ts, http.MethodPost, base+"/element/"+eid+"/value", `{"value":["go","lang"]}`)
	require.Equal(t, http.StatusOK, code)

	_, env = call(t, ts, http.MethodGet, base+"/element/"+eid+"/attribute/value", "")
	assert.Equal(t, "golang", env.Get("value").String())

	call(t, ts, http.MethodPost, base+"/element/"+eid+"/clear", "{}")
	_, env = call(t, ts, http.MethodGet, base+"/element/"+eid+"/attribute/value", "")
	assert.Empty(t, env.Get("value").String())
}

func TestFindElementFailures(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	code, env := call(t, ts, http.MethodPost, base+"/element", `{"using":"id","value":"nope"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, wire.StatusNoSuchElement, env.Get("status").Int())

	code, env = call(t, ts, http.MethodPost, base+"/element", `{"using":"quantum","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, wire.StatusInvalidSelector, env.Get("status").Int())

	code, env = call(t, ts, http.MethodGet, base+"/element/el-99/text", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, wire.StatusStaleElementReference, env.Get("status").Int())
}

func TestClickLinkNavigates(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	_, env := call(t, ts, http.MethodPost, base+"/element", `{"using":"link text","value":"More information"}`)
	eid := env.Get("value.ELEMENT").String()
	require.NotEmpty(t, eid)

	code, _ := call(t, ts, http.MethodPost, base+"/element/"+eid+"/click", "{}")
	require.Equal(t, http.StatusOK, code)

	_, env = call(t, ts, http.MethodGet, base+"/url", "")
	assert.Equal(t, "/info", env.Get("value").String())
}

func TestHiddenElementRefusesClick(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	_, env := call(t, ts, http.MethodPost, base+"/element", `{"using":"id","value":"ghost"}`)
	eid := env.Get("value.ELEMENT").String()

	code, env := call(t, ts, http.MethodPost, base+"/element/"+eid+"/click", "{}")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, wire.StatusElementNotVisible, env.Get("status").Int())
}

func TestAlertFlow(t *testing.T) {
	srv, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	code, env := call(t, ts, http.MethodGet, base+"/alert_text", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, wire.StatusNoAlertOpenError, env.Get("status").Int())

	srv.PrimeAlert(id, "Are you sure?")

	code, env = call(t, ts, http.MethodGet, base+"/alert_text", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Are you sure?", env.Get("value").String())

	code, _ = call(t, ts, http.MethodPost, base+"/accept_alert", "{}")
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, ts, http.MethodPost, base+"/accept_alert", "{}")
	assert.Equal(t, http.StatusInternalServerError, code, "the dialog is gone")
}

func TestStorageArea(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	call(t, ts, http.MethodPost, base+"/local_storage", `{"key":"theme","value":"dark"}`)
	call(t, ts, http.MethodPost, base+"/local_storage", `{"key":"lang","value":"en"}`)

	_, env := call(t, ts, http.MethodGet, base+"/local_storage", "")
	assert.Equal(t, `["lang","theme"]`, env.Get("value").Raw)

	_, env = call(t, ts, http.MethodGet, base+"/local_storage/key/theme", "")
	assert.Equal(t, "dark", env.Get("value").String())

	_, env = call(t, ts, http.MethodGet, base+"/local_storage/size", "")
	assert.EqualValues(t, 2, env.Get("value").Int())

	call(t, ts, http.MethodDelete, base+"/local_storage/key/theme", "")
	_, env = call(t, ts, http.MethodGet, base+"/local_storage/size", "")
	assert.EqualValues(t, 1, env.Get("value").Int())

	// The two storage kinds do not share state.
	_, env = call(t, ts, http.MethodGet, base+"/session_storage/size", "")
	assert.EqualValues(t, 0, env.Get("value").Int())

	call(t, ts, http.MethodDelete, base+"/local_storage", "")
	_, env = call(t, ts, http.MethodGet, base+"/local_storage", "")
	assert.Equal(t, `[]`, env.Get("value").Raw)
}

func TestLogBufferDrains(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	_, env := call(t, ts, http.MethodGet, base+"/log/types", "")
	assert.Equal(t, `["browser","driver"]`, env.Get("value").Raw)

	_, env = call(t, ts, http.MethodPost, base+"/log", `{"type":"browser"}`)
	assert.Len(t, env.Get("value").Array(), 2)

	_, env = call(t, ts, http.MethodPost, base+"/log", `{"type":"browser"}`)
	assert.Len(t, env.Get("value").Array(), 0, "reading drains the buffer")

	code, env := call(t, ts, http.MethodPost, base+"/log", `{"type":"performance"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, wire.StatusUnknownError, env.Get("status").Int())
}

func TestExecuteEchoesArguments(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/wd/hub/session/" + id

	_, env := call(t, ts, http.MethodPost, base+"/execute",
		`{"script":"return arguments;","args":[1,"two",{"three":3}]}`)
	assert.Equal(t, `[1,"two",{"three":3}]`, env.Get("value").Raw)

	code, env := call(t, ts, http.MethodPost, base+"/execute",
		`{"script":"throw new Error('no');","args":[]}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, wire.StatusJavaScriptError, env.Get("status").Int())
}
