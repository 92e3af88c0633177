// File: session_test.go
package jsonwire

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/selwire/jsonwire/wire"
	"github.com/selwire/jsonwire/wiretest"
)

func newLiveSession(t *testing.T) (*wiretest.Server, *Session) {
	t.Helper()
	srv, c := newTestHub(t)
	sess, err := c.NewSession(context.Background(), Capabilities{"browserName": "wiretest"}, nil)
	require.NoError(t, err)
	return srv, sess
}

func statusCode(t *testing.T, err error) wire.Status {
	t.Helper()
	var se *wire.StatusError
	require.ErrorAs(t, err, &se)
	return se.Code
}

func TestNavigationWalksHistory(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	url, err := sess.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "about:blank", url)

	require.NoError(t, sess.Navigate(ctx, "http://one.test/"))
	require.NoError(t, sess.Navigate(ctx, "http://two.test/"))

	url, err = sess.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://two.test/", url)

	require.NoError(t, sess.Back(ctx))
	url, err = sess.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://one.test/", url)

	require.NoError(t, sess.Forward(ctx))
	title, err := sess.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mock page: http://two.test/", title)

	require.NoError(t, sess.Refresh(ctx))
}

func TestSourceRendersDocument(t *testing.T) {
	_, sess := newLiveSession(t)

	src, err := sess.Source(context.Background())
	require.NoError(t, err)
	assert.Contains(t, src, "<html>")
	assert.Contains(t, src, "Mock WebDriver")
	assert.Contains(t, src, "More information")
}

func TestScreenshotDecodesToPNG(t *testing.T) {
	_, sess := newLiveSession(t)

	img, err := sess.Screenshot(context.Background())
	require.NoError(t, err)
	require.Greater(t, len(img), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img[:4])
}

func TestExecuteEchoesTypedArguments(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	el, err := sess.FindElement(ctx, ByID, "search")
	require.NoError(t, err)

	raw, err := sess.Execute(ctx, "return arguments;", 42, "go", el)
	require.NoError(t, err)

	args := gjson.ParseBytes(raw).Array()
	require.Len(t, args, 3)
	assert.EqualValues(t, 42, args[0].Int())
	assert.Equal(t, "go", args[1].String())
	// Element arguments travel as protocol handles.
	assert.Equal(t, el.ID(), args[2].Get("ELEMENT").String())
}

func TestExecuteSurfacesScriptError(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	_, err := sess.Execute(ctx, "throw new Error('no');")
	assert.Equal(t, wire.StatusJavaScriptError, statusCode(t, err))

	raw, err := sess.ExecuteAsync(ctx, "arguments[arguments.length-1]();")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestTimeoutCommands(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	assert.NoError(t, sess.SetTimeout(ctx, ScriptTimeout, 2*time.Second))
	assert.NoError(t, sess.SetTimeout(ctx, PageLoadTimeout, 30*time.Second))
	assert.NoError(t, sess.SetAsyncScriptTimeout(ctx, 5*time.Second))
	assert.NoError(t, sess.SetImplicitWait(ctx, time.Second))
}

func TestCookieLifecycle(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	cookies, err := sess.Cookies(ctx)
	require.NoError(t, err)
	assert.Empty(t, cookies)

	sid := Cookie{Name: "sid", Value: "abc123", Path: "/", HTTPOnly: true}
	require.NoError(t, sess.AddCookie(ctx, sid))
	require.NoError(t, sess.AddCookie(ctx, Cookie{Name: "theme", Value: "dark"}))

	cookies, err = sess.Cookies(ctx)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, sid, cookies[0])

	// Same name replaces in place.
	require.NoError(t, sess.AddCookie(ctx, Cookie{Name: "sid", Value: "def456"}))
	cookies, err = sess.Cookies(ctx)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "def456", cookies[0].Value)

	require.NoError(t, sess.DeleteCookie(ctx, "sid"))
	cookies, err = sess.Cookies(ctx)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "theme", cookies[0].Name)

	require.NoError(t, sess.DeleteCookies(ctx))
	cookies, err = sess.Cookies(ctx)
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestWindowFacade(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	handle, err := sess.WindowHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w-main", handle)

	handles, err := sess.WindowHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w-main"}, handles)

	w := sess.CurrentWindow()
	assert.Equal(t, "current", w.Handle())

	sz, err := w.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1280, Height: 800}, sz)

	require.NoError(t, w.SetSize(ctx, Size{Width: 1024, Height: 768}))
	sz, err = sess.Window("w-main").Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1024, Height: 768}, sz)

	require.NoError(t, w.SetPosition(ctx, Position{X: 10, Y: 20}))
	pos, err := w.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 10, Y: 20}, pos)

	require.NoError(t, w.Maximize(ctx))
	sz, err = w.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1920, Height: 1080}, sz)

	require.NoError(t, sess.SwitchWindow(ctx, "w-main"))
	err = sess.SwitchWindow(ctx, "w-detached")
	assert.Equal(t, wire.StatusNoSuchWindow, statusCode(t, err))

	require.NoError(t, sess.CloseWindow(ctx))
	handles, err = sess.WindowHandles(ctx)
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestFrameFocus(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	assert.NoError(t, sess.FocusFrame(ctx, 0))
	assert.NoError(t, sess.FocusFrame(ctx, "nav"))

	el, err := sess.FindElement(ctx, ByID, "heading")
	require.NoError(t, err)
	assert.NoError(t, sess.FocusFrame(ctx, el))

	assert.NoError(t, sess.FocusParentFrame(ctx))
	assert.NoError(t, sess.FocusFrame(ctx, nil))
}

func TestFindElementStrategies(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	cases := []struct {
		by    Strategy
		value string
		want  string
	}{
		{ByID, "search", "el-2"},
		{ByName, "q", "el-2"},
		{ByTagName, "a", "el-3"},
		{ByLinkText, "More information", "el-3"},
		{ByPartialLinkText, "informa", "el-3"},
		{ByClassName, "wide", "el-2"},
		{ByCSSSelector, "#heading", "el-1"},
		{ByCSSSelector, ".nav", "el-3"},
		{ByCSSSelector, "input", "el-2"},
		{ByXPath, "//h1", "el-1"},
	}
	for _, tc := range cases {
		el, err := sess.FindElement(ctx, tc.by, tc.value)
		require.NoError(t, err, "%s=%q", tc.by, tc.value)
		assert.Equal(t, tc.want, el.ID(), "%s=%q", tc.by, tc.value)
	}
}

func TestFindElementFailureModes(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	_, err := sess.FindElement(ctx, Strategy("quantum"), "x")
	assert.Equal(t, wire.StatusInvalidSelector, statusCode(t, err))

	_, err = sess.FindElement(ctx, ByID, "no-such-id")
	assert.Equal(t, wire.StatusNoSuchElement, statusCode(t, err))

	// A plural search that matches nothing is not an error.
	els, err := sess.FindElements(ctx, ByID, "no-such-id")
	require.NoError(t, err)
	assert.Empty(t, els)

	els, err = sess.FindElements(ctx, ByTagName, "input")
	require.NoError(t, err)
	assert.Len(t, els, 1)
}

func TestElementStateAndInput(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	el, err := sess.FindElement(ctx, ByID, "search")
	require.NoError(t, err)

	tag, err := el.TagName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "input", tag)

	enabled, err := el.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	selected, err := el.Selected(ctx)
	require.NoError(t, err)
	assert.False(t, selected)

	displayed, err := el.Displayed(ctx)
	require.NoError(t, err)
	assert.True(t, displayed)

	require.NoError(t, el.SendKeys(ctx, "go"))
	require.NoError(t, el.SendKeys(ctx, "lang"))
	val, err := el.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "golang", val)

	require.NoError(t, el.Clear(ctx))
	val, err = el.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Empty(t, val)

	id, err := el.Attribute(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "search", id)

	missing, err := el.Attribute(ctx, "data-missing")
	require.NoError(t, err)
	assert.Empty(t, missing)

	display, err := el.CSS(ctx, "display")
	require.NoError(t, err)
	assert.Equal(t, "inline-block", display)

	pos, err := el.Location(ctx)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 8, Y: 60}, pos)

	pos, err = el.LocationInView(ctx)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 8, Y: 60}, pos)

	sz, err := el.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 320, Height: 28}, sz)

	heading, err := sess.FindElement(ctx, ByID, "heading")
	require.NoError(t, err)
	text, err := heading.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mock WebDriver", text)
}

func TestElementEqual(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	byID, err := sess.FindElement(ctx, ByID, "search")
	require.NoError(t, err)
	byName, err := sess.FindElement(ctx, ByName, "q")
	require.NoError(t, err)
	heading, err := sess.FindElement(ctx, ByID, "heading")
	require.NoError(t, err)

	same, err := byID.Equal(ctx, byName)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = byID.Equal(ctx, heading)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestElementScopedSearch(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	heading, err := sess.FindElement(ctx, ByID, "heading")
	require.NoError(t, err)

	link, err := heading.FindElement(ctx, ByTagName, "a")
	require.NoError(t, err)
	assert.Equal(t, "el-3", link.ID())

	text, err := link.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "More information", text)

	links, err := heading.FindElements(ctx, ByTagName, "a")
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestClickFollowsLink(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	require.NoError(t, sess.Navigate(ctx, "http://start.test/"))

	link, err := sess.FindElement(ctx, ByLinkText, "More information")
	require.NoError(t, err)
	require.NoError(t, link.Click(ctx))

	url, err := sess.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/info", url)

	require.NoError(t, sess.Back(ctx))
	url, err = sess.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://start.test/", url)
}

func TestHiddenElementRejectsClick(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	ghost, err := sess.FindElement(ctx, ByID, "ghost")
	require.NoError(t, err)

	displayed, err := ghost.Displayed(ctx)
	require.NoError(t, err)
	assert.False(t, displayed)

	err = ghost.Click(ctx)
	assert.Equal(t, wire.StatusElementNotVisible, statusCode(t, err))
}

func TestActiveElementReceivesSessionKeys(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	active, err := sess.ActiveElement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "el-2", active.ID())

	require.NoError(t, sess.SendKeys(ctx, "typed"))
	val, err := active.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "typed", val)
}

func TestPointerGestures(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	el, err := sess.FindElement(ctx, ByID, "search")
	require.NoError(t, err)
	require.NoError(t, el.Submit(ctx))

	assert.NoError(t, sess.MoveTo(ctx, el, 5, 5))
	assert.NoError(t, sess.MoveTo(ctx, nil, 1, 1))
	assert.NoError(t, sess.Click(ctx, LeftButton))
	assert.NoError(t, sess.ButtonDown(ctx, RightButton))
	assert.NoError(t, sess.ButtonUp(ctx, RightButton))
	assert.NoError(t, sess.DoubleClick(ctx))
}

func TestTouchGestures(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	el, err := sess.FindElement(ctx, ByID, "search")
	require.NoError(t, err)

	assert.NoError(t, sess.TouchClick(ctx, el))
	assert.NoError(t, sess.TouchDoubleClick(ctx, el))
	assert.NoError(t, sess.TouchLongClick(ctx, el))
	assert.NoError(t, sess.TouchDown(ctx, 10, 10))
	assert.NoError(t, sess.TouchMove(ctx, 40, 80))
	assert.NoError(t, sess.TouchUp(ctx, 40, 80))
	assert.NoError(t, sess.TouchScroll(ctx, nil, 0, 120))
	assert.NoError(t, sess.TouchScroll(ctx, el, 0, -60))
	assert.NoError(t, sess.Flick(ctx, 0, -300))
	assert.NoError(t, sess.FlickFrom(ctx, el, 20, 0, 150))

	// Gestures addressed at an element the page no longer has are rejected.
	err = sess.TouchClick(ctx, sess.element("el-999"))
	assert.Equal(t, wire.StatusStaleElementReference, statusCode(t, err))
}

func TestIMEControl(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	engines, err := sess.IMEEngines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "latin"}, engines)

	on, err := sess.IMEActivated(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, sess.ActivateIME(ctx, "latin"))
	on, err = sess.IMEActivated(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	engine, err := sess.IMEActiveEngine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "latin", engine)

	err = sess.ActivateIME(ctx, "klingon")
	assert.Equal(t, wire.StatusIMEEngineActivationFailed, statusCode(t, err))

	require.NoError(t, sess.DeactivateIME(ctx))
	on, err = sess.IMEActivated(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestStorageAreas(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	local := sess.LocalStorage()
	keys, err := local.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, local.Set(ctx, "theme", "dark"))
	require.NoError(t, local.Set(ctx, "lang", "en"))

	keys, err = local.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lang", "theme"}, keys)

	val, err := local.Value(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", val)

	n, err := local.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, local.Remove(ctx, "theme"))
	n, err = local.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The per-tab area is independent of the persistent one.
	tab := sess.SessionStorage()
	n, err = tab.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, tab.Set(ctx, "scratch", "1"))
	n, err = tab.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, local.Clear(ctx))
	keys, err = local.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAlertDialog(t *testing.T) {
	srv, sess := newLiveSession(t)
	ctx := context.Background()

	_, err := sess.AlertText(ctx)
	assert.Equal(t, wire.StatusNoAlertOpenError, statusCode(t, err))

	srv.PrimeAlert(sess.ID, "Proceed?")

	text, err := sess.AlertText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Proceed?", text)

	require.NoError(t, sess.SetAlertText(ctx, "yes"))
	require.NoError(t, sess.AcceptAlert(ctx))

	err = sess.DismissAlert(ctx)
	assert.Equal(t, wire.StatusNoAlertOpenError, statusCode(t, err))
}

func TestLogBuffersDrainOnRead(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	types, err := sess.LogTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LogType{BrowserLog, DriverLog}, types)

	entries, err := sess.Log(ctx, BrowserLog)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "document loaded", entries[0].Message)
	assert.Positive(t, entries[0].Timestamp)

	entries, err = sess.Log(ctx, BrowserLog)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = sess.Log(ctx, LogType("performance"))
	assert.Equal(t, wire.StatusUnknownError, statusCode(t, err))
}

func TestDeviceState(t *testing.T) {
	_, sess := newLiveSession(t)
	ctx := context.Background()

	o, err := sess.Orientation(ctx)
	require.NoError(t, err)
	assert.Equal(t, Portrait, o)

	require.NoError(t, sess.SetOrientation(ctx, Landscape))
	o, err = sess.Orientation(ctx)
	require.NoError(t, err)
	assert.Equal(t, Landscape, o)

	fix := GeoLocation{Latitude: 51.5007, Longitude: -0.1246, Altitude: 35}
	require.NoError(t, sess.SetLocation(ctx, fix))
	got, err := sess.Location(ctx)
	require.NoError(t, err)
	assert.Equal(t, &fix, got)

	cache, err := sess.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, CacheUncached, cache)
}
