// File: session.go
package jsonwire

import (
	"context"
	"encoding/base64"
	stdjson "encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selwire/jsonwire/command"
)

// Session is a live browser on the remote end. Its lifecycle runs through
// the hub node (sessions are created and deleted on the hub's URL space),
// while every in-session command runs through the session's own node.
type Session struct {
	ID           string
	Capabilities Capabilities

	hub  *Node
	node *Node
	log  *zap.Logger
}

// Node exposes the session's raw dispatch node for commands the typed
// facade does not cover.
func (s *Session) Node() *Node {
	return s.node
}

// Close terminates the browser session on the remote end.
func (s *Session) Close(ctx context.Context) error {
	_, err := s.hub.InvokeVerb(ctx, command.Delete, "session", s.ID)
	if err == nil {
		s.log.Info("session closed")
	}
	return err
}

// URL returns the address of the page the browser is on.
func (s *Session) URL(ctx context.Context) (string, error) {
	return decode[string](s.node.Invoke(ctx, "url"))
}

// Navigate points the browser at url and waits for the load to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.node.Invoke(ctx, "url", url)
	return err
}

// Forward walks one step forward in the browser history.
func (s *Session) Forward(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "forward")
	return err
}

// Back walks one step back in the browser history.
func (s *Session) Back(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "back")
	return err
}

// Refresh reloads the current page.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "refresh")
	return err
}

// Title returns the current page title.
func (s *Session) Title(ctx context.Context) (string, error) {
	return decode[string](s.node.Invoke(ctx, "title"))
}

// Source returns the serialized DOM of the current page.
func (s *Session) Source(ctx context.Context) (string, error) {
	return decode[string](s.node.Invoke(ctx, "source"))
}

// Screenshot captures the current page as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	encoded, err := decode[string](s.node.Invoke(ctx, "screenshot"))
	if err != nil {
		return nil, err
	}
	img, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Execute runs JavaScript in the page and returns its result still encoded.
// Arguments may include *Element values; they are marshalled as protocol
// element handles.
func (s *Session) Execute(ctx context.Context, script string, args ...any) (stdjson.RawMessage, error) {
	return s.node.Invoke(ctx, "execute", scriptParams(script, args))
}

// ExecuteAsync runs JavaScript that reports completion through the callback
// the remote end appends to the argument list.
func (s *Session) ExecuteAsync(ctx context.Context, script string, args ...any) (stdjson.RawMessage, error) {
	return s.node.Invoke(ctx, "execute_async", scriptParams(script, args))
}

func scriptParams(script string, args []any) map[string]any {
	if args == nil {
		args = []any{}
	}
	return map[string]any{"script": script, "args": args}
}

// SetTimeout adjusts one of the remote end's timeouts.
func (s *Session) SetTimeout(ctx context.Context, t TimeoutType, d time.Duration) error {
	_, err := s.node.Invoke(ctx, "timeouts", map[string]any{"type": string(t), "ms": d.Milliseconds()})
	return err
}

// SetAsyncScriptTimeout bounds how long ExecuteAsync scripts may run.
func (s *Session) SetAsyncScriptTimeout(ctx context.Context, d time.Duration) error {
	_, err := s.node.Invoke(ctx, "timeouts/async_script", map[string]any{"ms": d.Milliseconds()})
	return err
}

// SetImplicitWait bounds how long element searches keep retrying.
func (s *Session) SetImplicitWait(ctx context.Context, d time.Duration) error {
	_, err := s.node.Invoke(ctx, "timeouts/implicit_wait", map[string]any{"ms": d.Milliseconds()})
	return err
}

// WindowHandle returns the handle of the window commands go to.
func (s *Session) WindowHandle(ctx context.Context) (string, error) {
	return decode[string](s.node.Invoke(ctx, "window_handle"))
}

// WindowHandles returns the handles of all windows in the session.
func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	return decode[[]string](s.node.Invoke(ctx, "window_handles"))
}

// SwitchWindow moves command focus to the window named by handle or name.
func (s *Session) SwitchWindow(ctx context.Context, name string) error {
	_, err := s.node.Invoke(ctx, "window", map[string]any{"name": name})
	return err
}

// CloseWindow closes the focused window.
func (s *Session) CloseWindow(ctx context.Context) error {
	_, err := s.node.InvokeVerb(ctx, command.Delete, "window")
	return err
}

// Window addresses a window by handle without any network traffic.
func (s *Session) Window(handle string) *Window {
	return &Window{
		handle: handle,
		node:   s.node.Child(command.Window(), "window", handle),
	}
}

// CurrentWindow addresses whichever window currently has command focus.
func (s *Session) CurrentWindow() *Window {
	return s.Window("current")
}

// FocusFrame switches command focus to a frame in the current page. The
// target may be a frame id, name, index, *Element, or nil for the top frame.
func (s *Session) FocusFrame(ctx context.Context, frame any) error {
	if el, ok := frame.(*Element); ok && el != nil {
		frame = elementRef{ID: el.id}
	}
	_, err := s.node.Invoke(ctx, "frame", map[string]any{"id": frame})
	return err
}

// FocusParentFrame switches command focus one frame up.
func (s *Session) FocusParentFrame(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "frame/parent")
	return err
}

// Cookies returns all cookies visible to the current page.
func (s *Session) Cookies(ctx context.Context) ([]Cookie, error) {
	return decode[[]Cookie](s.node.Invoke(ctx, "cookie"))
}

// AddCookie sets a cookie on the current page's domain.
func (s *Session) AddCookie(ctx context.Context, ck Cookie) error {
	_, err := s.node.Invoke(ctx, "cookie", map[string]any{"cookie": ck})
	return err
}

// DeleteCookies removes every cookie visible to the current page.
func (s *Session) DeleteCookies(ctx context.Context) error {
	_, err := s.node.InvokeVerb(ctx, command.Delete, "cookie")
	return err
}

// DeleteCookie removes one cookie by name.
func (s *Session) DeleteCookie(ctx context.Context, name string) error {
	_, err := s.node.InvokeVerb(ctx, command.Delete, "cookie", name)
	return err
}

// FindElement locates the first element matching the strategy.
func (s *Session) FindElement(ctx context.Context, by Strategy, value string) (*Element, error) {
	ref, err := decode[elementRef](s.node.Invoke(ctx, "element", locator(by, value)))
	if err != nil {
		return nil, err
	}
	return s.element(ref.ID), nil
}

// FindElements locates every element matching the strategy.
func (s *Session) FindElements(ctx context.Context, by Strategy, value string) ([]*Element, error) {
	refs, err := decode[[]elementRef](s.node.Invoke(ctx, "elements", locator(by, value)))
	if err != nil {
		return nil, err
	}
	els := make([]*Element, len(refs))
	for i, ref := range refs {
		els[i] = s.element(ref.ID)
	}
	return els, nil
}

// ActiveElement returns the element that currently has keyboard focus.
func (s *Session) ActiveElement(ctx context.Context) (*Element, error) {
	ref, err := decode[elementRef](s.node.Invoke(ctx, "element/active"))
	if err != nil {
		return nil, err
	}
	return s.element(ref.ID), nil
}

func locator(by Strategy, value string) map[string]any {
	return map[string]any{"using": string(by), "value": value}
}

func (s *Session) element(id string) *Element {
	return &Element{
		id:   id,
		node: s.node.Child(command.Element(), "element", id),
		sess: s.node,
	}
}

// SendKeys types a key sequence into the element with keyboard focus.
func (s *Session) SendKeys(ctx context.Context, sequence string) error {
	_, err := s.node.Invoke(ctx, "keys", map[string]any{"value": []string{sequence}})
	return err
}

// AlertText returns the message of the open alert, confirm or prompt dialog.
func (s *Session) AlertText(ctx context.Context) (string, error) {
	return decode[string](s.node.Invoke(ctx, "alert_text"))
}

// SetAlertText types into the open prompt dialog.
func (s *Session) SetAlertText(ctx context.Context, text string) error {
	_, err := s.node.Invoke(ctx, "alert_text", map[string]any{"text": text})
	return err
}

// AcceptAlert presses the OK button of the open dialog.
func (s *Session) AcceptAlert(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "accept_alert")
	return err
}

// DismissAlert presses the cancel button of the open dialog.
func (s *Session) DismissAlert(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "dismiss_alert")
	return err
}

// MoveTo shifts the pointer relative to an element's centre, or to the
// current pointer position when el is nil.
func (s *Session) MoveTo(ctx context.Context, el *Element, xOffset, yOffset int) error {
	params := map[string]any{"xoffset": xOffset, "yoffset": yOffset}
	if el != nil {
		params["element"] = el.id
	}
	_, err := s.node.Invoke(ctx, "moveto", params)
	return err
}

// Click presses and releases a pointer button at the current position.
func (s *Session) Click(ctx context.Context, b Button) error {
	_, err := s.node.Invoke(ctx, "click", map[string]any{"button": int(b)})
	return err
}

// ButtonDown presses a pointer button and leaves it held.
func (s *Session) ButtonDown(ctx context.Context, b Button) error {
	_, err := s.node.Invoke(ctx, "buttondown", map[string]any{"button": int(b)})
	return err
}

// ButtonUp releases a held pointer button.
func (s *Session) ButtonUp(ctx context.Context, b Button) error {
	_, err := s.node.Invoke(ctx, "buttonup", map[string]any{"button": int(b)})
	return err
}

// DoubleClick double-clicks at the current pointer position.
func (s *Session) DoubleClick(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "doubleclick")
	return err
}

// TouchClick taps the element with a single finger.
func (s *Session) TouchClick(ctx context.Context, el *Element) error {
	_, err := s.node.Invoke(ctx, "touch/click", map[string]any{"element": el.id})
	return err
}

// TouchDoubleClick double-taps the element.
func (s *Session) TouchDoubleClick(ctx context.Context, el *Element) error {
	_, err := s.node.Invoke(ctx, "touch/doubleclick", map[string]any{"element": el.id})
	return err
}

// TouchLongClick presses the element and holds.
func (s *Session) TouchLongClick(ctx context.Context, el *Element) error {
	_, err := s.node.Invoke(ctx, "touch/longclick", map[string]any{"element": el.id})
	return err
}

// TouchDown presses a finger down at viewport coordinates.
func (s *Session) TouchDown(ctx context.Context, x, y int) error {
	_, err := s.node.Invoke(ctx, "touch/down", map[string]any{"x": x, "y": y})
	return err
}

// TouchUp lifts the finger at viewport coordinates.
func (s *Session) TouchUp(ctx context.Context, x, y int) error {
	_, err := s.node.Invoke(ctx, "touch/up", map[string]any{"x": x, "y": y})
	return err
}

// TouchMove drags the held finger to viewport coordinates.
func (s *Session) TouchMove(ctx context.Context, x, y int) error {
	_, err := s.node.Invoke(ctx, "touch/move", map[string]any{"x": x, "y": y})
	return err
}

// TouchScroll scrolls with a finger gesture. A non-nil el anchors the
// gesture on that element.
func (s *Session) TouchScroll(ctx context.Context, el *Element, xOffset, yOffset int) error {
	params := map[string]any{"xoffset": xOffset, "yoffset": yOffset}
	if el != nil {
		params["element"] = el.id
	}
	_, err := s.node.Invoke(ctx, "touch/scroll", params)
	return err
}

// Flick flicks the viewport at the given speed in pixels per second.
func (s *Session) Flick(ctx context.Context, xSpeed, ySpeed int) error {
	_, err := s.node.Invoke(ctx, "touch/flick", map[string]any{"xspeed": xSpeed, "yspeed": ySpeed})
	return err
}

// FlickFrom flicks starting on an element, moving by the given offset at the
// given speed.
func (s *Session) FlickFrom(ctx context.Context, el *Element, xOffset, yOffset, speed int) error {
	_, err := s.node.Invoke(ctx, "touch/flick", map[string]any{
		"element": el.id,
		"xoffset": xOffset,
		"yoffset": yOffset,
		"speed":   speed,
	})
	return err
}

// Orientation reports the device's screen orientation.
func (s *Session) Orientation(ctx context.Context) (Orientation, error) {
	return decode[Orientation](s.node.Invoke(ctx, "orientation"))
}

// SetOrientation rotates the device screen.
func (s *Session) SetOrientation(ctx context.Context, o Orientation) error {
	_, err := s.node.Invoke(ctx, "orientation", map[string]any{"orientation": string(o)})
	return err
}

// Location reports the device's position fix.
func (s *Session) Location(ctx context.Context) (*GeoLocation, error) {
	return decode[*GeoLocation](s.node.Invoke(ctx, "location"))
}

// SetLocation overrides the device's position fix.
func (s *Session) SetLocation(ctx context.Context, loc GeoLocation) error {
	_, err := s.node.Invoke(ctx, "location", map[string]any{"location": loc})
	return err
}

// LocalStorage accesses the current page's persistent storage area.
func (s *Session) LocalStorage() *Storage {
	return s.storage("local_storage")
}

// SessionStorage accesses the current page's per-tab storage area.
func (s *Session) SessionStorage() *Storage {
	return s.storage("session_storage")
}

func (s *Session) storage(kind string) *Storage {
	return &Storage{
		kind: kind,
		sess: s.node,
		node: s.node.Child(command.Storage(), kind),
	}
}

// IMEEngines lists the input method engines available on the remote end.
func (s *Session) IMEEngines(ctx context.Context) ([]string, error) {
	return decode[[]string](s.node.Invoke(ctx, "ime/available_engines"))
}

// IMEActiveEngine names the engine currently handling input.
func (s *Session) IMEActiveEngine(ctx context.Context) (string, error) {
	return decode[string](s.node.Invoke(ctx, "ime/active_engine"))
}

// IMEActivated reports whether input currently goes through an engine.
func (s *Session) IMEActivated(ctx context.Context) (bool, error) {
	return decode[bool](s.node.Invoke(ctx, "ime/activated"))
}

// ActivateIME routes keyboard input through the named engine.
func (s *Session) ActivateIME(ctx context.Context, engine string) error {
	_, err := s.node.Invoke(ctx, "ime/activate", map[string]any{"engine": engine})
	return err
}

// DeactivateIME releases the active input method engine.
func (s *Session) DeactivateIME(ctx context.Context) error {
	_, err := s.node.Invoke(ctx, "ime/deactivate")
	return err
}

// Log drains a remote log buffer. Entries are removed as they are read.
func (s *Session) Log(ctx context.Context, t LogType) ([]LogEntry, error) {
	return decode[[]LogEntry](s.node.Invoke(ctx, "log", map[string]any{"type": string(t)}))
}

// LogTypes lists the log buffers the remote end keeps.
func (s *Session) LogTypes(ctx context.Context) ([]LogType, error) {
	return decode[[]LogType](s.node.Invoke(ctx, "log/types"))
}

// CacheStatus reports the application cache state of the current page.
func (s *Session) CacheStatus(ctx context.Context) (CacheStatus, error) {
	return decode[CacheStatus](s.node.Invoke(ctx, "application_cache/status"))
}
