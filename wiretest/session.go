// File: wiretest/session.go
package wiretest

import (
	"io"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/selwire/jsonwire/wire"
)

// pngPixel is a 1x1 transparent PNG, base64 encoded, served for screenshots.
const pngPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// serverVersion is what the fake reports from the status command.
const serverVersion = "0.1.0-wiretest"

// session is the per-browser state. All access happens under the server
// mutex, taken by the withSession wrapper.
type session struct {
	id   string
	caps map[string]any

	history []string
	histIdx int

	windows   []string
	current   string
	winSize   map[string]any
	winPos    map[string]any
	maximized bool

	frame any

	cookies []map[string]any

	alert      string
	alertOpen  bool
	promptText string

	orientation string
	geo         map[string]any

	imeEngines []string
	imeActive  string
	imeOn      bool

	elements []*element
	active   string

	local        map[string]string
	sessionStore map[string]string

	logs     map[string][]map[string]any
	timeouts map[string]int64
}

func newSession(id string, caps map[string]any) *session {
	now := time.Now().UnixMilli()
	return &session{
		id:           id,
		caps:         caps,
		windows:      []string{"w-main"},
		current:      "w-main",
		winSize:      map[string]any{"width": 1280, "height": 800},
		winPos:       map[string]any{"x": 0, "y": 0},
		orientation:  "PORTRAIT",
		geo:          map[string]any{"latitude": 0.0, "longitude": 0.0, "altitude": 0.0},
		imeEngines:   []string{"default", "latin"},
		elements:     defaultDocument(),
		local:        make(map[string]string),
		sessionStore: make(map[string]string),
		logs: map[string][]map[string]any{
			"browser": {
				{"timestamp": now, "level": "INFO", "message": "document loaded"},
				{"timestamp": now, "level": "WARNING", "message": "favicon.ico not found"},
			},
			"driver": {
				{"timestamp": now, "level": "INFO", "message": "session started"},
			},
		},
		timeouts: make(map[string]int64),
	}
}

func (ss *session) url() string {
	if ss.histIdx < 0 || ss.histIdx >= len(ss.history) {
		return "about:blank"
	}
	return ss.history[ss.histIdx]
}

func (ss *session) title() string {
	u := ss.url()
	if u == "about:blank" {
		return ""
	}
	return "Mock page: " + u
}

func readBody(r *http.Request) []byte {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil
	}
	return body
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, "", map[string]any{
		"build": map[string]any{
			"version":  serverVersion,
			"revision": "dev",
			"time":     s.started.Format(time.RFC3339),
		},
		"os": map[string]any{
			"arch":    runtime.GOARCH,
			"name":    runtime.GOOS,
			"version": "",
		},
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	desired, _ := gjson.GetBytes(body, "desiredCapabilities").Value().(map[string]any)

	granted := map[string]any{
		"browserName":       "wiretest",
		"version":           serverVersion,
		"platform":          runtime.GOOS,
		"javascriptEnabled": true,
	}
	for k, v := range desired {
		granted[k] = v
	}

	id := s.newSessionID()
	s.mu.Lock()
	s.sessions[id] = newSession(id, granted)
	s.mu.Unlock()

	s.respond(w, http.StatusOK, id, granted)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, map[string]any{
			"id":           id,
			"capabilities": s.sessions[id].caps,
		})
	}
	s.mu.Unlock()

	s.respond(w, http.StatusOK, "", list)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.caps)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, ss *session) {
	delete(s.sessions, ss.id)
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleGetURL(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.url())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, ss *session) {
	target := gjson.GetBytes(readBody(r), "url")
	if !target.Exists() {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "url parameter is missing")
		return
	}
	// Navigating drops any forward history, like a real browser.
	ss.navigate(target.String())
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request, ss *session) {
	if ss.histIdx < len(ss.history)-1 {
		ss.histIdx++
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, ss *session) {
	if ss.histIdx > 0 {
		ss.histIdx--
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.title())
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, documentSource(ss.elements, ss.title()))
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, pngPixel)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, ss *session) {
	body := readBody(r)
	script := gjson.GetBytes(body, "script")
	if !script.Exists() {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "script parameter is missing")
		return
	}
	if containsThrow(script.String()) {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusJavaScriptError, "script threw an exception")
		return
	}
	// Scripts are not evaluated; the argument list echoes back, which is
	// enough for a client to verify serialization both ways.
	s.respond(w, http.StatusOK, ss.id, gjson.GetBytes(body, "args").Value())
}

func (s *Server) handleSetTimeouts(w http.ResponseWriter, r *http.Request, ss *session) {
	body := readBody(r)
	typ := gjson.GetBytes(body, "type").String()
	switch typ {
	case "script", "implicit", "page load":
	default:
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "unknown timeout type: "+typ)
		return
	}
	ss.timeouts[typ] = gjson.GetBytes(body, "ms").Int()
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleSetScopedTimeout(typ string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		ss.timeouts[typ] = gjson.GetBytes(readBody(r), "ms").Int()
		s.respond(w, http.StatusOK, ss.id, nil)
	}
}

func (s *Server) handleWindowHandle(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.current)
}

func (s *Server) handleWindowHandles(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.windows)
}

func (s *Server) handleSwitchWindow(w http.ResponseWriter, r *http.Request, ss *session) {
	name := gjson.GetBytes(readBody(r), "name").String()
	for _, h := range ss.windows {
		if h == name {
			ss.current = h
			s.respond(w, http.StatusOK, ss.id, nil)
			return
		}
	}
	s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchWindow, "no such window: "+name)
}

func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request, ss *session) {
	remaining := ss.windows[:0]
	for _, h := range ss.windows {
		if h != ss.current {
			remaining = append(remaining, h)
		}
	}
	ss.windows = remaining
	if len(ss.windows) > 0 {
		ss.current = ss.windows[0]
	} else {
		ss.current = ""
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

// resolveWindow maps a window path parameter onto the session, honouring the
// reserved "current" handle.
func (ss *session) resolveWindow(handle string) bool {
	if handle == "current" {
		return ss.current != ""
	}
	for _, h := range ss.windows {
		if h == handle {
			return true
		}
	}
	return false
}

func (s *Server) handleWindowSize(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.resolveWindow(chi.URLParam(r, "handle")) {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchWindow, "no such window")
		return
	}
	s.respond(w, http.StatusOK, ss.id, ss.winSize)
}

func (s *Server) handleSetWindowSize(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.resolveWindow(chi.URLParam(r, "handle")) {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchWindow, "no such window")
		return
	}
	body := readBody(r)
	ss.winSize = map[string]any{
		"width":  gjson.GetBytes(body, "width").Int(),
		"height": gjson.GetBytes(body, "height").Int(),
	}
	ss.maximized = false
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleWindowPosition(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.resolveWindow(chi.URLParam(r, "handle")) {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchWindow, "no such window")
		return
	}
	s.respond(w, http.StatusOK, ss.id, ss.winPos)
}

func (s *Server) handleSetWindowPosition(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.resolveWindow(chi.URLParam(r, "handle")) {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchWindow, "no such window")
		return
	}
	body := readBody(r)
	ss.winPos = map[string]any{
		"x": gjson.GetBytes(body, "x").Int(),
		"y": gjson.GetBytes(body, "y").Int(),
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleMaximize(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.resolveWindow(chi.URLParam(r, "handle")) {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchWindow, "no such window")
		return
	}
	ss.winSize = map[string]any{"width": 1920, "height": 1080}
	ss.maximized = true
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, ss *session) {
	ss.frame = gjson.GetBytes(readBody(r), "id").Value()
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleFrameParent(w http.ResponseWriter, r *http.Request, ss *session) {
	ss.frame = nil
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleCookies(w http.ResponseWriter, r *http.Request, ss *session) {
	cookies := ss.cookies
	if cookies == nil {
		cookies = []map[string]any{}
	}
	s.respond(w, http.StatusOK, ss.id, cookies)
}

func (s *Server) handleAddCookie(w http.ResponseWriter, r *http.Request, ss *session) {
	ck, _ := gjson.GetBytes(readBody(r), "cookie").Value().(map[string]any)
	if ck == nil {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnableToSetCookie, "cookie parameter is missing")
		return
	}
	name, _ := ck["name"].(string)
	if name == "" {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusUnableToSetCookie, "cookie has no name")
		return
	}
	for i, existing := range ss.cookies {
		if existing["name"] == name {
			ss.cookies[i] = ck
			s.respond(w, http.StatusOK, ss.id, nil)
			return
		}
	}
	ss.cookies = append(ss.cookies, ck)
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleDeleteCookies(w http.ResponseWriter, r *http.Request, ss *session) {
	ss.cookies = nil
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleDeleteCookie(w http.ResponseWriter, r *http.Request, ss *session) {
	name := chi.URLParam(r, "name")
	remaining := ss.cookies[:0]
	for _, ck := range ss.cookies {
		if ck["name"] != name {
			remaining = append(remaining, ck)
		}
	}
	ss.cookies = remaining
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleSessionKeys(w http.ResponseWriter, r *http.Request, ss *session) {
	el := ss.elementByID(ss.active)
	if el == nil {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusUnknownError, "no element has focus")
		return
	}
	el.value += joinKeys(readBody(r))
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleAlertText(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.alertOpen {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoAlertOpenError, "no alert open")
		return
	}
	s.respond(w, http.StatusOK, ss.id, ss.alert)
}

func (s *Server) handleSetAlertText(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.alertOpen {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoAlertOpenError, "no alert open")
		return
	}
	ss.promptText = gjson.GetBytes(readBody(r), "text").String()
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleAcceptAlert(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.alertOpen {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoAlertOpenError, "no alert open")
		return
	}
	ss.alertOpen = false
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request, ss *session) {
	if !ss.alertOpen {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoAlertOpenError, "no alert open")
		return
	}
	ss.alertOpen = false
	s.respond(w, http.StatusOK, ss.id, nil)
}

// handleAccepted covers the pointer and touch gesture commands, which the
// fake accepts without modelling input hardware.
func (s *Server) handleAccepted(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, nil)
}

// handleTouchOnElement covers the touch gestures addressed at an element.
func (s *Server) handleTouchOnElement(w http.ResponseWriter, r *http.Request, ss *session) {
	id := gjson.GetBytes(readBody(r), "element").String()
	if ss.elementByID(id) == nil {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusStaleElementReference, "stale element reference: "+id)
		return
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleTouchScroll(w http.ResponseWriter, r *http.Request, ss *session) {
	if id := gjson.GetBytes(readBody(r), "element"); id.Exists() {
		if ss.elementByID(id.String()) == nil {
			s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusStaleElementReference, "stale element reference: "+id.String())
			return
		}
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleIMEEngines(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.imeEngines)
}

func (s *Server) handleIMEActiveEngine(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.imeActive)
}

func (s *Server) handleIMEActivated(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.imeOn)
}

func (s *Server) handleIMEActivate(w http.ResponseWriter, r *http.Request, ss *session) {
	engine := gjson.GetBytes(readBody(r), "engine").String()
	for _, e := range ss.imeEngines {
		if e == engine {
			ss.imeActive = engine
			ss.imeOn = true
			s.respond(w, http.StatusOK, ss.id, nil)
			return
		}
	}
	s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusIMEEngineActivationFailed, "cannot activate engine: "+engine)
}

func (s *Server) handleIMEDeactivate(w http.ResponseWriter, r *http.Request, ss *session) {
	ss.imeOn = false
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.orientation)
}

func (s *Server) handleSetOrientation(w http.ResponseWriter, r *http.Request, ss *session) {
	o := gjson.GetBytes(readBody(r), "orientation").String()
	if o != "PORTRAIT" && o != "LANDSCAPE" {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "invalid orientation: "+o)
		return
	}
	ss.orientation = o
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, ss.geo)
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request, ss *session) {
	loc, _ := gjson.GetBytes(readBody(r), "location").Value().(map[string]any)
	if loc == nil {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "location parameter is missing")
		return
	}
	ss.geo = loc
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (ss *session) storageArea(kind string) map[string]string {
	if kind == "session_storage" {
		return ss.sessionStore
	}
	return ss.local
}

func (s *Server) handleStorageKeys(kind string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		area := ss.storageArea(kind)
		keys := make([]string, 0, len(area))
		for k := range area {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s.respond(w, http.StatusOK, ss.id, keys)
	}
}

func (s *Server) handleStorageSet(kind string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		body := readBody(r)
		key := gjson.GetBytes(body, "key").String()
		if key == "" {
			s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "key parameter is missing")
			return
		}
		ss.storageArea(kind)[key] = gjson.GetBytes(body, "value").String()
		s.respond(w, http.StatusOK, ss.id, nil)
	}
}

func (s *Server) handleStorageClear(kind string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		area := ss.storageArea(kind)
		for k := range area {
			delete(area, k)
		}
		s.respond(w, http.StatusOK, ss.id, nil)
	}
}

func (s *Server) handleStorageValue(kind string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		s.respond(w, http.StatusOK, ss.id, ss.storageArea(kind)[chi.URLParam(r, "key")])
	}
}

func (s *Server) handleStorageRemove(kind string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		delete(ss.storageArea(kind), chi.URLParam(r, "key"))
		s.respond(w, http.StatusOK, ss.id, nil)
	}
}

func (s *Server) handleStorageSize(kind string) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, ss *session) {
		s.respond(w, http.StatusOK, ss.id, len(ss.storageArea(kind)))
	}
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request, ss *session) {
	typ := gjson.GetBytes(readBody(r), "type").String()
	entries, ok := ss.logs[typ]
	if !ok {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusUnknownError, "unknown log type: "+typ)
		return
	}
	// Reading a buffer drains it, like real remote ends.
	ss.logs[typ] = nil
	if entries == nil {
		entries = []map[string]any{}
	}
	s.respond(w, http.StatusOK, ss.id, entries)
}

func (s *Server) handleLogTypes(w http.ResponseWriter, r *http.Request, ss *session) {
	types := make([]string, 0, len(ss.logs))
	for t := range ss.logs {
		types = append(types, t)
	}
	sort.Strings(types)
	s.respond(w, http.StatusOK, ss.id, types)
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request, ss *session) {
	s.respond(w, http.StatusOK, ss.id, 0)
}
