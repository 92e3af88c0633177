// File: wiretest/server.go

// Package wiretest provides an in-memory WebDriver remote end speaking the
// JSON Wire Protocol. It backs the module's own tests and the mock
// subcommand of wirectl: sessions, navigation, cookies, windows, storage and
// a small synthetic document all behave well enough to exercise a client,
// with hooks to inject protocol failures on demand.
package wiretest

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/selwire/jsonwire/wire"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is a fake remote end. It implements http.Handler, so tests mount it
// on an httptest.Server while wirectl serves it directly.
type Server struct {
	log    *zap.Logger
	router chi.Router

	mu       sync.Mutex
	sessions map[string]*session
	failures []failure
	started  time.Time
}

type failure struct {
	status  wire.Status
	message string
}

// New builds a Server with no sessions. A nil logger disables logging.
func New(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:      log,
		router:   chi.NewRouter(),
		sessions: make(map[string]*session),
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("remote end request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	s.router.ServeHTTP(w, r)
}

// FailNext queues a protocol failure: the next request, whatever it is,
// answers with the given status and message instead of executing. Queued
// failures apply in order.
func (s *Server) FailNext(status wire.Status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, message: message})
}

// PrimeAlert opens a synthetic alert dialog in the session, so alert
// commands have something to act on.
func (s *Server) PrimeAlert(sessionID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[sessionID]; ok {
		ss.alert = text
		ss.alertOpen = true
	}
}

// OpenSessions returns the ids of the sessions currently alive, sorted.
func (s *Server) OpenSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.failureMiddleware)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.respondError(w, http.StatusNotFound, "", wire.StatusUnknownCommand, "unknown command: "+req.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "", wire.StatusUnknownCommand, "invalid command method: "+req.Method+" "+req.URL.Path)
	})

	r.Get("/wd/hub/status", s.handleStatus)
	r.Post("/wd/hub/session", s.handleCreateSession)
	r.Get("/wd/hub/sessions", s.handleListSessions)
	r.Get("/wd/hub/session/{sid}", s.withSession(s.handleCapabilities))
	r.Delete("/wd/hub/session/{sid}", s.withSession(s.handleDeleteSession))

	r.Get("/wd/hub/session/{sid}/url", s.withSession(s.handleGetURL))
	r.Post("/wd/hub/session/{sid}/url", s.withSession(s.handleNavigate))
	r.Post("/wd/hub/session/{sid}/forward", s.withSession(s.handleForward))
	r.Post("/wd/hub/session/{sid}/back", s.withSession(s.handleBack))
	r.Post("/wd/hub/session/{sid}/refresh", s.withSession(s.handleRefresh))
	r.Get("/wd/hub/session/{sid}/title", s.withSession(s.handleTitle))
	r.Get("/wd/hub/session/{sid}/source", s.withSession(s.handleSource))
	r.Get("/wd/hub/session/{sid}/screenshot", s.withSession(s.handleScreenshot))
	r.Post("/wd/hub/session/{sid}/execute", s.withSession(s.handleExecute))
	r.Post("/wd/hub/session/{sid}/execute_async", s.withSession(s.handleExecute))

	r.Post("/wd/hub/session/{sid}/timeouts", s.withSession(s.handleSetTimeouts))
	r.Post("/wd/hub/session/{sid}/timeouts/async_script", s.withSession(s.handleSetScopedTimeout("script")))
	r.Post("/wd/hub/session/{sid}/timeouts/implicit_wait", s.withSession(s.handleSetScopedTimeout("implicit")))

	r.Get("/wd/hub/session/{sid}/window_handle", s.withSession(s.handleWindowHandle))
	r.Get("/wd/hub/session/{sid}/window_handles", s.withSession(s.handleWindowHandles))
	r.Post("/wd/hub/session/{sid}/window", s.withSession(s.handleSwitchWindow))
	r.Delete("/wd/hub/session/{sid}/window", s.withSession(s.handleCloseWindow))
	r.Get("/wd/hub/session/{sid}/window/{handle}/size", s.withSession(s.handleWindowSize))
	r.Post("/wd/hub/session/{sid}/window/{handle}/size", s.withSession(s.handleSetWindowSize))
	r.Get("/wd/hub/session/{sid}/window/{handle}/position", s.withSession(s.handleWindowPosition))
	r.Post("/wd/hub/session/{sid}/window/{handle}/position", s.withSession(s.handleSetWindowPosition))
	r.Post("/wd/hub/session/{sid}/window/{handle}/maximize", s.withSession(s.handleMaximize))
	r.Post("/wd/hub/session/{sid}/frame", s.withSession(s.handleFrame))
	r.Post("/wd/hub/session/{sid}/frame/parent", s.withSession(s.handleFrameParent))

	r.Get("/wd/hub/session/{sid}/cookie", s.withSession(s.handleCookies))
	r.Post("/wd/hub/session/{sid}/cookie", s.withSession(s.handleAddCookie))
	r.Delete("/wd/hub/session/{sid}/cookie", s.withSession(s.handleDeleteCookies))
	r.Delete("/wd/hub/session/{sid}/cookie/{name}", s.withSession(s.handleDeleteCookie))

	r.Post("/wd/hub/session/{sid}/element", s.withSession(s.handleFindElement))
	r.Post("/wd/hub/session/{sid}/elements", s.withSession(s.handleFindElements))
	r.Post("/wd/hub/session/{sid}/element/active", s.withSession(s.handleActiveElement))
	r.Post("/wd/hub/session/{sid}/keys", s.withSession(s.handleSessionKeys))

	r.Post("/wd/hub/session/{sid}/element/{eid}/element", s.withSession(s.handleFindElement))
	r.Post("/wd/hub/session/{sid}/element/{eid}/elements", s.withSession(s.handleFindElements))
	r.Post("/wd/hub/session/{sid}/element/{eid}/click", s.withElement(s.handleElementClick))
	r.Post("/wd/hub/session/{sid}/element/{eid}/submit", s.withElement(s.handleElementSubmit))
	r.Get("/wd/hub/session/{sid}/element/{eid}/text", s.withElement(s.handleElementText))
	r.Post("/wd/hub/session/{sid}/element/{eid}/value", s.withElement(s.handleElementSendKeys))
	r.Get("/wd/hub/session/{sid}/element/{eid}/value", s.withElement(s.handleElementValue))
	r.Get("/wd/hub/session/{sid}/element/{eid}/name", s.withElement(s.handleElementName))
	r.Post("/wd/hub/session/{sid}/element/{eid}/clear", s.withElement(s.handleElementClear))
	r.Get("/wd/hub/session/{sid}/element/{eid}/selected", s.withElement(s.handleElementSelected))
	r.Get("/wd/hub/session/{sid}/element/{eid}/enabled", s.withElement(s.handleElementEnabled))
	r.Get("/wd/hub/session/{sid}/element/{eid}/displayed", s.withElement(s.handleElementDisplayed))
	r.Get("/wd/hub/session/{sid}/element/{eid}/attribute/{name}", s.withElement(s.handleElementAttribute))
	r.Get("/wd/hub/session/{sid}/element/{eid}/css/{property}", s.withElement(s.handleElementCSS))
	r.Get("/wd/hub/session/{sid}/element/{eid}/equal/{other}", s.withElement(s.handleElementEqual))
	r.Get("/wd/hub/session/{sid}/element/{eid}/location", s.withElement(s.handleElementLocation))
	r.Get("/wd/hub/session/{sid}/element/{eid}/location_in_view", s.withElement(s.handleElementLocation))
	r.Get("/wd/hub/session/{sid}/element/{eid}/size", s.withElement(s.handleElementSize))

	r.Get("/wd/hub/session/{sid}/alert_text", s.withSession(s.handleAlertText))
	r.Post("/wd/hub/session/{sid}/alert_text", s.withSession(s.handleSetAlertText))
	r.Post("/wd/hub/session/{sid}/accept_alert", s.withSession(s.handleAcceptAlert))
	r.Post("/wd/hub/session/{sid}/dismiss_alert", s.withSession(s.handleDismissAlert))

	r.Post("/wd/hub/session/{sid}/moveto", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/click", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/buttondown", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/buttonup", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/doubleclick", s.withSession(s.handleAccepted))

	r.Post("/wd/hub/session/{sid}/touch/click", s.withSession(s.handleTouchOnElement))
	r.Post("/wd/hub/session/{sid}/touch/doubleclick", s.withSession(s.handleTouchOnElement))
	r.Post("/wd/hub/session/{sid}/touch/longclick", s.withSession(s.handleTouchOnElement))
	r.Post("/wd/hub/session/{sid}/touch/down", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/touch/up", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/touch/move", s.withSession(s.handleAccepted))
	r.Post("/wd/hub/session/{sid}/touch/scroll", s.withSession(s.handleTouchScroll))
	r.Post("/wd/hub/session/{sid}/touch/flick", s.withSession(s.handleAccepted))

	r.Get("/wd/hub/session/{sid}/ime/available_engines", s.withSession(s.handleIMEEngines))
	r.Get("/wd/hub/session/{sid}/ime/active_engine", s.withSession(s.handleIMEActiveEngine))
	r.Get("/wd/hub/session/{sid}/ime/activated", s.withSession(s.handleIMEActivated))
	r.Post("/wd/hub/session/{sid}/ime/activate", s.withSession(s.handleIMEActivate))
	r.Post("/wd/hub/session/{sid}/ime/deactivate", s.withSession(s.handleIMEDeactivate))

	r.Get("/wd/hub/session/{sid}/orientation", s.withSession(s.handleOrientation))
	r.Post("/wd/hub/session/{sid}/orientation", s.withSession(s.handleSetOrientation))
	r.Get("/wd/hub/session/{sid}/location", s.withSession(s.handleLocation))
	r.Post("/wd/hub/session/{sid}/location", s.withSession(s.handleSetLocation))

	for _, kind := range []string{"local_storage", "session_storage"} {
		r.Get("/wd/hub/session/{sid}/"+kind, s.withSession(s.handleStorageKeys(kind)))
		r.Post("/wd/hub/session/{sid}/"+kind, s.withSession(s.handleStorageSet(kind)))
		r.Delete("/wd/hub/session/{sid}/"+kind, s.withSession(s.handleStorageClear(kind)))
		r.Get("/wd/hub/session/{sid}/"+kind+"/key/{key}", s.withSession(s.handleStorageValue(kind)))
		r.Delete("/wd/hub/session/{sid}/"+kind+"/key/{key}", s.withSession(s.handleStorageRemove(kind)))
		r.Get("/wd/hub/session/{sid}/"+kind+"/size", s.withSession(s.handleStorageSize(kind)))
	}

	r.Post("/wd/hub/session/{sid}/log", s.withSession(s.handleLog))
	r.Get("/wd/hub/session/{sid}/log/types", s.withSession(s.handleLogTypes))
	r.Get("/wd/hub/session/{sid}/application_cache/status", s.withSession(s.handleCacheStatus))
}

// failureMiddleware serves queued failures before any handler runs.
func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			s.respondError(w, http.StatusInternalServerError, "", f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withSession resolves the session path parameter, holding the server lock
// for the duration of the handler.
func (s *Server) withSession(h func(w http.ResponseWriter, r *http.Request, ss *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sid")
		s.mu.Lock()
		ss, ok := s.sessions[sid]
		if !ok {
			s.mu.Unlock()
			s.respondError(w, http.StatusNotFound, sid, wire.StatusNoSuchDriver, "no such session: "+sid)
			return
		}
		defer s.mu.Unlock()
		h(w, r, ss)
	}
}

// withElement additionally resolves the element path parameter.
func (s *Server) withElement(h func(w http.ResponseWriter, r *http.Request, ss *session, el *element)) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, ss *session) {
		eid := chi.URLParam(r, "eid")
		el := ss.elementByID(eid)
		if el == nil {
			s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusStaleElementReference, "stale element reference: "+eid)
			return
		}
		h(w, r, ss, el)
	})
}

func (s *Server) respond(w http.ResponseWriter, httpStatus int, sessionID string, value any) {
	s.writeEnvelope(w, httpStatus, sessionID, wire.StatusSuccess, value)
}

func (s *Server) respondError(w http.ResponseWriter, httpStatus int, sessionID string, status wire.Status, message string) {
	s.writeEnvelope(w, httpStatus, sessionID, status, map[string]any{"message": message})
}

func (s *Server) writeEnvelope(w http.ResponseWriter, httpStatus int, sessionID string, status wire.Status, value any) {
	var sid any
	if sessionID != "" {
		sid = sessionID
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"sessionId": sid,
		"status":    int(status),
		"value":     value,
	}); err != nil {
		s.log.Warn("failed to write envelope", zap.Error(err))
	}
}

func (s *Server) newSessionID() string {
	return uuid.NewString()
}
