// File: wiretest/element.go
package wiretest

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/selwire/jsonwire/wire"
)

// element is one node of the synthetic document every session starts with.
// The document is flat; element-scoped searches see the whole of it.
type element struct {
	id    string
	tag   string
	name  string
	text  string
	value string
	attrs map[string]string
	css   map[string]string

	selected  bool
	enabled   bool
	displayed bool

	x, y          int
	width, height int
}

// defaultDocument is a small page with enough variety to exercise every
// locator strategy: a heading, a text input, a link and a hidden node.
func defaultDocument() []*element {
	return []*element{
		{
			id: "el-1", tag: "h1", text: "Mock WebDriver",
			attrs:     map[string]string{"id": "heading", "class": "title"},
			css:       map[string]string{"font-size": "32px", "color": "rgb(0, 0, 0)"},
			enabled:   true,
			displayed: true,
			x:         8, y: 8, width: 400, height: 40,
		},
		{
			id: "el-2", tag: "input", name: "q",
			attrs:     map[string]string{"id": "search", "type": "text", "class": "field wide"},
			css:       map[string]string{"display": "inline-block"},
			enabled:   true,
			displayed: true,
			x:         8, y: 60, width: 320, height: 28,
		},
		{
			id: "el-3", tag: "a", text: "More information",
			attrs:     map[string]string{"id": "more", "href": "/info", "class": "nav"},
			css:       map[string]string{"color": "rgb(0, 0, 238)"},
			enabled:   true,
			displayed: true,
			x:         8, y: 100, width: 140, height: 18,
		},
		{
			id: "el-4", tag: "span", text: "hidden note",
			attrs:     map[string]string{"id": "ghost", "class": "hidden"},
			css:       map[string]string{"display": "none"},
			enabled:   true,
			displayed: false,
			x:         0, y: 0, width: 0, height: 0,
		},
	}
}

func (ss *session) elementByID(id string) *element {
	for _, el := range ss.elements {
		if el.id == id {
			return el
		}
	}
	return nil
}

func validStrategy(using string) bool {
	switch using {
	case "id", "name", "tag name", "link text", "partial link text",
		"class name", "css selector", "xpath":
		return true
	}
	return false
}

func (el *element) matches(using, value string) bool {
	switch using {
	case "id":
		return el.attrs["id"] == value
	case "name":
		return el.name == value
	case "tag name":
		return el.tag == value
	case "link text":
		return el.tag == "a" && el.text == value
	case "partial link text":
		return el.tag == "a" && strings.Contains(el.text, value)
	case "class name":
		return hasClassWord(el.attrs["class"], value)
	case "css selector":
		switch {
		case strings.HasPrefix(value, "#"):
			return el.attrs["id"] == value[1:]
		case strings.HasPrefix(value, "."):
			return hasClassWord(el.attrs["class"], value[1:])
		default:
			return el.tag == value
		}
	case "xpath":
		// Only the //tag form is understood.
		return "//"+el.tag == value
	}
	return false
}

func hasClassWord(classAttr, word string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == word {
			return true
		}
	}
	return false
}

func (ss *session) find(using, value string) []*element {
	var found []*element
	for _, el := range ss.elements {
		if el.matches(using, value) {
			found = append(found, el)
		}
	}
	return found
}

func (s *Server) handleFindElement(w http.ResponseWriter, r *http.Request, ss *session) {
	body := readBody(r)
	using := gjson.GetBytes(body, "using").String()
	value := gjson.GetBytes(body, "value").String()
	if !validStrategy(using) {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusInvalidSelector, "invalid locator strategy: "+using)
		return
	}
	found := ss.find(using, value)
	if len(found) == 0 {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchElement,
			fmt.Sprintf("no such element: %s=%q", using, value))
		return
	}
	s.respond(w, http.StatusOK, ss.id, map[string]any{"ELEMENT": found[0].id})
}

func (s *Server) handleFindElements(w http.ResponseWriter, r *http.Request, ss *session) {
	body := readBody(r)
	using := gjson.GetBytes(body, "using").String()
	value := gjson.GetBytes(body, "value").String()
	if !validStrategy(using) {
		s.respondError(w, http.StatusBadRequest, ss.id, wire.StatusInvalidSelector, "invalid locator strategy: "+using)
		return
	}
	refs := []map[string]any{}
	for _, el := range ss.find(using, value) {
		refs = append(refs, map[string]any{"ELEMENT": el.id})
	}
	s.respond(w, http.StatusOK, ss.id, refs)
}

func (s *Server) handleActiveElement(w http.ResponseWriter, r *http.Request, ss *session) {
	active := ss.elementByID(ss.active)
	if active == nil {
		// Focus defaults to the first interactive element, like a browser
		// that just loaded the page.
		for _, el := range ss.elements {
			if el.tag == "input" && el.enabled && el.displayed {
				active = el
				break
			}
		}
	}
	if active == nil {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusNoSuchElement, "no active element")
		return
	}
	ss.active = active.id
	s.respond(w, http.StatusOK, ss.id, map[string]any{"ELEMENT": active.id})
}

func (s *Server) handleElementClick(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	if !el.displayed {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusElementNotVisible,
			"element not visible: "+el.id)
		return
	}
	ss.active = el.id
	if el.tag == "a" {
		if href := el.attrs["href"]; href != "" {
			ss.navigate(href)
		}
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (ss *session) navigate(url string) {
	if len(ss.history) > 0 {
		ss.history = ss.history[:ss.histIdx+1]
	}
	ss.history = append(ss.history, url)
	ss.histIdx = len(ss.history) - 1
}

func (s *Server) handleElementSubmit(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleElementText(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.text)
}

func (s *Server) handleElementSendKeys(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	if !el.enabled {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusInvalidElementState,
			"element is disabled: "+el.id)
		return
	}
	ss.active = el.id
	el.value += joinKeys(readBody(r))
	s.respond(w, http.StatusOK, ss.id, nil)
}

// handleElementValue serves the deprecated GET form, which reports the
// element's accumulated input.
func (s *Server) handleElementValue(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.value)
}

func (s *Server) handleElementName(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.tag)
}

func (s *Server) handleElementClear(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	if !el.enabled {
		s.respondError(w, http.StatusInternalServerError, ss.id, wire.StatusInvalidElementState,
			"element is disabled: "+el.id)
		return
	}
	el.value = ""
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleElementSelected(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.selected)
}

func (s *Server) handleElementEnabled(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.enabled)
}

func (s *Server) handleElementDisplayed(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.displayed)
}

func (s *Server) handleElementAttribute(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	name := chi.URLParam(r, "name")
	if name == "value" {
		s.respond(w, http.StatusOK, ss.id, el.value)
		return
	}
	if v, ok := el.attrs[name]; ok {
		s.respond(w, http.StatusOK, ss.id, v)
		return
	}
	s.respond(w, http.StatusOK, ss.id, nil)
}

func (s *Server) handleElementCSS(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.css[chi.URLParam(r, "property")])
}

func (s *Server) handleElementEqual(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, el.id == chi.URLParam(r, "other"))
}

func (s *Server) handleElementLocation(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, map[string]any{"x": el.x, "y": el.y})
}

func (s *Server) handleElementSize(w http.ResponseWriter, r *http.Request, ss *session, el *element) {
	s.respond(w, http.StatusOK, ss.id, map[string]any{"width": el.width, "height": el.height})
}

// joinKeys flattens the protocol's key sequence parameter, an array of
// strings, into one string.
func joinKeys(body []byte) string {
	var b strings.Builder
	for _, part := range gjson.GetBytes(body, "value").Array() {
		b.WriteString(part.String())
	}
	return b.String()
}

func containsThrow(script string) bool {
	return strings.Contains(script, "throw ")
}

// documentSource renders the synthetic document as HTML for the source
// command.
func documentSource(els []*element, title string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body>")
	for _, el := range els {
		b.WriteString("<")
		b.WriteString(el.tag)
		for k, v := range el.attrs {
			fmt.Fprintf(&b, " %s=%q", k, html.EscapeString(v))
		}
		b.WriteString(">")
		b.WriteString(html.EscapeString(el.text))
		b.WriteString("</")
		b.WriteString(el.tag)
		b.WriteString(">")
	}
	b.WriteString("</body></html>")
	return b.String()
}
