// File: command/tables.go
package command

// The tables below transcribe the JSON Wire Protocol command vocabulary.
// Command names are path segments relative to the owning resource; a name may
// contain slashes when the protocol nests commands (ime/*, touch/*, log/*).
// The first verb of each entry is the default for argument-less invocations.

var serverTable = NewTable([]Spec{
	{Name: "status", Verbs: []Verb{Get}},
	{Name: "session", Verbs: []Verb{Post, Get, Delete}},
	{Name: "sessions", Verbs: []Verb{Get}},
})

var sessionTable = NewTable([]Spec{
	{Name: "url", Verbs: []Verb{Get, Post}},
	{Name: "forward", Verbs: []Verb{Post}},
	{Name: "back", Verbs: []Verb{Post}},
	{Name: "refresh", Verbs: []Verb{Post}},
	{Name: "title", Verbs: []Verb{Get}},
	{Name: "source", Verbs: []Verb{Get}},
	{Name: "screenshot", Verbs: []Verb{Get}},

	{Name: "execute", Verbs: []Verb{Post}},
	{Name: "execute_async", Verbs: []Verb{Post}},

	{Name: "timeouts", Verbs: []Verb{Post}},
	{Name: "timeouts/async_script", Verbs: []Verb{Post}},
	{Name: "timeouts/implicit_wait", Verbs: []Verb{Post}},

	{Name: "window", Verbs: []Verb{Post, Delete}},
	{Name: "window_handle", Verbs: []Verb{Get}},
	{Name: "window_handles", Verbs: []Verb{Get}},
	{Name: "frame", Verbs: []Verb{Post}},
	{Name: "frame/parent", Verbs: []Verb{Post}},

	{Name: "cookie", Verbs: []Verb{Get, Post, Delete}},

	{Name: "element", Verbs: []Verb{Post}},
	{Name: "elements", Verbs: []Verb{Post}},
	{Name: "element/active", Verbs: []Verb{Post}},
	{Name: "keys", Verbs: []Verb{Post}},

	{Name: "alert_text", Verbs: []Verb{Get, Post}},
	{Name: "accept_alert", Verbs: []Verb{Post}},
	{Name: "dismiss_alert", Verbs: []Verb{Post}},

	{Name: "moveto", Verbs: []Verb{Post}},
	{Name: "click", Verbs: []Verb{Post}},
	{Name: "buttondown", Verbs: []Verb{Post}},
	{Name: "buttonup", Verbs: []Verb{Post}},
	{Name: "doubleclick", Verbs: []Verb{Post}},

	{Name: "touch/click", Verbs: []Verb{Post}},
	{Name: "touch/down", Verbs: []Verb{Post}},
	{Name: "touch/up", Verbs: []Verb{Post}},
	{Name: "touch/move", Verbs: []Verb{Post}},
	{Name: "touch/scroll", Verbs: []Verb{Post}},
	{Name: "touch/doubleclick", Verbs: []Verb{Post}},
	{Name: "touch/longclick", Verbs: []Verb{Post}},
	{Name: "touch/flick", Verbs: []Verb{Post}},

	{Name: "orientation", Verbs: []Verb{Get, Post}},
	{Name: "location", Verbs: []Verb{Get, Post}},

	{Name: "local_storage", Verbs: []Verb{Get, Post, Delete}},
	{Name: "local_storage/key", Verbs: []Verb{Get, Delete}},
	{Name: "local_storage/size", Verbs: []Verb{Get}},
	{Name: "session_storage", Verbs: []Verb{Get, Post, Delete}},
	{Name: "session_storage/key", Verbs: []Verb{Get, Delete}},
	{Name: "session_storage/size", Verbs: []Verb{Get}},

	{Name: "ime/available_engines", Verbs: []Verb{Get}},
	{Name: "ime/active_engine", Verbs: []Verb{Get}},
	{Name: "ime/activated", Verbs: []Verb{Get}},
	{Name: "ime/activate", Verbs: []Verb{Post}},
	{Name: "ime/deactivate", Verbs: []Verb{Post}},

	{Name: "log", Verbs: []Verb{Post}},
	{Name: "log/types", Verbs: []Verb{Get}},

	{Name: "application_cache/status", Verbs: []Verb{Get}},
},
	// Withdrawn by later protocol drafts but still recognised so that callers
	// get a precise error instead of a generic unknown-command one.
	"speed", "visible", "modifier",
)

var windowTable = NewTable([]Spec{
	{Name: "size", Verbs: []Verb{Get, Post}},
	{Name: "position", Verbs: []Verb{Get, Post}},
	{Name: "maximize", Verbs: []Verb{Post}},
})

var elementTable = NewTable([]Spec{
	{Name: "element", Verbs: []Verb{Post}},
	{Name: "elements", Verbs: []Verb{Post}},
	{Name: "click", Verbs: []Verb{Post}},
	{Name: "submit", Verbs: []Verb{Post}},
	{Name: "text", Verbs: []Verb{Get}},
	{Name: "value", Verbs: []Verb{Post, Get}},
	{Name: "name", Verbs: []Verb{Get}},
	{Name: "clear", Verbs: []Verb{Post}},
	{Name: "selected", Verbs: []Verb{Get}},
	{Name: "enabled", Verbs: []Verb{Get}},
	{Name: "attribute", Verbs: []Verb{Get}},
	{Name: "equal", Verbs: []Verb{Get}},
	{Name: "displayed", Verbs: []Verb{Get}},
	{Name: "location", Verbs: []Verb{Get}},
	{Name: "location_in_view", Verbs: []Verb{Get}},
	{Name: "size", Verbs: []Verb{Get}},
	{Name: "css", Verbs: []Verb{Get}},
},
	"toggle", "hover", "select", "drag",
)

var storageTable = NewTable([]Spec{
	{Name: "key", Verbs: []Verb{Get, Delete}},
	{Name: "size", Verbs: []Verb{Get}},
})

// Server returns the table for the hub root (status, session creation).
func Server() *Table { return serverTable }

// Session returns the table for a live browser session.
func Session() *Table { return sessionTable }

// Window returns the table for an addressed browser window.
func Window() *Table { return windowTable }

// Element returns the table for a located page element.
func Element() *Table { return elementTable }

// Storage returns the table for a local or session storage area.
func Storage() *Table { return storageTable }
