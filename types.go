// File: types.go
package jsonwire

// Capabilities describes a browser configuration, both the one a caller asks
// for and the one the remote end actually granted.
type Capabilities map[string]any

// ServerStatus is the remote end's self-description from the status command.
type ServerStatus struct {
	Build struct {
		Version  string `json:"version"`
		Revision string `json:"revision"`
		Time     string `json:"time"`
	} `json:"build"`
	OS struct {
		Arch    string `json:"arch"`
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"os"`
}

// Strategy selects how the remote end locates elements.
type Strategy string

const (
	ByClassName       Strategy = "class name"
	ByCSSSelector     Strategy = "css selector"
	ByID              Strategy = "id"
	ByName            Strategy = "name"
	ByLinkText        Strategy = "link text"
	ByPartialLinkText Strategy = "partial link text"
	ByTagName         Strategy = "tag name"
	ByXPath           Strategy = "xpath"
)

// Cookie mirrors the protocol's cookie object. Expiry is seconds since the
// Unix epoch; zero means a session cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Expiry   int64  `json:"expiry,omitempty"`
}

// Size is a window or element extent in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Position is a window or element coordinate in pixels.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GeoLocation is a device position fix.
type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// LogType names a log buffer held by the remote end.
type LogType string

const (
	BrowserLog LogType = "browser"
	ClientLog  LogType = "client"
	DriverLog  LogType = "driver"
	ServerLog  LogType = "server"
)

// LogEntry is one line from a remote log buffer. Timestamp is milliseconds
// since the Unix epoch.
type LogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Orientation is the screen orientation of a mobile remote end.
type Orientation string

const (
	Portrait  Orientation = "PORTRAIT"
	Landscape Orientation = "LANDSCAPE"
)

// CacheStatus reports the application cache state.
type CacheStatus int

const (
	CacheUncached CacheStatus = iota
	CacheIdle
	CacheChecking
	CacheDownloading
	CacheUpdateReady
	CacheObsolete
)

// Button identifies a mouse button in click commands.
type Button int

const (
	LeftButton   Button = 0
	MiddleButton Button = 1
	RightButton  Button = 2
)

// TimeoutType selects which timeout the timeouts command adjusts.
type TimeoutType string

const (
	ScriptTimeout   TimeoutType = "script"
	ImplicitTimeout TimeoutType = "implicit"
	PageLoadTimeout TimeoutType = "page load"
)

// elementRef is the protocol's JSON encoding of an element handle.
type elementRef struct {
	ID string `json:"ELEMENT"`
}
