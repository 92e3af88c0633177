// File: wire/status.go

// Package wire implements the response envelope of the JSON Wire Protocol:
// the {sessionId, status, value} JSON object every remote end answers with,
// the numeric status registry, and the error types a decoded envelope can
// collapse into.
package wire

import "fmt"

// Status is the numeric result code carried in every response envelope.
// Zero means success; everything else names a failure class defined by the
// protocol.
type Status int

const (
	StatusSuccess                   Status = 0
	StatusNoSuchDriver              Status = 6
	StatusNoSuchElement             Status = 7
	StatusNoSuchFrame               Status = 8
	StatusUnknownCommand            Status = 9
	StatusStaleElementReference     Status = 10
	StatusElementNotVisible         Status = 11
	StatusInvalidElementState       Status = 12
	StatusUnknownError              Status = 13
	StatusElementIsNotSelectable    Status = 15
	StatusJavaScriptError           Status = 17
	StatusXPathLookupError          Status = 19
	StatusTimeout                   Status = 21
	StatusNoSuchWindow              Status = 23
	StatusInvalidCookieDomain       Status = 24
	StatusUnableToSetCookie         Status = 25
	StatusUnexpectedAlertOpen       Status = 26
	StatusNoAlertOpenError          Status = 27
	StatusScriptTimeout             Status = 28
	StatusInvalidElementCoordinates Status = 29
	StatusIMENotAvailable           Status = 30
	StatusIMEEngineActivationFailed Status = 31
	StatusInvalidSelector           Status = 32
	StatusSessionNotCreated         Status = 33
	StatusMoveTargetOutOfBounds     Status = 34
)

var statusText = map[Status]string{
	StatusSuccess:                   "success",
	StatusNoSuchDriver:              "no such driver",
	StatusNoSuchElement:             "no such element",
	StatusNoSuchFrame:               "no such frame",
	StatusUnknownCommand:            "unknown command",
	StatusStaleElementReference:     "stale element reference",
	StatusElementNotVisible:         "element not visible",
	StatusInvalidElementState:       "invalid element state",
	StatusUnknownError:              "unknown error",
	StatusElementIsNotSelectable:    "element is not selectable",
	StatusJavaScriptError:           "javascript error",
	StatusXPathLookupError:          "xpath lookup error",
	StatusTimeout:                   "timeout",
	StatusNoSuchWindow:              "no such window",
	StatusInvalidCookieDomain:       "invalid cookie domain",
	StatusUnableToSetCookie:         "unable to set cookie",
	StatusUnexpectedAlertOpen:       "unexpected alert open",
	StatusNoAlertOpenError:          "no alert open",
	StatusScriptTimeout:             "script timeout",
	StatusInvalidElementCoordinates: "invalid element coordinates",
	StatusIMENotAvailable:           "ime not available",
	StatusIMEEngineActivationFailed: "ime engine activation failed",
	StatusInvalidSelector:           "invalid selector",
	StatusSessionNotCreated:         "session not created",
	StatusMoveTargetOutOfBounds:     "move target out of bounds",
}

// String returns the protocol's human-readable name for the status.
func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return fmt.Sprintf("unrecognised status %d", int(s))
}
