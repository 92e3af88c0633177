// File: errors.go
package jsonwire

import (
	"fmt"
	"strings"

	"github.com/selwire/jsonwire/command"
)

// The errors below are raised by the dispatcher before any request is built.
// None of them ever follow a network call.

// ArgumentCountError means an invocation passed more than the single argument
// the protocol allows.
type ArgumentCountError struct {
	Command string
	Count   int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("command %q takes at most one argument, got %d", e.Command, e.Count)
}

// UnknownCommandError means the command name is not in the resource's table.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Command)
}

// ObsoleteCommandError means the command was part of an older protocol draft
// and has been withdrawn.
type ObsoleteCommandError struct {
	Command string
}

func (e *ObsoleteCommandError) Error() string {
	return fmt.Sprintf("command %q is obsolete and no longer part of the protocol", e.Command)
}

// VerbNotAllowedError means the resolved verb is not one the command accepts.
type VerbNotAllowedError struct {
	Command string
	Verb    command.Verb
	Allowed []command.Verb
}

func (e *VerbNotAllowedError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, v := range e.Allowed {
		allowed[i] = string(v)
	}
	return fmt.Sprintf("verb %s not allowed for command %q (allowed: %s)",
		e.Verb, e.Command, strings.Join(allowed, ", "))
}

// ParamsNotAllowedError means a structured argument was supplied for a verb
// that cannot carry a body.
type ParamsNotAllowedError struct {
	Command string
	Verb    command.Verb
}

func (e *ParamsNotAllowedError) Error() string {
	return fmt.Sprintf("%s %q does not take a parameter object", e.Verb, e.Command)
}
