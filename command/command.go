// File: command/command.go

// Package command defines the static vocabulary of the JSON Wire Protocol:
// which commands each resource kind understands and which HTTP verbs each
// command accepts. The dispatcher consults these tables before any request
// is built, so a bad invocation never reaches the network.
package command

import (
	"fmt"
	"net/http"
	"sort"
)

// Verb is the HTTP method a command may be dispatched with. The JSON Wire
// Protocol only ever uses GET, POST and DELETE.
type Verb string

const (
	Get    Verb = http.MethodGet
	Post   Verb = http.MethodPost
	Delete Verb = http.MethodDelete
)

// Valid reports whether v is one of the three protocol verbs.
func (v Verb) Valid() bool {
	switch v {
	case Get, Post, Delete:
		return true
	}
	return false
}

// Spec describes a single command: its path segment relative to the owning
// resource and the verbs the remote end accepts for it. The first verb is the
// default used when a caller does not force one.
type Spec struct {
	Name  string
	Verbs []Verb
}

// Default returns the verb used when the caller supplies neither an explicit
// verb nor an argument.
func (s Spec) Default() Verb {
	return s.Verbs[0]
}

// Allows reports whether the command accepts v.
func (s Spec) Allows(v Verb) bool {
	for _, allowed := range s.Verbs {
		if allowed == v {
			return true
		}
	}
	return false
}

// Result classifies a table lookup.
type Result int

const (
	// Found means the command is live and its Spec is usable.
	Found Result = iota
	// Obsolete means the command existed in older protocol drafts but has
	// been withdrawn. Dispatching it is always an error.
	Obsolete
	// Unknown means the command was never part of this resource's table.
	Unknown
)

// Table is an immutable set of commands understood by one kind of resource.
// Tables are built once at init time and shared by every node of that kind.
type Table struct {
	live     map[string]Spec
	obsolete map[string]struct{}
}

// NewTable builds a Table from live command specs plus the names of commands
// that are recognised but withdrawn. It panics on malformed input since every
// table in this module is a package-level constant.
func NewTable(specs []Spec, obsolete ...string) *Table {
	t := &Table{
		live:     make(map[string]Spec, len(specs)),
		obsolete: make(map[string]struct{}, len(obsolete)),
	}
	for _, s := range specs {
		if s.Name == "" {
			panic("command: spec with empty name")
		}
		if len(s.Verbs) == 0 {
			panic(fmt.Sprintf("command: %q has no verbs", s.Name))
		}
		for _, v := range s.Verbs {
			if !v.Valid() {
				panic(fmt.Sprintf("command: %q lists invalid verb %q", s.Name, v))
			}
		}
		if _, dup := t.live[s.Name]; dup {
			panic(fmt.Sprintf("command: duplicate spec %q", s.Name))
		}
		t.live[s.Name] = s
	}
	for _, name := range obsolete {
		if _, clash := t.live[name]; clash {
			panic(fmt.Sprintf("command: %q is both live and obsolete", name))
		}
		t.obsolete[name] = struct{}{}
	}
	return t
}

// Lookup resolves a command name against the table. The returned Spec is only
// meaningful when the Result is Found.
func (t *Table) Lookup(name string) (Spec, Result) {
	if s, ok := t.live[name]; ok {
		return s, Found
	}
	if _, ok := t.obsolete[name]; ok {
		return Spec{}, Obsolete
	}
	return Spec{}, Unknown
}

// Len returns the number of live commands.
func (t *Table) Len() int {
	return len(t.live)
}

// Names returns the live command names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.live))
	for name := range t.live {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
