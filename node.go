// File: node.go
package jsonwire

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/selwire/jsonwire/command"
	"github.com/selwire/jsonwire/transport"
	"github.com/selwire/jsonwire/wire"
)

// Node is one addressable protocol resource: the hub root, a session, a
// window, an element, a storage area. It pairs the resource's URL with the
// command table for its kind and dispatches invocations through a shared
// transport.
//
// A Node is immutable and safe for concurrent use.
type Node struct {
	base  string
	table *command.Table
	tr    *transport.Client
	log   *zap.Logger
}

// NewNode builds a node rooted at baseURL. The table decides which commands
// the node accepts; a nil logger is replaced with a no-op one.
func NewNode(baseURL string, table *command.Table, tr *transport.Client, log *zap.Logger) *Node {
	if log == nil {
		log = zap.NewNop()
	}
	return &Node{
		base:  strings.TrimRight(baseURL, "/"),
		table: table,
		tr:    tr,
		log:   log,
	}
}

// BaseURL returns the absolute URL the node's commands are resolved against.
func (n *Node) BaseURL() string {
	return n.base
}

// Child derives a node for a sub-resource. The segment names the resource
// kind and the optional identifiers address one instance of it, so a session
// node spawns element nodes via Child(elementTable, "element", id). The child
// shares the parent's transport but keeps no reference to the parent.
func (n *Node) Child(table *command.Table, segment string, identifiers ...string) *Node {
	base := n.base + "/" + segment
	for _, id := range identifiers {
		base += "/" + url.PathEscape(id)
	}
	return &Node{base: base, table: table, tr: n.tr, log: n.log}
}

// Invoke dispatches a command by name, letting the table and the argument
// pick the verb: an argument forces POST, otherwise the command's default
// verb applies. At most one argument is accepted. The returned bytes are the
// envelope's value, still encoded.
func (n *Node) Invoke(ctx context.Context, name string, args ...any) (stdjson.RawMessage, error) {
	env, err := n.dispatch(ctx, "", name, args)
	if err != nil {
		return nil, err
	}
	return env.Value, nil
}

// InvokeVerb dispatches a command with an explicit verb, bypassing verb
// inference but not validation: the verb must still be one the command's
// table entry lists.
func (n *Node) InvokeVerb(ctx context.Context, verb command.Verb, name string, args ...any) (stdjson.RawMessage, error) {
	env, err := n.dispatch(ctx, verb, name, args)
	if err != nil {
		return nil, err
	}
	return env.Value, nil
}

// dispatch validates an invocation, builds the request and runs it. All
// validation happens before the transport is touched, so a rejected
// invocation never causes network traffic.
func (n *Node) dispatch(ctx context.Context, explicit command.Verb, name string, args []any) (*wire.Envelope, error) {
	if len(args) > 1 {
		return nil, &ArgumentCountError{Command: name, Count: len(args)}
	}

	spec, res := n.table.Lookup(name)
	switch res {
	case command.Obsolete:
		return nil, &ObsoleteCommandError{Command: name}
	case command.Unknown:
		return nil, &UnknownCommandError{Command: name}
	}

	var arg any
	hasArg := len(args) == 1
	if hasArg {
		arg = args[0]
	}

	verb := explicit
	if verb == "" {
		if hasArg {
			verb = command.Post
		} else {
			verb = spec.Default()
		}
	}
	if !spec.Allows(verb) {
		return nil, &VerbNotAllowedError{Command: name, Verb: verb, Allowed: spec.Verbs}
	}

	reqURL := n.base + "/" + name
	var body []byte
	if hasArg {
		text, scalar := scalarText(arg)
		switch {
		case verb == command.Post:
			// Scalars ride in the body keyed by the command's own name;
			// structured arguments are the body.
			payload := arg
			if scalar {
				payload = map[string]any{name: arg}
			}
			encoded, err := wire.EncodeParams(payload)
			if err != nil {
				return nil, fmt.Errorf("encode parameters for %q: %w", name, err)
			}
			body = encoded
		case scalar:
			// Bodiless verbs address a sub-path instead.
			reqURL += "/" + url.PathEscape(text)
		default:
			return nil, &ParamsNotAllowedError{Command: name, Verb: verb}
		}
	}
	if verb == command.Post && body == nil {
		encoded, err := wire.EncodeParams(nil)
		if err != nil {
			return nil, fmt.Errorf("encode parameters for %q: %w", name, err)
		}
		body = encoded
	}

	resp, err := n.tr.Do(ctx, transport.Request{Verb: verb, URL: reqURL, Body: body})
	if err != nil {
		return nil, err
	}
	env, err := wire.Decode(resp.StatusCode, resp.Body)
	if err != nil {
		n.log.Debug("command failed",
			zap.String("command", name),
			zap.String("verb", string(verb)),
			zap.Error(err),
		)
		return nil, err
	}

	n.log.Debug("command completed",
		zap.String("command", name),
		zap.String("verb", string(verb)),
		zap.String("session_id", env.SessionID),
	)
	return env, nil
}

// scalarText reports whether v is a scalar in the protocol's sense (a string
// or a number) and renders it as a path segment. Everything else, booleans
// included, counts as structured.
func scalarText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(x), true
	}
	return "", false
}
