// File: storage.go
package jsonwire

import (
	"context"

	"github.com/selwire/jsonwire/command"
)

// Storage is an HTML5 storage area of the current page. The whole-area
// commands live in the session's URL space while per-key commands live under
// the storage node, so a Storage spans both.
type Storage struct {
	kind string
	sess *Node
	node *Node
}

// Keys lists every key in the storage area.
func (st *Storage) Keys(ctx context.Context) ([]string, error) {
	return decode[[]string](st.sess.InvokeVerb(ctx, command.Get, st.kind))
}

// Set stores a value under key, replacing any previous one.
func (st *Storage) Set(ctx context.Context, key, value string) error {
	_, err := st.sess.Invoke(ctx, st.kind, map[string]any{"key": key, "value": value})
	return err
}

// Value returns the value stored under key.
func (st *Storage) Value(ctx context.Context, key string) (string, error) {
	return decode[string](st.node.InvokeVerb(ctx, command.Get, "key", key))
}

// Remove deletes the value stored under key.
func (st *Storage) Remove(ctx context.Context, key string) error {
	_, err := st.node.InvokeVerb(ctx, command.Delete, "key", key)
	return err
}

// Clear empties the storage area.
func (st *Storage) Clear(ctx context.Context) error {
	_, err := st.sess.InvokeVerb(ctx, command.Delete, st.kind)
	return err
}

// Size returns the number of keys in the storage area.
func (st *Storage) Size(ctx context.Context) (int, error) {
	return decode[int](st.node.InvokeVerb(ctx, command.Get, "size"))
}
