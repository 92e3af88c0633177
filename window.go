// File: window.go
package jsonwire

import (
	"context"
)

// Window addresses one browser window by handle. The reserved handle
// "current" follows whichever window has command focus.
type Window struct {
	handle string
	node   *Node
}

// Handle returns the window's handle as given at construction.
func (w *Window) Handle() string {
	return w.handle
}

// Size returns the window's outer size.
func (w *Window) Size(ctx context.Context) (Size, error) {
	return decode[Size](w.node.Invoke(ctx, "size"))
}

// SetSize resizes the window.
func (w *Window) SetSize(ctx context.Context, sz Size) error {
	_, err := w.node.Invoke(ctx, "size", sz)
	return err
}

// Position returns the window's position on the desktop.
func (w *Window) Position(ctx context.Context) (Position, error) {
	return decode[Position](w.node.Invoke(ctx, "position"))
}

// SetPosition moves the window.
func (w *Window) SetPosition(ctx context.Context, pos Position) error {
	_, err := w.node.Invoke(ctx, "position", pos)
	return err
}

// Maximize grows the window to fill the screen.
func (w *Window) Maximize(ctx context.Context) error {
	_, err := w.node.Invoke(ctx, "maximize")
	return err
}
