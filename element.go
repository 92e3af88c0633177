// File: element.go
package jsonwire

import (
	"context"

	"github.com/selwire/jsonwire/command"
)

// Element is a handle to a DOM node the remote end located. Handles go stale
// when the document changes; commands on a stale handle come back as a
// stale element reference status error.
type Element struct {
	id   string
	node *Node
	sess *Node
}

// ID returns the remote end's opaque identifier for the element.
func (e *Element) ID() string {
	return e.id
}

// MarshalJSON encodes the element as a protocol handle, so elements can be
// passed straight into Execute argument lists.
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(elementRef{ID: e.id})
}

// FindElement locates the first descendant matching the strategy.
func (e *Element) FindElement(ctx context.Context, by Strategy, value string) (*Element, error) {
	ref, err := decode[elementRef](e.node.Invoke(ctx, "element", locator(by, value)))
	if err != nil {
		return nil, err
	}
	return e.sibling(ref.ID), nil
}

// FindElements locates every descendant matching the strategy.
func (e *Element) FindElements(ctx context.Context, by Strategy, value string) ([]*Element, error) {
	refs, err := decode[[]elementRef](e.node.Invoke(ctx, "elements", locator(by, value)))
	if err != nil {
		return nil, err
	}
	els := make([]*Element, len(refs))
	for i, ref := range refs {
		els[i] = e.sibling(ref.ID)
	}
	return els, nil
}

// sibling builds a handle addressed under the owning session, which is where
// all element URLs live regardless of how the element was found.
func (e *Element) sibling(id string) *Element {
	return &Element{
		id:   id,
		node: e.sess.Child(command.Element(), "element", id),
		sess: e.sess,
	}
}

// Click clicks the element's centre point.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.node.Invoke(ctx, "click")
	return err
}

// Submit submits the form the element belongs to.
func (e *Element) Submit(ctx context.Context) error {
	_, err := e.node.Invoke(ctx, "submit")
	return err
}

// Text returns the element's visible text.
func (e *Element) Text(ctx context.Context) (string, error) {
	return decode[string](e.node.Invoke(ctx, "text"))
}

// SendKeys types a key sequence into the element.
func (e *Element) SendKeys(ctx context.Context, sequence string) error {
	_, err := e.node.Invoke(ctx, "value", map[string]any{"value": []string{sequence}})
	return err
}

// TagName returns the element's tag name, lowercased by the remote end.
func (e *Element) TagName(ctx context.Context) (string, error) {
	return decode[string](e.node.Invoke(ctx, "name"))
}

// Clear empties a text input or textarea.
func (e *Element) Clear(ctx context.Context) error {
	_, err := e.node.Invoke(ctx, "clear")
	return err
}

// Selected reports whether an option, checkbox or radio button is selected.
func (e *Element) Selected(ctx context.Context) (bool, error) {
	return decode[bool](e.node.Invoke(ctx, "selected"))
}

// Enabled reports whether the element accepts interaction.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return decode[bool](e.node.Invoke(ctx, "enabled"))
}

// Displayed reports whether the element is visible on the page.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	return decode[bool](e.node.Invoke(ctx, "displayed"))
}

// Attribute returns the value of the named attribute, or "" when the
// attribute is unset.
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	return decode[string](e.node.InvokeVerb(ctx, command.Get, "attribute", name))
}

// CSS returns the computed value of the named CSS property.
func (e *Element) CSS(ctx context.Context, property string) (string, error) {
	return decode[string](e.node.InvokeVerb(ctx, command.Get, "css", property))
}

// Equal reports whether two handles address the same DOM node.
func (e *Element) Equal(ctx context.Context, other *Element) (bool, error) {
	return decode[bool](e.node.InvokeVerb(ctx, command.Get, "equal", other.id))
}

// Location returns the element's position in the page.
func (e *Element) Location(ctx context.Context) (Position, error) {
	return decode[Position](e.node.Invoke(ctx, "location"))
}

// LocationInView returns the element's position after scrolling it into view.
func (e *Element) LocationInView(ctx context.Context) (Position, error) {
	return decode[Position](e.node.Invoke(ctx, "location_in_view"))
}

// Size returns the element's rendered extent.
func (e *Element) Size(ctx context.Context) (Size, error) {
	return decode[Size](e.node.Invoke(ctx, "size"))
}
