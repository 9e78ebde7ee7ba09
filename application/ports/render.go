package ports

import "context"

// Renderer hands diagram source to the external layout engine.
// A rejection carries the engine's own message; the caller keeps the source.
type Renderer interface {
	Render(ctx context.Context, source string) (Markup, error)
}

// Markup is the opaque document returned by the engine.
type Markup interface {
	// ElementByID returns the first element carrying exactly this id
	ElementByID(id string) (Element, bool)

	// IDs lists every element id in document order
	IDs() []string

	// String serializes the document including any class changes
	String() string
}

// Element is one addressable node of a Markup document.
type Element interface {
	ID() string
	HasClass(class string) bool
	AddClass(class string)
	RemoveClass(class string)
}

// ElementResolver finds the element that represents a render-id.
// A miss is reported as false, never as an error.
type ElementResolver interface {
	Resolve(doc Markup, renderID string) (Element, bool)
}
