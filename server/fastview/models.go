// fastview builds server-side views: a data model is converted to a view
// model, broadcast to one or more views, and each view turns it into element
// updates that a small script applies to the page over a websocket.
package fastview

import (
	"html/template"
)

// EleUpdate names a page element and the operations to apply to it.
type EleUpdate struct {
	EleId string
	// Op keys are attribute names, or 'textContent' to set the element's text.
	Ops []Op
}

// Op is an attribute or 'textContent' and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a view that can render its initial markup into a parent
// template and afterwards reports its changes as element updates.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse defines the view's template in the parent, inheriting its func
	// map, and returns the name it was defined under.
	Parse(*template.Template) (string, error)
}
