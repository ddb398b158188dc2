package transclude

import (
	"context"

	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// API is the capability boundary between the transcluder and the outside
// world. Implementations supply template retrieval, page existence checks,
// scripting-module invocation and rendering; the transcluder itself performs
// no I/O and no formatting of its own.
type API interface {
	// FetchTemplate returns the parsed body of the named template. Unknown
	// names fail with a NotFoundError.
	FetchTemplate(ctx context.Context, name string) (wikitext.NodeList, error)

	// PageExists reports whether the named page exists. Errors from the
	// underlying lookup propagate.
	PageExists(ctx context.Context, name string) (bool, error)

	// Invoke calls a function in an external scripting module with the
	// call's variables and returns its output as opaque text. Unknown
	// modules or functions return empty text by convention.
	Invoke(ctx context.Context, module, function string, vars Variables) (string, error)

	// Render flattens a node list to display text. Must be total.
	Render(list wikitext.NodeList) string

	// RenderID normalizes a node list to an identifier used as a lookup
	// key. Must be total. Kept separate from Render so that names can
	// normalize differently from display text.
	RenderID(list wikitext.NodeList) string
}
