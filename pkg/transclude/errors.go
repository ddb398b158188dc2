package transclude

import "errors"

// NotFoundError reports a template or page that does not exist.
type NotFoundError struct{ Name string }

func (e NotFoundError) Error() string { return "template not found: " + e.Name }

// ErrRecursionLimit is returned when nested template expansion exceeds the
// transcluder's depth limit. It guards against self-transcluding templates,
// which would otherwise recurse forever.
var ErrRecursionLimit = errors.New("transclusion recursion limit exceeded")

// MalformedNodeError reports a node encountered outside the container its
// variant belongs to, e.g. a bare argument or switch branch in a document
// sequence.
type MalformedNodeError struct{ Kind string }

func (e MalformedNodeError) Error() string {
	return "malformed document: unexpected " + e.Kind + " node"
}
