package transclude

import (
	"strconv"

	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// Variables holds one template or module call's argument bindings. Keys are
// positional ordinals ("1", "2", ...) or the identified text of named
// argument keys; values are the argument node lists, already expanded by the
// caller but never rendered. A table belongs to exactly one call: descending
// into a template body replaces the ambient table wholesale, so a callee
// never sees its caller's variables.
type Variables map[string]wikitext.NodeList

// MakeVars builds the variable table for one call. identify reduces a key
// expression to its string form (typically render plus trim). Later
// arguments overwrite earlier ones on key collision, including a named key
// spelled like a positional ordinal. MakeVars does not expand anything;
// argument values are stored verbatim.
func MakeVars(identify func(wikitext.NodeList) string, pos []*wikitext.PosArg, named []*wikitext.NamedArg) Variables {
	vars := make(Variables, len(pos)+len(named))
	for i, arg := range pos {
		vars[strconv.Itoa(i+1)] = arg.Value
	}
	for _, arg := range named {
		vars[identify(arg.Key)] = arg.Value
	}
	return vars
}
