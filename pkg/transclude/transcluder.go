package transclude

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// DefaultMaxDepth bounds nested template expansion when Transcluder.MaxDepth
// is zero.
const DefaultMaxDepth = 64

// Transcluder rewrites a document tree, replacing every template call,
// variable reference and parser-function call with its expansion until no
// macro nodes remain. It holds no state across calls: each Expand is a pure
// function of its inputs plus the capability boundary's side effects, and
// failures abort the whole expansion rather than yielding a partial tree.
type Transcluder struct {
	api    API
	logger *slog.Logger

	// MaxDepth caps nested template expansion; zero means DefaultMaxDepth.
	MaxDepth int
}

// New returns a Transcluder backed by api. logger may be nil.
func New(api API, logger *slog.Logger) *Transcluder {
	return &Transcluder{api: api, logger: logger}
}

// result is one node's expansion: either a sequence spliced into the output
// in place of the node, or a single value appended as-is.
type result struct {
	splice bool
	list   wikitext.NodeList // valid when splice
	node   wikitext.Node     // valid when !splice
}

func spliced(list wikitext.NodeList) result { return result{splice: true, list: list} }
func single(n wikitext.Node) result         { return result{node: n} }

func (r result) appendTo(out wikitext.NodeList) wikitext.NodeList {
	if r.splice {
		return append(out, r.list...)
	}
	return append(out, r.node)
}

// Expand rewrites list under vars and returns the fully expanded sequence.
// vars may be nil for a top-level document. page names the document being
// expanded and is used only for logging; it may be empty.
func (t *Transcluder) Expand(ctx context.Context, list wikitext.NodeList, vars Variables, page string) (wikitext.NodeList, error) {
	if vars == nil {
		vars = Variables{}
	}
	return t.expandList(ctx, list, vars, page, 0)
}

// expandList expands a sequence strictly left to right, so externally
// visible effects (fetches, log lines) observe document order.
func (t *Transcluder) expandList(ctx context.Context, list wikitext.NodeList, vars Variables, page string, depth int) (wikitext.NodeList, error) {
	out := make(wikitext.NodeList, 0, len(list))
	for _, n := range list {
		res, err := t.expandNode(ctx, n, vars, page, depth)
		if err != nil {
			return nil, err
		}
		out = res.appendTo(out)
	}
	return out, nil
}

func (t *Transcluder) expandNode(ctx context.Context, n wikitext.Node, vars Variables, page string, depth int) (result, error) {
	switch v := n.(type) {
	case *wikitext.Text:
		return single(v), nil
	case *wikitext.Template:
		return t.expandTemplate(ctx, v, vars, page, depth)
	case *wikitext.Variable:
		return t.expandVariable(ctx, v, vars, page, depth)
	case *wikitext.If:
		return t.expandIf(ctx, v, vars, page, depth)
	case *wikitext.IfEq:
		return t.expandIfEq(ctx, v, vars, page, depth)
	case *wikitext.IfExist:
		return t.expandIfExist(ctx, v, vars, page, depth)
	case *wikitext.Switch:
		return t.expandSwitch(ctx, v, vars, page, depth)
	case *wikitext.Invoke:
		return t.expandInvoke(ctx, v, vars, page, depth)
	case *wikitext.PosArg, *wikitext.NamedArg, *wikitext.SwitchBranch:
		return result{}, MalformedNodeError{Kind: fmt.Sprintf("%T", n)}
	default:
		if c, ok := n.(wikitext.Composite); ok {
			// Pass-through: keep the tag, expand the children.
			children, err := t.expandList(ctx, c.Children(), vars, page, depth)
			if err != nil {
				return result{}, err
			}
			return single(c.WithChildren(children)), nil
		}
		return single(n), nil
	}
}

func (t *Transcluder) expandTemplate(ctx context.Context, tpl *wikitext.Template, vars Variables, page string, depth int) (result, error) {
	name, err := t.expandList(ctx, tpl.Name, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	pos, named, err := t.expandArgs(ctx, tpl.PosArgs, tpl.NamedArgs, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	id := t.identify(name)
	if t.logger != nil {
		t.logger.Debug("transcluding template", "template", id, "page", page)
	}
	if depth+1 > t.maxDepth() {
		return result{}, fmt.Errorf("transcluding %q: %w", id, ErrRecursionLimit)
	}
	body, err := t.api.FetchTemplate(ctx, id)
	if err != nil {
		return result{}, err
	}
	// Dynamic scope replacement: the callee sees only its own bindings.
	callVars := t.bind(pos, named)
	expanded, err := t.expandList(ctx, body, callVars, id, depth+1)
	if err != nil {
		return result{}, err
	}
	return spliced(FilterInclusion(expanded)), nil
}

func (t *Transcluder) expandVariable(ctx context.Context, v *wikitext.Variable, vars Variables, page string, depth int) (result, error) {
	name, err := t.expandList(ctx, v.Name, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	// Bound values were expanded when their call's table was built and are
	// spliced as-is, not re-expanded.
	if val, ok := vars[t.identify(name)]; ok {
		return spliced(val), nil
	}
	if v.Default == nil {
		return spliced(nil), nil
	}
	def, err := t.expandList(ctx, v.Default, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	return spliced(def), nil
}

func (t *Transcluder) expandIf(ctx context.Context, v *wikitext.If, vars Variables, page string, depth int) (result, error) {
	cond, err := t.expandList(ctx, v.Cond, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	then, err := t.expandList(ctx, v.Then, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	els, err := t.expandList(ctx, v.Else, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	if strings.TrimSpace(t.api.Render(cond)) != "" {
		return spliced(then), nil
	}
	return spliced(els), nil
}

func (t *Transcluder) expandIfEq(ctx context.Context, v *wikitext.IfEq, vars Variables, page string, depth int) (result, error) {
	lhs, err := t.expandList(ctx, v.LHS, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	rhs, err := t.expandList(ctx, v.RHS, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	then, err := t.expandList(ctx, v.Then, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	els, err := t.expandList(ctx, v.Else, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	if strings.TrimSpace(t.api.Render(lhs)) == strings.TrimSpace(t.api.Render(rhs)) {
		return spliced(then), nil
	}
	return spliced(els), nil
}

func (t *Transcluder) expandIfExist(ctx context.Context, v *wikitext.IfExist, vars Variables, page string, depth int) (result, error) {
	target, err := t.expandList(ctx, v.Target, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	then, err := t.expandList(ctx, v.Then, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	els, err := t.expandList(ctx, v.Else, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	exists, err := t.api.PageExists(ctx, strings.TrimSpace(t.api.Render(target)))
	if err != nil {
		return result{}, err
	}
	if exists {
		return spliced(then), nil
	}
	return spliced(els), nil
}

func (t *Transcluder) expandSwitch(ctx context.Context, v *wikitext.Switch, vars Variables, page string, depth int) (result, error) {
	value, err := t.expandList(ctx, v.Value, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	// Branches build a map in document order; a later branch with the same
	// match text wins.
	branches := make(map[string]wikitext.NodeList, len(v.Branches))
	for _, br := range v.Branches {
		match, err := t.expandList(ctx, br.Match, vars, page, depth)
		if err != nil {
			return result{}, err
		}
		res, err := t.expandList(ctx, br.Result, vars, page, depth)
		if err != nil {
			return result{}, err
		}
		branches[strings.TrimSpace(t.api.Render(match))] = res
	}
	key := strings.TrimSpace(t.api.Render(value))
	if res, ok := branches[key]; ok {
		return spliced(res), nil
	}
	if res, ok := branches["#default"]; ok {
		return spliced(res), nil
	}
	return spliced(nil), nil
}

func (t *Transcluder) expandInvoke(ctx context.Context, v *wikitext.Invoke, vars Variables, page string, depth int) (result, error) {
	module, err := t.expandList(ctx, v.Module, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	function, err := t.expandList(ctx, v.Function, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	pos, named, err := t.expandArgs(ctx, v.PosArgs, v.NamedArgs, vars, page, depth)
	if err != nil {
		return result{}, err
	}
	callVars := t.bind(pos, named)
	text, err := t.api.Invoke(ctx, t.identify(module), t.identify(function), callVars)
	if err != nil {
		return result{}, err
	}
	// Invocation output is one atomic value, never a splice: an empty
	// return still contributes one element.
	return single(&wikitext.Text{Content: text}), nil
}

// expandArgs expands argument values (and named-argument keys) in place
// order, producing fresh argument nodes for binding.
func (t *Transcluder) expandArgs(ctx context.Context, pos []*wikitext.PosArg, named []*wikitext.NamedArg, vars Variables, page string, depth int) ([]*wikitext.PosArg, []*wikitext.NamedArg, error) {
	outPos := make([]*wikitext.PosArg, len(pos))
	for i, arg := range pos {
		val, err := t.expandList(ctx, arg.Value, vars, page, depth)
		if err != nil {
			return nil, nil, err
		}
		outPos[i] = &wikitext.PosArg{Value: val}
	}
	outNamed := make([]*wikitext.NamedArg, len(named))
	for i, arg := range named {
		key, err := t.expandList(ctx, arg.Key, vars, page, depth)
		if err != nil {
			return nil, nil, err
		}
		val, err := t.expandList(ctx, arg.Value, vars, page, depth)
		if err != nil {
			return nil, nil, err
		}
		outNamed[i] = &wikitext.NamedArg{Key: key, Value: val}
	}
	return outPos, outNamed, nil
}

func (t *Transcluder) bind(pos []*wikitext.PosArg, named []*wikitext.NamedArg) Variables {
	return MakeVars(func(list wikitext.NodeList) string {
		return strings.TrimSpace(t.api.Render(list))
	}, pos, named)
}

func (t *Transcluder) identify(list wikitext.NodeList) string {
	return strings.TrimSpace(t.api.RenderID(list))
}

func (t *Transcluder) maxDepth() int {
	if t.MaxDepth > 0 {
		return t.MaxDepth
	}
	return DefaultMaxDepth
}
