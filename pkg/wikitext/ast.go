package wikitext

// Node is any AST node in a parsed wikitext document.
type Node interface {
	node()
}

// NodeList is an ordered sequence of nodes. Order is significant and is
// preserved by every transform in this module.
type NodeList []Node

// Composite is implemented by nodes that carry an ordered child list under a
// tag name. Transforms that have no rule for a node's concrete type fall back
// to this interface: expand the children, keep the tag. This keeps the
// rewrite machinery open to node types this package does not know about.
type Composite interface {
	Node
	NodeName() string
	Children() NodeList
	// WithChildren returns a node of the same tag carrying the given
	// children. The receiver is not modified.
	WithChildren(NodeList) Node
}

// Text is opaque literal text. It is never interpreted as markup.
type Text struct {
	Content string
}

func (*Text) node() {}

// Template is a transclusion call site: {{Name|pos|key=value}}.
type Template struct {
	Name      NodeList
	PosArgs   []*PosArg
	NamedArgs []*NamedArg
}

func (*Template) node() {}

// Variable is an argument reference inside a template body:
// {{{name}}} or {{{name|default}}}. A nil Default means absent.
type Variable struct {
	Name    NodeList
	Default NodeList
}

func (*Variable) node() {}

// If is the {{#if:cond|then|else}} parser function.
type If struct {
	Cond NodeList
	Then NodeList
	Else NodeList
}

func (*If) node() {}

// IfEq is the {{#ifeq:lhs|rhs|then|else}} parser function.
type IfEq struct {
	LHS  NodeList
	RHS  NodeList
	Then NodeList
	Else NodeList
}

func (*IfEq) node() {}

// IfExist is the {{#ifexist:page|then|else}} parser function.
type IfExist struct {
	Target NodeList
	Then   NodeList
	Else   NodeList
}

func (*IfExist) node() {}

// Switch is the {{#switch:value|...}} parser function.
type Switch struct {
	Value    NodeList
	Branches []*SwitchBranch
}

func (*Switch) node() {}

// SwitchBranch is one match=result arm of a Switch.
type SwitchBranch struct {
	Match  NodeList
	Result NodeList
}

func (*SwitchBranch) node() {}

// PosArg is a positional template/invoke argument.
type PosArg struct {
	Value NodeList
}

func (*PosArg) node() {}

// NamedArg is a key=value template/invoke argument.
type NamedArg struct {
	Key   NodeList
	Value NodeList
}

func (*NamedArg) node() {}

// Invoke is the {{#invoke:module|function|...}} parser function. It calls a
// function in an external scripting module and yields opaque text.
type Invoke struct {
	Module    NodeList
	Function  NodeList
	PosArgs   []*PosArg
	NamedArgs []*NamedArg
}

func (*Invoke) node() {}

// Element is any other tagged node the tokenizer produces, e.g. the
// inclusion-scoping tags <noinclude>, <includeonly> and <onlyinclude>.
// Transforms pass it through with its children rewritten.
type Element struct {
	Name string
	Body NodeList
}

func (*Element) node() {}

func (e *Element) NodeName() string   { return e.Name }
func (e *Element) Children() NodeList { return e.Body }
func (e *Element) WithChildren(children NodeList) Node {
	return &Element{Name: e.Name, Body: children}
}
