package wikitext

import (
	"bytes"
	"fmt"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk calls v.Visit on n and then on every descendant, depth-first in
// document order.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	for _, c := range childrenOf(n) {
		if err := Walk(v, c); err != nil {
			return err
		}
	}
	return nil
}

// childrenOf returns a node's children in document order. For call-like
// nodes that is name, then positional, then named arguments.
func childrenOf(n Node) NodeList {
	switch t := n.(type) {
	case *Template:
		out := append(NodeList{}, t.Name...)
		for _, a := range t.PosArgs {
			out = append(out, a)
		}
		for _, a := range t.NamedArgs {
			out = append(out, a)
		}
		return out
	case *Variable:
		return append(append(NodeList{}, t.Name...), t.Default...)
	case *If:
		return concat(t.Cond, t.Then, t.Else)
	case *IfEq:
		return concat(t.LHS, t.RHS, t.Then, t.Else)
	case *IfExist:
		return concat(t.Target, t.Then, t.Else)
	case *Switch:
		out := append(NodeList{}, t.Value...)
		for _, br := range t.Branches {
			out = append(out, br)
		}
		return out
	case *SwitchBranch:
		return concat(t.Match, t.Result)
	case *PosArg:
		return t.Value
	case *NamedArg:
		return concat(t.Key, t.Value)
	case *Invoke:
		out := concat(t.Module, t.Function)
		for _, a := range t.PosArgs {
			out = append(out, a)
		}
		for _, a := range t.NamedArgs {
			out = append(out, a)
		}
		return out
	case Composite:
		return t.Children()
	default:
		return nil
	}
}

func concat(lists ...NodeList) NodeList {
	var out NodeList
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Pretty returns a line-oriented string representation of the tree.
func Pretty(list NodeList) string {
	var buf bytes.Buffer
	for _, n := range list {
		ppNode(&buf, 0, n)
	}
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	ppList := func(label string, list NodeList) {
		if list == nil {
			return
		}
		ind()
		fmt.Fprintf(buf, " %s\n", label)
		for _, c := range list {
			ppNode(buf, indent+2, c)
		}
	}
	switch t := n.(type) {
	case *Text:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Content)
	case *Template:
		ind()
		buf.WriteString("Template\n")
		ppList("name", t.Name)
		for _, a := range t.PosArgs {
			ppList("arg", a.Value)
		}
		for _, a := range t.NamedArgs {
			ppList("key", a.Key)
			ppList("value", a.Value)
		}
	case *Variable:
		ind()
		buf.WriteString("Variable\n")
		ppList("name", t.Name)
		ppList("default", t.Default)
	case *If:
		ind()
		buf.WriteString("If\n")
		ppList("cond", t.Cond)
		ppList("then", t.Then)
		ppList("else", t.Else)
	case *IfEq:
		ind()
		buf.WriteString("IfEq\n")
		ppList("lhs", t.LHS)
		ppList("rhs", t.RHS)
		ppList("then", t.Then)
		ppList("else", t.Else)
	case *IfExist:
		ind()
		buf.WriteString("IfExist\n")
		ppList("target", t.Target)
		ppList("then", t.Then)
		ppList("else", t.Else)
	case *Switch:
		ind()
		buf.WriteString("Switch\n")
		ppList("value", t.Value)
		for _, br := range t.Branches {
			ppList("match", br.Match)
			ppList("result", br.Result)
		}
	case *Invoke:
		ind()
		buf.WriteString("Invoke\n")
		ppList("module", t.Module)
		ppList("function", t.Function)
		for _, a := range t.PosArgs {
			ppList("arg", a.Value)
		}
		for _, a := range t.NamedArgs {
			ppList("key", a.Key)
			ppList("value", a.Value)
		}
	case Composite:
		ind()
		fmt.Fprintf(buf, "Element(%s)\n", t.NodeName())
		for _, c := range t.Children() {
			ppNode(buf, indent+2, c)
		}
	default:
		ind()
		fmt.Fprintf(buf, "%T\n", n)
	}
}
