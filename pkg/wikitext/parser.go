package wikitext

import (
	"fmt"
	"strings"
)

// inclusionTags are the XML-ish tags controlling which parts of a page are
// visible when transcluded versus on the page itself. They parse into
// generic Elements; the transclusion filter gives them meaning.
var inclusionTags = []string{"noinclude", "includeonly", "onlyinclude"}

// Parse parses wikitext template markup into a NodeList. It recognizes
// template calls {{Name|...}}, variable references {{{name|default}}}, the
// parser functions #if, #ifeq, #ifexist, #switch and #invoke, and the
// inclusion-scoping tags. Everything else is literal text.
func Parse(src string) (NodeList, error) {
	p := &parser{s: newScanner([]byte(src))}
	nodes, stop, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if stop != "" {
		return nil, fmt.Errorf("unexpected %q at top level", stop)
	}
	return nodes, nil
}

type parser struct {
	s *scanner
}

// parseNodes parses until one of the stop strings is consumed, or EOF if
// stops is empty. It returns the consumed stop, or "" on EOF.
func (p *parser) parseNodes(stops []string) (NodeList, string, error) {
	var nodes NodeList
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, &Text{Content: text.String()})
			text.Reset()
		}
	}
	for {
		if p.s.eof() {
			flush()
			return nodes, "", nil
		}
		for _, stop := range stops {
			if p.s.match(stop) {
				flush()
				return nodes, stop, nil
			}
		}
		switch {
		case p.s.startsWith("{{{"):
			flush()
			n, err := p.parseVariable()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		case p.s.startsWith("{{"):
			flush()
			n, err := p.parseBraces()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		case p.s.startsWith("<"):
			if name, ok := p.matchOpenTag(); ok {
				flush()
				n, err := p.parseElement(name)
				if err != nil {
					return nil, "", err
				}
				nodes = append(nodes, n)
			} else {
				text.WriteByte(p.s.next())
			}
		default:
			text.WriteByte(p.s.next())
		}
	}
}

func (p *parser) parseVariable() (Node, error) {
	p.s.match("{{{")
	name, stop, err := p.parseNodes([]string{"}}}", "|"})
	if err != nil {
		return nil, err
	}
	switch stop {
	case "}}}":
		return &Variable{Name: name}, nil
	case "|":
		def, stop, err := p.parseNodes([]string{"}}}"})
		if err != nil {
			return nil, err
		}
		if stop == "" {
			return nil, fmt.Errorf("unterminated variable {{{ ... }}}")
		}
		// An absent default and an empty default differ; |}}} binds an
		// explicit empty default.
		if def == nil {
			def = NodeList{}
		}
		return &Variable{Name: name, Default: def}, nil
	default:
		return nil, fmt.Errorf("unterminated variable {{{ ... }}}")
	}
}

func (p *parser) parseBraces() (Node, error) {
	p.s.match("{{")
	if p.s.match("#") {
		name := p.s.scanWhile(isAlpha)
		if !p.s.match(":") {
			return nil, fmt.Errorf("parser function #%s: expected ':'", name)
		}
		return p.parseFunction(name)
	}
	return p.parseTemplate()
}

func (p *parser) parseTemplate() (Node, error) {
	name, stop, err := p.parseNodes([]string{"}}", "|"})
	if err != nil {
		return nil, err
	}
	tpl := &Template{Name: name}
	if stop == "|" {
		tpl.PosArgs, tpl.NamedArgs, err = p.parseArgs()
		if err != nil {
			return nil, err
		}
	} else if stop != "}}" {
		return nil, fmt.Errorf("unterminated template {{ ... }}")
	}
	return tpl, nil
}

// parseArgs parses a |-separated argument list up to the closing "}}". A
// top-level "=" in an argument makes it named; nested structures keep their
// own delimiters.
func (p *parser) parseArgs() ([]*PosArg, []*NamedArg, error) {
	var pos []*PosArg
	var named []*NamedArg
	for {
		part, stop, err := p.parseNodes([]string{"}}", "|", "="})
		if err != nil {
			return nil, nil, err
		}
		if stop == "=" {
			value, valStop, err := p.parseNodes([]string{"}}", "|"})
			if err != nil {
				return nil, nil, err
			}
			named = append(named, &NamedArg{Key: part, Value: value})
			stop = valStop
		} else {
			pos = append(pos, &PosArg{Value: part})
		}
		switch stop {
		case "}}":
			return pos, named, nil
		case "|":
			continue
		default:
			return nil, nil, fmt.Errorf("unterminated argument list")
		}
	}
}

func (p *parser) parseFunction(name string) (Node, error) {
	switch name {
	case "if":
		parts, err := p.parsePlainParts()
		if err != nil {
			return nil, err
		}
		return &If{Cond: partAt(parts, 0), Then: partAt(parts, 1), Else: partAt(parts, 2)}, nil
	case "ifeq":
		parts, err := p.parsePlainParts()
		if err != nil {
			return nil, err
		}
		return &IfEq{LHS: partAt(parts, 0), RHS: partAt(parts, 1), Then: partAt(parts, 2), Else: partAt(parts, 3)}, nil
	case "ifexist":
		parts, err := p.parsePlainParts()
		if err != nil {
			return nil, err
		}
		return &IfExist{Target: partAt(parts, 0), Then: partAt(parts, 1), Else: partAt(parts, 2)}, nil
	case "switch":
		return p.parseSwitch()
	case "invoke":
		return p.parseInvoke()
	default:
		return nil, fmt.Errorf("unsupported parser function: #%s", name)
	}
}

// parsePlainParts parses |-separated parts up to "}}" without treating "="
// specially.
func (p *parser) parsePlainParts() ([]NodeList, error) {
	var parts []NodeList
	for {
		part, stop, err := p.parseNodes([]string{"}}", "|"})
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		switch stop {
		case "}}":
			return parts, nil
		case "|":
			continue
		default:
			return nil, fmt.Errorf("unterminated parser function")
		}
	}
}

func (p *parser) parseSwitch() (Node, error) {
	value, stop, err := p.parseNodes([]string{"}}", "|"})
	if err != nil {
		return nil, err
	}
	sw := &Switch{Value: value}
	for stop == "|" {
		match, matchStop, err := p.parseNodes([]string{"}}", "|", "="})
		if err != nil {
			return nil, err
		}
		switch matchStop {
		case "=":
			result, resultStop, err := p.parseNodes([]string{"}}", "|"})
			if err != nil {
				return nil, err
			}
			sw.Branches = append(sw.Branches, &SwitchBranch{Match: match, Result: result})
			stop = resultStop
		case "}}", "|":
			// A bare trailing part is the default result; a bare part in
			// the middle matches with an empty result.
			if matchStop == "}}" && len(match) > 0 {
				sw.Branches = append(sw.Branches, &SwitchBranch{
					Match:  NodeList{&Text{Content: "#default"}},
					Result: match,
				})
			} else if len(match) > 0 {
				sw.Branches = append(sw.Branches, &SwitchBranch{Match: match})
			}
			stop = matchStop
		default:
			return nil, fmt.Errorf("unterminated #switch")
		}
	}
	if stop != "}}" {
		return nil, fmt.Errorf("unterminated #switch")
	}
	return sw, nil
}

func (p *parser) parseInvoke() (Node, error) {
	module, stop, err := p.parseNodes([]string{"}}", "|"})
	if err != nil {
		return nil, err
	}
	inv := &Invoke{Module: module}
	if stop == "|" {
		inv.Function, stop, err = p.parseNodes([]string{"}}", "|"})
		if err != nil {
			return nil, err
		}
	}
	if stop == "|" {
		inv.PosArgs, inv.NamedArgs, err = p.parseArgs()
		if err != nil {
			return nil, err
		}
	} else if stop != "}}" {
		return nil, fmt.Errorf("unterminated #invoke")
	}
	return inv, nil
}

func (p *parser) matchOpenTag() (string, bool) {
	for _, name := range inclusionTags {
		if p.s.match("<" + name + ">") {
			return name, true
		}
	}
	return "", false
}

func (p *parser) parseElement(name string) (Node, error) {
	body, stop, err := p.parseNodes([]string{"</" + name + ">"})
	if err != nil {
		return nil, err
	}
	if stop == "" {
		return nil, fmt.Errorf("unterminated <%s>", name)
	}
	return &Element{Name: name, Body: body}, nil
}

func partAt(parts []NodeList, i int) NodeList {
	if i < len(parts) {
		return parts[i]
	}
	return nil
}
