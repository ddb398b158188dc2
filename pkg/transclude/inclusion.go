package transclude

import "github.com/wikimark/wikiparse/pkg/wikitext"

// FilterInclusion applies inclusion scoping to an expanded template body
// before it is spliced into the calling document: <noinclude> subtrees are
// dropped, <includeonly> wrappers are unwrapped, and if the body contains
// any <onlyinclude> elements only their contents survive.
func FilterInclusion(list wikitext.NodeList) wikitext.NodeList {
	if only := collectOnlyInclude(list); only != nil {
		return only
	}
	return stripExcluded(list)
}

// collectOnlyInclude gathers the contents of every <onlyinclude> element in
// document order, or nil if there are none.
func collectOnlyInclude(list wikitext.NodeList) wikitext.NodeList {
	var out wikitext.NodeList
	for _, n := range list {
		if el, ok := n.(*wikitext.Element); ok && el.Name == "onlyinclude" {
			out = append(out, stripExcluded(el.Body)...)
			continue
		}
		if c, ok := n.(wikitext.Composite); ok {
			out = append(out, collectOnlyInclude(c.Children())...)
		}
	}
	return out
}

func stripExcluded(list wikitext.NodeList) wikitext.NodeList {
	out := make(wikitext.NodeList, 0, len(list))
	for _, n := range list {
		if el, ok := n.(*wikitext.Element); ok {
			switch el.Name {
			case "noinclude":
				continue
			case "includeonly", "onlyinclude":
				out = append(out, stripExcluded(el.Body)...)
				continue
			}
		}
		if c, ok := n.(wikitext.Composite); ok {
			out = append(out, c.WithChildren(stripExcluded(c.Children())))
			continue
		}
		out = append(out, n)
	}
	return out
}
