package wikitext

import "strings"

// Render flattens a node list to plain text. Text nodes contribute their
// content, composite nodes the text of their children, and unexpanded macro
// nodes nothing. It is total: any input yields a string.
func Render(list NodeList) string {
	var b strings.Builder
	renderList(&b, list)
	return b.String()
}

// RenderID reduces a node list to a canonical identifier: rendered text with
// surrounding whitespace trimmed and internal runs collapsed to single
// spaces. Identifiers are lookup keys for template, module and function
// names, not display text.
func RenderID(list NodeList) string {
	return strings.Join(strings.Fields(Render(list)), " ")
}

func renderList(b *strings.Builder, list NodeList) {
	for _, n := range list {
		renderNode(b, n)
	}
}

func renderNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Text:
		b.WriteString(v.Content)
	case *Variable:
		if v.Default != nil {
			renderList(b, v.Default)
		}
	case Composite:
		renderList(b, v.Children())
	}
}
