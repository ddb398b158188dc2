package transclude

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// fakeAPI backs the transcluder with an in-memory template set.
type fakeAPI struct {
	templates map[string]string
	fetched   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{templates: map[string]string{
		"foo":      "foo",
		"nested":   "{{foo}}",
		"with-var": "{{{1}}}",
		"greet":    "hello {{{who|there}}}",
		"multi":    "{{{1|a{{foo}}b}}}",
		"inner":    "{{{x|unset}}}",
		"outer":    "{{inner}}",
		"doc":      "use<noinclude>docs only</noinclude>",
		"loop":     "{{loop}}",
	}}
}

func (a *fakeAPI) FetchTemplate(ctx context.Context, name string) (wikitext.NodeList, error) {
	a.fetched = append(a.fetched, name)
	src, ok := a.templates[name]
	if !ok {
		return nil, NotFoundError{Name: name}
	}
	return wikitext.Parse(src)
}

func (a *fakeAPI) PageExists(ctx context.Context, name string) (bool, error) {
	_, ok := a.templates[name]
	return ok, nil
}

func (a *fakeAPI) Invoke(ctx context.Context, module, function string, vars Variables) (string, error) {
	if module == "foo" && function == "bar" {
		return "baz", nil
	}
	if module == "bar" {
		switch function {
		case "foo":
			return a.Render(vars["foo"]), nil
		case "baz":
			return a.Render(vars["baz"]), nil
		}
	}
	return "", nil
}

func (a *fakeAPI) Render(list wikitext.NodeList) string   { return wikitext.Render(list) }
func (a *fakeAPI) RenderID(list wikitext.NodeList) string { return wikitext.RenderID(list) }

func expandSource(t *testing.T, src string) (wikitext.NodeList, error) {
	t.Helper()
	ast, err := wikitext.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return New(newFakeAPI(), nil).Expand(context.Background(), ast, nil, "")
}

func mustExpand(t *testing.T, src string) wikitext.NodeList {
	t.Helper()
	out, err := expandSource(t, src)
	if err != nil {
		t.Fatalf("expand %q: %v", src, err)
	}
	return out
}

func texts(contents ...string) wikitext.NodeList {
	out := make(wikitext.NodeList, len(contents))
	for i, c := range contents {
		out[i] = &wikitext.Text{Content: c}
	}
	return out
}

func TestIdentity(t *testing.T) {
	ast := texts("foo", "bar")
	out, err := New(newFakeAPI(), nil).Expand(context.Background(), ast, nil, "")
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	if !reflect.DeepEqual(out, ast) {
		t.Fatalf("got %#v, want %#v", out, ast)
	}
	if out[0] != ast[0] || out[1] != ast[1] {
		t.Fatalf("elements were copied, want them unchanged")
	}
}

func TestSimpleTemplate(t *testing.T) {
	got := mustExpand(t, "foo{{foo}}")
	if !reflect.DeepEqual(got, texts("foo", "foo")) {
		t.Fatalf("got %#v", got)
	}
}

func TestTemplateWithVar(t *testing.T) {
	got := mustExpand(t, "{{with-var|foo}}")
	if !reflect.DeepEqual(got, texts("foo")) {
		t.Fatalf("got %#v", got)
	}
}

func TestNestedTemplate(t *testing.T) {
	got := mustExpand(t, "{{nested}}")
	if !reflect.DeepEqual(got, texts("foo")) {
		t.Fatalf("got %#v", got)
	}
}

func TestNamedArg(t *testing.T) {
	got := mustExpand(t, "{{greet|who=world}}")
	if wikitext.Render(got) != "hello world" {
		t.Fatalf("got %q", wikitext.Render(got))
	}
	got = mustExpand(t, "{{greet}}")
	if wikitext.Render(got) != "hello there" {
		t.Fatalf("default: got %q", wikitext.Render(got))
	}
}

func TestVariableDefaultSplicesManyNodes(t *testing.T) {
	got := mustExpand(t, "{{multi}}")
	if !reflect.DeepEqual(got, texts("a", "foo", "b")) {
		t.Fatalf("got %#v", got)
	}
}

func TestEvaluateIf(t *testing.T) {
	cases := []struct {
		src  string
		want wikitext.NodeList
	}{
		{"{{#if:foo|true|false}}", texts("true")},
		{"{{#if:|true|false}}", texts("false")},
		{"{{#if: |true|false}}", texts("false")},
	}
	for _, tc := range cases {
		if got := mustExpand(t, tc.src); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.src, got, tc.want)
		}
	}
}

func TestEvaluateIfEq(t *testing.T) {
	cases := []struct {
		src  string
		want wikitext.NodeList
	}{
		{"{{#ifeq:lhs|rhs|true|false}}", texts("false")},
		{"{{#ifeq:val|val|true|false}}", texts("true")},
		{"{{#ifeq:val | val|true|false}}", texts("true")},
		{"{{#ifeq:|val|true|false}}", texts("false")},
	}
	for _, tc := range cases {
		if got := mustExpand(t, tc.src); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.src, got, tc.want)
		}
	}
}

func TestEvaluateIfExist(t *testing.T) {
	if got := mustExpand(t, "{{#ifexist:foo|true|false}}"); !reflect.DeepEqual(got, texts("true")) {
		t.Fatalf("got %#v", got)
	}
	if got := mustExpand(t, "{{#ifexist:nonexistent|true|false}}"); !reflect.DeepEqual(got, texts("false")) {
		t.Fatalf("got %#v", got)
	}
}

func TestEvaluateSwitch(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"{{#switch:b|a=1|b=2|c=3}}", "2"},
		{"{{#switch:x|a=1|#default=d}}", "d"},
		{"{{#switch: b |a=1|b=2}}", "2"},
		{"{{#switch:a|a=1|a=2}}", "2"}, // later duplicate wins
		{"{{#switch:x|a=1|fallback}}", "fallback"},
	}
	for _, tc := range cases {
		got := mustExpand(t, tc.src)
		if wikitext.Render(got) != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.src, wikitext.Render(got), tc.want)
		}
	}
	if got := mustExpand(t, "{{#switch:x|a=1|b=2}}"); len(got) != 0 {
		t.Fatalf("no match, no default: got %#v, want empty", got)
	}
}

func TestEvaluateInvoke(t *testing.T) {
	cases := []struct {
		src  string
		want wikitext.NodeList
	}{
		{"{{#invoke:foo|bar}}", texts("baz")},
		{"{{#invoke:bar|foo|foo=42}}", texts("42")},
		{"{{#invoke:bar|baz|baz=43}}", texts("43")},
		{"{{#invoke:foo|boz}}", texts("")},
		{"{{#invoke:bonk|blorgh}}", texts("")},
	}
	for _, tc := range cases {
		got := mustExpand(t, tc.src)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.src, got, tc.want)
		}
	}
}

// Invocation output is one atomic element even when empty, never a splice.
func TestInvokeOutputIsAtomic(t *testing.T) {
	got := mustExpand(t, "{{#invoke:bonk|blorgh}}")
	if len(got) != 1 {
		t.Fatalf("want exactly one element, got %d: %#v", len(got), got)
	}
	if txt, ok := got[0].(*wikitext.Text); !ok || txt.Content != "" {
		t.Fatalf("want one empty text element, got %#v", got[0])
	}
}

// A variable bound in an outer call must not leak into an inner template's
// body: tables are replaced per call, not nested.
func TestScopeIsolation(t *testing.T) {
	got := mustExpand(t, "{{outer|x=42}}")
	if wikitext.Render(got) != "unset" {
		t.Fatalf("inner template saw outer binding: got %q", wikitext.Render(got))
	}
}

func TestCallerTableRestoredAfterCall(t *testing.T) {
	api := newFakeAPI()
	api.templates["pair"] = "{{with-var|inner}}{{{1}}}"
	ast, err := wikitext.Parse("{{pair|outer}}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	got, err := New(api, nil).Expand(context.Background(), ast, nil, "")
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	if wikitext.Render(got) != "innerouter" {
		t.Fatalf("got %q, want %q", wikitext.Render(got), "innerouter")
	}
}

func TestInclusionScopingOnTransclusion(t *testing.T) {
	got := mustExpand(t, "{{doc}}")
	if !reflect.DeepEqual(got, texts("use")) {
		t.Fatalf("got %#v", got)
	}
}

func TestUnknownElementPassesThrough(t *testing.T) {
	got := mustExpand(t, "<noinclude>x{{foo}}</noinclude>")
	want := wikitext.NodeList{&wikitext.Element{Name: "noinclude", Body: texts("x", "foo")}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestTemplateNotFound(t *testing.T) {
	_, err := expandSource(t, "{{no-such-template}}")
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
	if notFound.Name != "no-such-template" {
		t.Fatalf("want name %q, got %q", "no-such-template", notFound.Name)
	}
}

func TestRecursionLimit(t *testing.T) {
	_, err := expandSource(t, "{{loop}}")
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("want ErrRecursionLimit, got %v", err)
	}

	api := newFakeAPI()
	tf := New(api, nil)
	tf.MaxDepth = 2
	ast, err := wikitext.Parse("{{nested}}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := tf.Expand(context.Background(), ast, nil, ""); err != nil {
		t.Fatalf("depth 2 suffices for {{nested}}: %v", err)
	}
	tf.MaxDepth = 1
	if _, err := tf.Expand(context.Background(), ast, nil, ""); !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("want ErrRecursionLimit at depth 1, got %v", err)
	}
}

func TestFetchOrderIsDocumentOrder(t *testing.T) {
	api := newFakeAPI()
	ast, err := wikitext.Parse("{{foo}}{{nested}}{{foo}}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := New(api, nil).Expand(context.Background(), ast, nil, ""); err != nil {
		t.Fatalf("expand error: %v", err)
	}
	want := []string{"foo", "nested", "foo", "foo"}
	if !reflect.DeepEqual(api.fetched, want) {
		t.Fatalf("fetch order %v, want %v", api.fetched, want)
	}
}

func TestMalformedNode(t *testing.T) {
	ast := wikitext.NodeList{&wikitext.PosArg{Value: texts("x")}}
	_, err := New(newFakeAPI(), nil).Expand(context.Background(), ast, nil, "")
	var malformed MalformedNodeError
	if !errors.As(err, &malformed) {
		t.Fatalf("want MalformedNodeError, got %v", err)
	}
}
