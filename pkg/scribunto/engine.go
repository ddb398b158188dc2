// Package scribunto evaluates the scripting modules referenced by
// {{#invoke:module|function|...}} using Starlark. It implements the
// transclusion boundary's invoke capability, which the original wiki dialect
// leaves pluggable.
package scribunto

import (
	"context"
	"fmt"
	"sync"

	"go.starlark.net/starlark"

	"github.com/wikimark/wikiparse/pkg/transclude"
	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// Engine holds named Starlark module sources. An invocation executes the
// module on a fresh thread and calls the named function with one argument,
// `frame`: a dict of the call's variables rendered to strings.
type Engine struct {
	mu      sync.RWMutex
	modules map[string]string

	// Render flattens argument values for the frame dict. Defaults to
	// wikitext.Render.
	Render func(wikitext.NodeList) string
}

func NewEngine() *Engine {
	return &Engine{modules: make(map[string]string), Render: wikitext.Render}
}

// Register makes src available as the module named name, replacing any
// earlier registration.
func (e *Engine) Register(name, src string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modules[name] = src
}

// Invoke implements the module-invocation capability. An unknown module or
// function yields empty text, not an error; a module that fails to execute
// or a function that raises propagates as an error.
func (e *Engine) Invoke(ctx context.Context, module, function string, vars transclude.Variables) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.RLock()
	src, ok := e.modules[module]
	e.mu.RUnlock()
	if !ok {
		return "", nil
	}

	thread := &starlark.Thread{Name: "scribunto:" + module}
	globals, err := starlark.ExecFile(thread, module+".star", src, nil)
	if err != nil {
		return "", fmt.Errorf("executing module %q: %w", module, err)
	}
	fn, ok := globals[function].(starlark.Callable)
	if !ok {
		return "", nil
	}

	frame := starlark.NewDict(len(vars))
	for key, val := range vars {
		if err := frame.SetKey(starlark.String(key), starlark.String(e.render(val))); err != nil {
			return "", err
		}
	}
	out, err := starlark.Call(thread, fn, starlark.Tuple{frame}, nil)
	if err != nil {
		return "", fmt.Errorf("invoking %s.%s: %w", module, function, err)
	}
	return stringify(out), nil
}

func (e *Engine) render(list wikitext.NodeList) string {
	if e.Render != nil {
		return e.Render(list)
	}
	return wikitext.Render(list)
}

func stringify(v starlark.Value) string {
	switch t := v.(type) {
	case starlark.NoneType:
		return ""
	case starlark.String:
		return string(t)
	default:
		return v.String()
	}
}
