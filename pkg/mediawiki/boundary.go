package mediawiki

import (
	"context"
	"errors"

	"github.com/wikimark/wikiparse/pkg/transclude"
	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// API returns the transclusion capability boundary backed by this wiki.
func (w *Wiki) API() transclude.API {
	return &boundary{wiki: w}
}

type boundary struct {
	wiki *Wiki
}

func (b *boundary) FetchTemplate(ctx context.Context, name string) (wikitext.NodeList, error) {
	return b.wiki.FetchTemplate(ctx, name)
}

func (b *boundary) PageExists(ctx context.Context, name string) (bool, error) {
	_, err := b.wiki.FetchTemplate(ctx, name)
	if err != nil {
		var notFound transclude.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *boundary) Invoke(ctx context.Context, module, function string, vars transclude.Variables) (string, error) {
	if b.wiki.Invoker == nil {
		return "", nil
	}
	return b.wiki.Invoker.Invoke(ctx, module, function, vars)
}

func (b *boundary) Render(list wikitext.NodeList) string {
	return wikitext.Render(list)
}

func (b *boundary) RenderID(list wikitext.NodeList) string {
	return wikitext.RenderID(list)
}
