// Package mediawiki is a client for MediaWiki-style wikis. It fetches page
// revisions and template sources over the site's action API and adapts them
// to the transclusion engine's capability boundary.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wikimark/wikiparse/pkg/netcache"
	"github.com/wikimark/wikiparse/pkg/transclude"
	"github.com/wikimark/wikiparse/pkg/wikitext"
)

// Namespace describes one of the wiki's page namespaces.
type Namespace struct {
	ID        int
	Name      string
	Canonical string
	Aliases   []string
}

// Invoker evaluates {{#invoke:...}} calls. A nil Invoker yields empty text
// for every invocation.
type Invoker interface {
	Invoke(ctx context.Context, module, function string, vars transclude.Variables) (string, error)
}

// Wiki is the interface to one MediaWiki project. An empty Host makes the
// client offline: only templates seeded with SetTemplate resolve, everything
// else is not found.
type Wiki struct {
	Host     string // e.g. "wikipedia.org"
	Language string // ISO-639-1 subdomain, e.g. "en"
	// APIBase overrides the URL derived from Language and Host when set,
	// for wikis that do not follow the language-subdomain scheme.
	APIBase string
	Client  *http.Client
	Cache   *netcache.Cache // optional persistent response cache
	Logger  *slog.Logger
	Invoker Invoker

	mu         sync.Mutex
	namespaces map[string]Namespace
	nsByID     map[int]Namespace
	templates  map[string]wikitext.NodeList
}

func New(host, language string) *Wiki {
	return &Wiki{
		Host:       host,
		Language:   language,
		Client:     &http.Client{Timeout: 30 * time.Second},
		namespaces: make(map[string]Namespace),
		nsByID:     make(map[int]Namespace),
		templates:  make(map[string]wikitext.NodeList),
	}
}

// Page is one fetched page revision.
type Page struct {
	Title     string
	Namespace Namespace
	Source    string
}

// Parse parses the page's wikitext source.
func (p Page) Parse() (wikitext.NodeList, error) {
	return wikitext.Parse(p.Source)
}

// APIError is an error reported by the wiki's API itself.
type APIError struct{ Info string }

func (e APIError) Error() string { return "wiki API error: " + e.Info }

// BaseURL is this project's root, derived from language and host.
func (w *Wiki) BaseURL() string {
	if w.APIBase != "" {
		return w.APIBase
	}
	return "https://" + w.Language + "." + w.Host
}

// QueryNamespaces loads the project's namespaces and their aliases. It must
// run before fetched pages can carry namespace information.
func (w *Wiki) QueryNamespaces(ctx context.Context) error {
	params := url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"namespaces|namespacealiases"},
		"format": {"json"},
	}
	body, err := w.apiGet(ctx, params)
	if err != nil {
		return err
	}
	var out struct {
		Error *struct {
			Info string `json:"info"`
		} `json:"error"`
		Query struct {
			Namespaces map[string]struct {
				ID        int    `json:"id"`
				Name      string `json:"*"`
				Canonical string `json:"canonical"`
			} `json:"namespaces"`
			NamespaceAliases []struct {
				ID    int    `json:"id"`
				Alias string `json:"*"`
			} `json:"namespacealiases"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("decoding siteinfo: %w", err)
	}
	if out.Error != nil {
		return APIError{Info: out.Error.Info}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ns := range out.Query.Namespaces {
		inst := Namespace{ID: ns.ID, Name: ns.Name, Canonical: ns.Canonical}
		w.nsByID[inst.ID] = inst
		w.namespaces[inst.Name] = inst
		if inst.Canonical != "" {
			w.namespaces[inst.Canonical] = inst
		}
	}
	for _, alias := range out.Query.NamespaceAliases {
		inst, ok := w.nsByID[alias.ID]
		if !ok {
			continue
		}
		inst.Aliases = append(inst.Aliases, alias.Alias)
		w.nsByID[alias.ID] = inst
		w.namespaces[alias.Alias] = inst
	}
	return nil
}

// Namespace looks up a namespace by name, canonical name or alias.
func (w *Wiki) Namespace(name string) (Namespace, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ns, ok := w.namespaces[name]
	return ns, ok
}

// FetchPage fetches and returns the latest revision of the titled page,
// optionally under a namespace prefix.
func (w *Wiki) FetchPage(ctx context.Context, title, namespace string) (Page, error) {
	file := title
	if namespace != "" {
		file = namespace + ":" + title
	}
	if w.Logger != nil {
		w.Logger.Debug("fetching page", "title", file)
	}
	return w.GetRevision(ctx, file)
}

// FetchTemplate returns the parsed body of the named template, fetching it
// from the Template namespace on first use and memoizing it. Seeded
// templates (SetTemplate) take precedence and work offline.
func (w *Wiki) FetchTemplate(ctx context.Context, name string) (wikitext.NodeList, error) {
	w.mu.Lock()
	if body, ok := w.templates[name]; ok {
		w.mu.Unlock()
		if w.Logger != nil {
			w.Logger.Debug("template cached", "template", name)
		}
		return body, nil
	}
	w.mu.Unlock()

	if w.Host == "" {
		return nil, transclude.NotFoundError{Name: name}
	}
	page, err := w.FetchPage(ctx, name, "Template")
	if err != nil {
		return nil, err
	}
	body, err := page.Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing template %q: %w", name, err)
	}
	w.mu.Lock()
	w.templates[name] = body
	w.mu.Unlock()
	return body, nil
}

// SetTemplate seeds (or overrides) a template body, bypassing the network.
func (w *Wiki) SetTemplate(name string, body wikitext.NodeList) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.templates[name] = body
}

// GetRevision returns the latest revision of a single page.
func (w *Wiki) GetRevision(ctx context.Context, title string) (Page, error) {
	pages, err := w.GetRevisionsFor(ctx, []string{title})
	if err != nil {
		return Page{}, err
	}
	for _, p := range pages {
		return p, nil
	}
	return Page{}, transclude.NotFoundError{Name: title}
}

// GetRevisionsFor retrieves the latest revision of each titled page, keyed
// by the title the wiki reports.
func (w *Wiki) GetRevisionsFor(ctx context.Context, titles []string) (map[string]Page, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {strings.Join(titles, "|")},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
		"format":  {"json"},
	}
	body, err := w.apiGet(ctx, params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Error *struct {
			Info string `json:"info"`
		} `json:"error"`
		Query struct {
			Pages map[string]struct {
				Title     string `json:"title"`
				NS        int    `json:"ns"`
				Revisions []struct {
					Slots struct {
						Main struct {
							ContentModel  string `json:"contentmodel"`
							ContentFormat string `json:"contentformat"`
							Content       string `json:"*"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding revisions: %w", err)
	}
	if out.Error != nil {
		return nil, APIError{Info: out.Error.Info}
	}

	pages := make(map[string]Page, len(out.Query.Pages))
	for _, data := range out.Query.Pages {
		if len(data.Revisions) == 0 {
			return nil, transclude.NotFoundError{Name: data.Title}
		}
		rev := data.Revisions[0].Slots.Main
		if rev.ContentModel != "wikitext" {
			return nil, fmt.Errorf("page %q: unexpected content model %q", data.Title, rev.ContentModel)
		}
		w.mu.Lock()
		ns := w.nsByID[data.NS]
		w.mu.Unlock()
		pages[data.Title] = Page{Title: data.Title, Namespace: ns, Source: rev.Content}
	}
	return pages, nil
}

// Transclude expands ast in the context of the named page, using this wiki
// as the capability boundary.
func (w *Wiki) Transclude(ctx context.Context, ast wikitext.NodeList, vars transclude.Variables, page string) (wikitext.NodeList, error) {
	return transclude.New(w.API(), w.Logger).Expand(ctx, ast, vars, page)
}

func (w *Wiki) apiGet(ctx context.Context, params url.Values) ([]byte, error) {
	u := w.BaseURL() + "/w/api.php?" + params.Encode()
	if w.Cache != nil {
		body, _, err := w.Cache.Get(ctx, u)
		return body, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: HTTP %d", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
