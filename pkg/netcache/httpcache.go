// Package netcache is a small persistent HTTP response cache with
// ETag/Last-Modified revalidation. The wiki client uses it to avoid
// refetching unchanged API responses; the transclusion core itself never
// caches.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type Cache struct {
	Dir    string
	Client *http.Client
}

// New returns a new Cache with a reasonable default HTTP client.
func New(dir string) *Cache {
	return &Cache{
		Dir: dir,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	// DataFile is the basename of the cached payload file.
	DataFile string `json:"data_file"`
}

// Get returns the response body for url. A cached copy is revalidated with a
// conditional request and reused on 304. The second result reports whether
// the body came from the cache.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	var m meta
	var haveMeta bool
	if b, err := os.ReadFile(mpath); err == nil {
		if json.Unmarshal(b, &m) == nil && m.URL == url && m.DataFile != "" {
			if fileExists(filepath.Join(c.Dir, m.DataFile)) {
				haveMeta = true
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	if haveMeta {
		if m.ETag != "" {
			req.Header.Set("If-None-Match", m.ETag)
		}
		if m.LastModified != "" {
			req.Header.Set("If-Modified-Since", m.LastModified)
		}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		// Network failure: reuse the cached body best-effort.
		if haveMeta {
			if b, rerr := os.ReadFile(filepath.Join(c.Dir, m.DataFile)); rerr == nil {
				return b, true, nil
			}
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	if haveMeta && resp.StatusCode == http.StatusNotModified {
		b, err := os.ReadFile(filepath.Join(c.Dir, m.DataFile))
		return b, true, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	dataFile := key + ".data"
	if err := writeFile(filepath.Join(c.Dir, dataFile), body); err != nil {
		return nil, false, err
	}
	nm := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		DataFile:     dataFile,
	}
	if err := writeMeta(mpath, nm); err != nil {
		return nil, false, err
	}
	return body, false, nil
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

func writeFile(dst string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
