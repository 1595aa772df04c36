// Package docs serves the bundled help pages. Markdown sources are
// embedded at build time and rendered to HTML on demand.
package docs

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed pages/*.md
var pages embed.FS

var gm = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// ErrNotFound is returned by Page for an unknown slug.
var ErrNotFound = fmt.Errorf("page not found")

var (
	renderMu sync.Mutex
	rendered = make(map[string]string)
)

// Page renders the named help page to HTML. The slug is the markdown
// filename without extension, e.g. "faq". Rendered pages are cached for
// the process lifetime since the sources are immutable.
func Page(slug string) (string, error) {
	renderMu.Lock()
	defer renderMu.Unlock()

	if html, ok := rendered[slug]; ok {
		return html, nil
	}

	src, err := pages.ReadFile("pages/" + slug + ".md")
	if err != nil {
		return "", ErrNotFound
	}

	var buf bytes.Buffer
	if err := gm.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", slug, err)
	}
	html := strings.TrimSpace(buf.String())
	rendered[slug] = html
	return html, nil
}

// Slugs returns the available page slugs in sorted order.
func Slugs() []string {
	entries, err := pages.ReadDir("pages")
	if err != nil {
		return nil
	}
	var slugs []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".md") {
			slugs = append(slugs, strings.TrimSuffix(name, ".md"))
		}
	}
	sort.Strings(slugs)
	return slugs
}
