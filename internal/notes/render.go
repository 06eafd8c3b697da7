package notes

import (
	"html/template"

	"github.com/coocood/freecache"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

const renderCacheSize = 10 * 1024 * 1024 // 10 MB

// markdownExtensions mirrors the feature set the app historically offered:
// tables, autolinks, strikethrough, task lists, footnotes, definition lists,
// super/subscript.
const markdownExtensions = parser.CommonExtensions |
	parser.AutoHeadingIDs |
	parser.Footnotes |
	parser.DefinitionLists |
	parser.SuperSubscript

type renderer struct {
	policy *bluemonday.Policy
	cache  *freecache.Cache
}

func newRenderer() *renderer {
	return &renderer{
		policy: bluemonday.UGCPolicy(),
		cache:  freecache.NewCache(renderCacheSize),
	}
}

// toHTML converts the raw Markdown body to sanitized HTML. Rendered output is
// cached keyed by the source, since note bodies are immutable once stored.
func (r *renderer) toHTML(body string) template.HTML {
	key := []byte(body)
	if cached, err := r.cache.Get(key); err == nil {
		return template.HTML(cached)
	}

	// the parser keeps state, it cannot be shared between renders
	p := parser.NewWithExtensions(markdownExtensions)
	unsafeHTML := markdown.ToHTML([]byte(body), p, nil)
	sanitized := r.policy.SanitizeBytes(unsafeHTML)

	// cache set can fail on oversized entries, rendering still succeeded
	_ = r.cache.Set(key, sanitized, 0)
	return template.HTML(sanitized)
}
