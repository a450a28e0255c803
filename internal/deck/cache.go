package deck

import (
	"sync"

	"github.com/gubarz/mdslides/internal/parser"
	"github.com/gubarz/mdslides/internal/render"
)

// RenderFunc renders one slide block. index is the 1-based slide position.
type RenderFunc func(b parser.Block, g parser.Global, index int, baseURL string, bust int64) render.Slide

// Stats reports cache behaviour for one pass
type Stats struct {
	Hits   int
	Misses int
}

// Cache keeps the last rendered slide per position. An entry is reused when
// the deck fingerprint is unchanged and the block text is byte-identical.
type Cache struct {
	mu sync.Mutex

	slides    []render.Slide
	context   string
	baseURL   string
	bust      int64
	populated bool
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{}
}

// Process returns one slide per block after the preamble, rendering only
// blocks whose inputs changed since the previous pass.
func (c *Cache) Process(blocks []parser.Block, g parser.Global, baseURL string, bust int64, fn RenderFunc) ([]render.Slide, Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctxStr := g.Fingerprint()
	reusable := c.populated &&
		c.context == ctxStr &&
		c.baseURL == baseURL &&
		c.bust == bust

	var stats Stats
	var content []parser.Block
	if len(blocks) > 1 {
		content = blocks[1:]
	}

	slides := make([]render.Slide, len(content))
	for i, b := range content {
		if reusable && i < len(c.slides) && c.slides[i].Raw == b.Raw {
			cached := c.slides[i]
			// Edits elsewhere shift line numbers without touching content
			cached.Range = render.Range{StartLine: b.StartLine, EndLine: b.EndLine}
			slides[i] = cached
			stats.Hits++
			continue
		}
		slides[i] = fn(b, g, i+1, baseURL, bust)
		stats.Misses++
	}

	c.slides = slides
	c.context, c.baseURL, c.bust = ctxStr, baseURL, bust
	c.populated = true
	return append([]render.Slide(nil), slides...), stats
}

// Len returns the number of cached positions
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slides)
}

// Reset drops every entry
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slides = nil
	c.populated = false
}
