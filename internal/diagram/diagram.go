package diagram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrEmptySource is returned by renderers given blank diagram text
	ErrEmptySource = errors.New("empty diagram source")
	// ErrRendererUnavailable is returned when a backend cannot be reached or started
	ErrRendererUnavailable = errors.New("diagram renderer unavailable")
)

// Renderer turns diagram source into markup. Implementations may block on
// the network or a subprocess and must honour ctx.
type Renderer interface {
	Render(ctx context.Context, source string) (string, error)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(ctx context.Context, source string) (string, error)

// Render implements Renderer
func (f RendererFunc) Render(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// Dialect describes one placeholder kind
type Dialect struct {
	Name    string // Shown in error blocks
	Class   string // Placeholder class emitted by the slide renderer
	Wrapper string // Class of the div wrapping rendered output
}

var (
	Mermaid  = Dialect{Name: "Mermaid", Class: "mermaid", Wrapper: "mermaid-img-wrapper"}
	PlantUML = Dialect{Name: "PlantUML", Class: "plantuml", Wrapper: "plantuml-svg-wrapper"}
)

const (
	DefaultConcurrency = 4
	DefaultCacheSize   = 256
	DefaultTimeout     = 10 * time.Second
)

const errorStyle = "color:red; border:1px solid red; padding:4px; font-size:12px; white-space:pre-wrap; background-color:#fff0f0;"

type backend struct {
	dialect  Dialect
	renderer Renderer
}

// Processor replaces diagram placeholders in slide HTML with rendered
// markup. It is safe for concurrent use.
type Processor struct {
	backends    []backend
	concurrency int
	cacheSize   int
	timeout     time.Duration
	log         zerolog.Logger

	cache  *lru.Cache[string, string]
	flight singleflight.Group
}

// Option configures a Processor
type Option func(*Processor)

// WithRenderer registers the backend for a dialect. Placeholders of dialects
// without a backend are left in place.
func WithRenderer(d Dialect, r Renderer) Option {
	return func(p *Processor) {
		p.backends = append(p.backends, backend{dialect: d, renderer: r})
	}
}

// WithConcurrency limits in-flight renders per Process call
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithCacheSize sets the number of rendered diagrams kept in memory
func WithCacheSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.cacheSize = n
		}
	}
}

// WithTimeout bounds a single render call
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger for render failures
func WithLogger(log zerolog.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// NewProcessor creates a processor
func NewProcessor(opts ...Option) (*Processor, error) {
	p := &Processor{
		concurrency: DefaultConcurrency,
		cacheSize:   DefaultCacheSize,
		timeout:     DefaultTimeout,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	cache, err := lru.New[string, string](p.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("diagram cache: %w", err)
	}
	p.cache = cache
	return p, nil
}

// HasPlaceholders reports whether fragment holds a placeholder this processor handles
func (p *Processor) HasPlaceholders(fragment string) bool {
	for _, b := range p.backends {
		if strings.Contains(fragment, `class="`+b.dialect.Class+`"`) {
			return true
		}
	}
	return false
}

type job struct {
	sel     *goquery.Selection
	backend backend
	source  string
	out     string
}

// Process renders every placeholder in fragment concurrently and returns the
// result. Failures become inline error blocks; Process itself never fails.
func (p *Processor) Process(ctx context.Context, fragment string) string {
	if !p.HasPlaceholders(fragment) {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		p.log.Warn().Err(err).Msg("parse slide html")
		return fragment
	}

	var jobs []*job
	for _, b := range p.backends {
		doc.Find("div." + b.dialect.Class).Each(func(_ int, sel *goquery.Selection) {
			source := sel.Text()
			if strings.TrimSpace(source) == "" {
				return
			}
			jobs = append(jobs, &job{sel: sel, backend: b, source: source})
		})
	}
	if len(jobs) == 0 {
		return fragment
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			j.out = p.render(ctx, j.backend, j.source)
			return nil
		})
	}
	_ = g.Wait()

	// DOM mutation stays on this goroutine
	for _, j := range jobs {
		j.sel.ReplaceWithHtml(j.out)
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		p.log.Warn().Err(err).Msg("serialize slide html")
		return fragment
	}
	return out
}

// render returns wrapped output or an error block for one diagram
func (p *Processor) render(ctx context.Context, b backend, source string) string {
	key := b.dialect.Class + "\x00" + source
	if cached, ok := p.cache.Get(key); ok {
		return wrap(b.dialect.Wrapper, cached)
	}

	// The shared render outlives any single caller; each caller waits on its own ctx
	ch := p.flight.DoChan(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		out, err := b.renderer.Render(rctx, source)
		if err != nil {
			return nil, err
		}
		p.cache.Add(key, out)
		return out, nil
	})

	var v interface{}
	var err error
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		p.log.Warn().Err(err).Str("dialect", b.dialect.Name).Msg("diagram render failed")
		return ErrorBlock(b.dialect, err, source)
	}
	return wrap(b.dialect.Wrapper, v.(string))
}

func wrap(class, inner string) string {
	return `<div class="` + class + `">` + inner + `</div>`
}

// ErrorBlock renders a visible error carrying the message and the source
func ErrorBlock(d Dialect, err error, source string) string {
	text := d.Name + " Error:\n" + err.Error() + "\n\n" + source
	return `<div class="diagram-error" style="` + errorStyle + `">` + html.EscapeString(text) + `</div>`
}

// Len returns the number of cached diagrams
func (p *Processor) Len() int {
	return p.cache.Len()
}
