package deck

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gubarz/mdslides/internal/parser"
	"github.com/gubarz/mdslides/internal/render"
)

var (
	// ErrStaleGeneration is returned when a newer Compile started before this one finished
	ErrStaleGeneration = errors.New("stale generation")
	// ErrRenderFailed is returned when splitting or base rendering panics
	ErrRenderFailed = errors.New("could not render this document")
)

// PostProcessor is the asynchronous second stage over base slide HTML
type PostProcessor interface {
	Process(ctx context.Context, html string) string
}

// DefaultConcurrency is the number of slides post-processed at once
const DefaultConcurrency = 4

// Pipeline compiles documents in two stages: a synchronous cached base
// render and a concurrent diagram pass. Compile may be called from several
// goroutines; only the newest call returns a deck.
type Pipeline struct {
	render      RenderFunc
	post        PostProcessor
	cache       *Cache
	log         zerolog.Logger
	concurrency int

	generation atomic.Uint64
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithConcurrency limits slides post-processed at once
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRenderFunc replaces the base renderer
func WithRenderFunc(fn RenderFunc) Option {
	return func(p *Pipeline) {
		p.render = fn
	}
}

// NewPipeline creates a pipeline. post may be nil to skip the diagram stage.
func NewPipeline(r *render.Renderer, post PostProcessor, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		post:        post,
		cache:       NewCache(),
		log:         log.With().Str("component", "pipeline").Logger(),
		concurrency: DefaultConcurrency,
	}
	if r != nil {
		p.render = r.RenderSlide
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generation returns the number of the latest Compile call
func (p *Pipeline) Generation() uint64 {
	return p.generation.Load()
}

// Compile turns a document into a deck. Per-slide and per-diagram failures
// are rendered in place; an error is returned only for a stale run or when
// the base stage panics.
func (p *Pipeline) Compile(ctx context.Context, doc, baseURL string, bust int64) (*Deck, error) {
	gen := p.generation.Add(1)

	base, global, stats, err := p.base(doc, baseURL, bust)
	if err != nil {
		return nil, err
	}
	p.log.Debug().
		Uint64("generation", gen).
		Int("hits", stats.Hits).
		Int("misses", stats.Misses).
		Msg("base render")

	final := p.finalize(ctx, base)

	if current := p.generation.Load(); current != gen {
		p.log.Debug().Uint64("generation", gen).Uint64("current", current).Msg("dropping stale result")
		return nil, fmt.Errorf("generation %d: %w", gen, ErrStaleGeneration)
	}

	return &Deck{
		Global:     global,
		Slides:     Paginate(final),
		Generation: gen,
		Stats:      stats,
	}, nil
}

// base runs the synchronous stage
func (p *Pipeline) base(doc, baseURL string, bust int64) (slides []render.Slide, g parser.Global, stats Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("render document")
			err = fmt.Errorf("%w: %v", ErrRenderFailed, r)
		}
	}()

	blocks := parser.SplitBlocks(doc)
	g = parser.ParseGlobal(parser.Preamble(blocks))
	slides, stats = p.cache.Process(blocks, g, baseURL, bust, p.render)
	return slides, g, stats, nil
}

// finalize runs the diagram stage over every slide concurrently
func (p *Pipeline) finalize(ctx context.Context, base []render.Slide) []render.Slide {
	out := append([]render.Slide(nil), base...)
	if p.post == nil {
		return out
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			out[i].HTML = p.post.Process(ctx, out[i].HTML)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
