package diagram

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// svgRenderer echoes the source inside an svg and counts calls
type svgRenderer struct {
	calls atomic.Int32
	fail  map[string]error
}

func (r *svgRenderer) Render(_ context.Context, source string) (string, error) {
	r.calls.Add(1)
	if err := r.fail[source]; err != nil {
		return "", err
	}
	return "<svg><text>" + source + "</text></svg>", nil
}

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := NewProcessor(opts...)
	require.NoError(t, err)
	return p
}

func TestProcessWithoutPlaceholdersIsIdentity(t *testing.T) {
	r := &svgRenderer{}
	p := newTestProcessor(t, WithRenderer(Mermaid, r))

	in := "<h1>Title</h1>\n<p>text</p>\n"
	assert.Equal(t, in, p.Process(context.Background(), in))
	assert.Zero(t, r.calls.Load())
}

func TestProcessReplacesPlaceholders(t *testing.T) {
	r := &svgRenderer{}
	p := newTestProcessor(t, WithRenderer(Mermaid, r))

	out := p.Process(context.Background(), "<p>intro</p>\n<div class=\"mermaid\">graph TD; A--&gt;B</div>\n")
	assert.Contains(t, out, "<p>intro</p>")
	assert.Contains(t, out, `<div class="mermaid-img-wrapper"><svg><text>graph TD; A--&gt;B</text></svg></div>`)
	assert.NotContains(t, out, `class="mermaid"`)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestProcessFailingDiagramDoesNotBlockSiblings(t *testing.T) {
	r := &svgRenderer{fail: map[string]error{"bad source": errors.New("syntax error at line 1")}}
	p := newTestProcessor(t, WithRenderer(Mermaid, r))

	in := `<div class="mermaid">good one</div><div class="mermaid">bad source</div><div class="mermaid">good two</div>`
	out := p.Process(context.Background(), in)

	assert.Contains(t, out, `class="diagram-error"`)
	assert.Contains(t, out, "Mermaid Error:")
	assert.Contains(t, out, "syntax error at line 1")
	assert.Contains(t, out, "bad source")
	assert.Contains(t, out, "<svg><text>good one</text></svg>")
	assert.Contains(t, out, "<svg><text>good two</text></svg>")
	assert.Equal(t, 2, strings.Count(out, "mermaid-img-wrapper"))
}

func TestProcessCachesBySource(t *testing.T) {
	r := &svgRenderer{fail: map[string]error{"broken": errors.New("boom")}}
	p := newTestProcessor(t, WithRenderer(Mermaid, r))
	ctx := context.Background()

	in := `<div class="mermaid">A</div>`
	first := p.Process(ctx, in)
	second := p.Process(ctx, in)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, 1, p.Len())

	// Failures are not cached
	p.Process(ctx, `<div class="mermaid">broken</div>`)
	p.Process(ctx, `<div class="mermaid">broken</div>`)
	assert.Equal(t, int32(3), r.calls.Load())
	assert.Equal(t, 1, p.Len())
}

func TestProcessCacheKeyIncludesDialect(t *testing.T) {
	m, u := &svgRenderer{}, &svgRenderer{}
	p := newTestProcessor(t, WithRenderer(Mermaid, m), WithRenderer(PlantUML, u))

	out := p.Process(context.Background(), `<div class="mermaid">same</div><div class="plantuml">same</div>`)
	assert.Contains(t, out, "mermaid-img-wrapper")
	assert.Contains(t, out, "plantuml-svg-wrapper")
	assert.Equal(t, int32(1), m.calls.Load())
	assert.Equal(t, int32(1), u.calls.Load())
}

func TestProcessRendersConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	all := make(chan struct{})
	go func() {
		wg.Wait()
		close(all)
	}()

	r := RendererFunc(func(ctx context.Context, source string) (string, error) {
		wg.Done()
		select {
		case <-all:
			return "<svg>" + source + "</svg>", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	p := newTestProcessor(t, WithRenderer(PlantUML, r), WithTimeout(2*time.Second))

	out := p.Process(context.Background(), `<div class="plantuml">one</div><div class="plantuml">two</div>`)
	assert.NotContains(t, out, "diagram-error")
	assert.Contains(t, out, "<svg>one</svg>")
	assert.Contains(t, out, "<svg>two</svg>")
}

func TestProcessSharedRenderSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	r := RendererFunc(func(ctx context.Context, source string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "<svg>" + source + "</svg>", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	p, err := NewProcessor(WithRenderer(Mermaid, r))
	require.NoError(t, err)
	fragment := `<div class="mermaid">graph TD</div>`

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan string, 1)
	go func() { first <- p.Process(firstCtx, fragment) }()
	<-started

	second := make(chan string, 1)
	go func() { second <- p.Process(context.Background(), fragment) }()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.Contains(t, <-first, "diagram-error", "the cancelled caller stops waiting")

	close(release)
	out := <-second
	assert.Contains(t, out, "mermaid-img-wrapper")
	assert.NotContains(t, out, "diagram-error")
	assert.Equal(t, int32(1), calls.Load())
}

func TestProcessLeavesUnhandledPlaceholders(t *testing.T) {
	r := &svgRenderer{}
	p := newTestProcessor(t, WithRenderer(PlantUML, r))

	in := `<div class="mermaid">graph</div><div class="plantuml">   </div>`
	assert.Equal(t, in, p.Process(context.Background(), in))
	assert.Zero(t, r.calls.Load())
}

func TestErrorBlockEscapes(t *testing.T) {
	out := ErrorBlock(PlantUML, errors.New("bad <tag>"), "A -> B")
	assert.Contains(t, out, "PlantUML Error:\nbad &lt;tag&gt;\n\nA -&gt; B")
	assert.True(t, strings.HasPrefix(out, `<div class="diagram-error"`))
}

func TestEncodePlantUMLRoundTrip(t *testing.T) {
	source := "@startuml\nAlice -> Bob: hello\n@enduml"

	encoded, err := EncodePlantUML(source)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")

	decoded, err := DecodePlantUML(encoded)
	require.NoError(t, err)
	assert.Equal(t, source, decoded)
}

func TestPlantUMLServer(t *testing.T) {
	var gotSource string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded, ok := strings.CutPrefix(r.URL.Path, "/plantuml/svg/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		decoded, err := DecodePlantUML(encoded)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotSource = decoded
		if strings.Contains(decoded, "syntax") {
			http.Error(w, "<svg>error</svg>", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, "<svg><text>ok</text></svg>")
	}))
	defer srv.Close()

	s := NewPlantUMLServer(srv.URL+"/plantuml/", srv.Client())

	out, err := s.Render(context.Background(), "A -> B")
	require.NoError(t, err)
	assert.Equal(t, "<svg><text>ok</text></svg>", out)
	assert.Equal(t, "A -> B", gotSource)

	_, err = s.Render(context.Background(), "syntax error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = s.Render(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestPlantUMLServerUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewPlantUMLServer(url, nil).Render(context.Background(), "A -> B")
	assert.ErrorIs(t, err, ErrRendererUnavailable)
}

// fakeRunner records one invocation and returns canned output
type fakeRunner struct {
	name  string
	args  []string
	stdin string
	out   []byte
	err   error
}

func (f *fakeRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args
	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		f.stdin = string(data)
	}
	return f.out, f.err
}

func TestPlantUMLJar(t *testing.T) {
	runner := &fakeRunner{out: []byte("<svg/>")}
	j := NewPlantUMLJar("", "/opt/plantuml.jar", runner)

	out, err := j.Render(context.Background(), "A -> B")
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", out)
	assert.Equal(t, "java", runner.name)
	assert.Equal(t, []string{"-jar", "/opt/plantuml.jar", "-tsvg", "-pipe"}, runner.args)
	assert.Equal(t, "A -> B", runner.stdin)

	_, err = NewPlantUMLJar("java", "", runner).Render(context.Background(), "A -> B")
	assert.ErrorIs(t, err, ErrRendererUnavailable)

	runner.err = errors.New("exit status 1")
	_, err = j.Render(context.Background(), "A -> B")
	assert.ErrorIs(t, err, ErrRendererUnavailable)
}

func TestMermaidCLI(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"></svg>`
	runner := &fakeRunner{out: []byte(svg)}
	m := NewMermaidCLI("", nil, runner)

	out, err := m.Render(context.Background(), "graph TD; A-->B")
	require.NoError(t, err)
	assert.Equal(t, "mmdc", runner.name)
	assert.Equal(t, DefaultMermaidArgs, runner.args)
	assert.Equal(t, "graph TD; A-->B", runner.stdin)
	assert.Contains(t, out, `src="data:image/svg+xml;base64,`+base64.StdEncoding.EncodeToString([]byte(svg))+`"`)
	assert.Contains(t, out, `alt="Mermaid Diagram"`)

	_, err = m.Render(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySource)
}
