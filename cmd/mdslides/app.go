package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/gubarz/mdslides/internal/config"
	"github.com/gubarz/mdslides/internal/deck"
	"github.com/gubarz/mdslides/internal/diagram"
	"github.com/gubarz/mdslides/internal/executor"
	"github.com/gubarz/mdslides/internal/logging"
	"github.com/gubarz/mdslides/internal/render"
)

// app holds the compile pipeline and its highlighter
type app struct {
	pipeline    *deck.Pipeline
	highlighter *render.ChromaHighlighter
	log         zerolog.Logger
}

func newHighlighter() *render.ChromaHighlighter {
	return render.NewChromaHighlighter(config.GetHighlightStyle())
}

func newRenderer(hl render.Highlighter, log zerolog.Logger) *render.Renderer {
	return render.New(
		render.WithHighlighter(hl),
		render.WithLogger(logging.Component(log, "render")),
	)
}

// newProcessor wires the configured diagram backends. A dialect without a
// backend keeps its placeholders for client-side rendering.
func newProcessor(log zerolog.Logger) (*diagram.Processor, error) {
	runner := executor.New()
	opts := []diagram.Option{
		diagram.WithConcurrency(config.GetDiagramConcurrency()),
		diagram.WithCacheSize(config.GetDiagramCacheSize()),
		diagram.WithTimeout(config.GetDiagramTimeout()),
		diagram.WithLogger(logging.Component(log, "diagram")),
	}

	switch {
	case config.GetPlantUMLServer() != "":
		client := &http.Client{Timeout: config.GetDiagramTimeout()}
		opts = append(opts, diagram.WithRenderer(diagram.PlantUML, diagram.NewPlantUMLServer(config.GetPlantUMLServer(), client)))
	case config.GetPlantUMLJar() != "":
		opts = append(opts, diagram.WithRenderer(diagram.PlantUML, diagram.NewPlantUMLJar(config.GetPlantUMLJava(), config.GetPlantUMLJar(), runner)))
	default:
		log.Debug().Msg("no plantuml backend configured")
	}

	if command := config.GetMermaidCommand(); command != "" && executor.CommandExists(command) {
		opts = append(opts, diagram.WithRenderer(diagram.Mermaid, diagram.NewMermaidCLI(command, config.GetMermaidArgs(), runner)))
	} else {
		log.Debug().Str("command", command).Msg("mermaid-cli not found")
	}

	return diagram.NewProcessor(opts...)
}

func newApp(log zerolog.Logger) (*app, error) {
	proc, err := newProcessor(log)
	if err != nil {
		return nil, fmt.Errorf("diagram processor: %w", err)
	}

	hl := newHighlighter()
	r := newRenderer(hl, log)

	return &app{
		pipeline:    deck.NewPipeline(r, proc, log, deck.WithConcurrency(config.GetDiagramConcurrency())),
		highlighter: hl,
		log:         log,
	}, nil
}

// write writes the deck to the configured output, stdout when unset
func (a *app) write(d *deck.Deck, format deck.Format, bust int64) error {
	css, err := a.highlighter.CSS()
	if err != nil {
		a.log.Warn().Err(err).Msg("highlight css")
	}
	opts := deck.OutputOptions{
		BaseURL:      config.GetBaseURL(),
		Bust:         bust,
		HighlightCSS: css,
	}

	var w io.Writer = os.Stdout
	if path := config.GetOutput(); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return deck.Write(w, d, format, opts)
}
