package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gubarz/mdslides/internal/config"
	"github.com/gubarz/mdslides/internal/deck"
	"github.com/gubarz/mdslides/internal/executor"
	"github.com/gubarz/mdslides/internal/logging"
	"github.com/gubarz/mdslides/internal/ui"
)

var version = "0.1.0"

var (
	configFile string
	logger     = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "mdslides",
	Short: "Markdown slide decks",
	Long: `Compiles a Markdown document into a slide deck.

Slides are separated by lines holding exactly ---. HTML comments
such as <!-- @aspect 4:3 --> or <!-- @begin multicolumn 1:2 --> configure
the deck and individual slides.`,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a document to JSON or standalone HTML",
	Long: `Compiles a document once and writes the deck.

Use "-" to read the document from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Recompile whenever the document or its assets change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Browse the compiled deck in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var locateCmd = &cobra.Command{
	Use:   "locate <file> <line>",
	Short: "Print the slide holding a document line",
	Long: `Prints the 1-based index of the slide whose source range holds
the given line. With --slide, prints the first line of that slide instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLocate,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(buildCmd, watchCmd, previewCmd, locateCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.config/mdslides/mdslides.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL relative images and the theme resolve against")

	for _, cmd := range []*cobra.Command{buildCmd, watchCmd} {
		cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
		cmd.Flags().StringP("format", "f", "", "Output format: json, html")
	}
	buildCmd.Flags().Int64("bust", 0, "Cache bust token appended to asset URLs")

	previewCmd.Flags().IntP("line", "l", 0, "Open the slide holding this document line")
	previewCmd.Flags().BoolP("watch", "w", false, "Reload when the document changes")

	locateCmd.Flags().Int("slide", 0, "Print the first line of this 1-based slide")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
}

func initConfig() {
	if err := config.Init(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	}
	logger = logging.New(logging.Config{
		Level:  config.GetLogLevel(),
		Format: logging.Format(config.GetLogFormat()),
	})
}

// applyOutputFlags copies --output and --format into the config
func applyOutputFlags(cmd *cobra.Command) (deck.Format, error) {
	if o, _ := cmd.Flags().GetString("output"); o != "" {
		config.SetOutput(o)
	}
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		config.SetFormat(f)
	}
	return deck.ParseFormat(config.GetFormat())
}

// ============================================================================
// Commands
// ============================================================================

func runBuild(cmd *cobra.Command, args []string) error {
	format, err := applyOutputFlags(cmd)
	if err != nil {
		return err
	}
	bust, _ := cmd.Flags().GetInt64("bust")

	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}

	d, err := a.pipeline.Compile(cmd.Context(), doc, config.GetBaseURL(), bust)
	if err != nil {
		return err
	}
	logger.Info().Int("slides", d.Len()).Int("pages", d.PageCount()).Msg("compiled")

	return a.write(d, format, bust)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := applyOutputFlags(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := args[0]
	logger.Info().Str("path", path).Msg("watching")

	return deck.Watch(ctx, path, config.GetDebounce(), logger, func(ctx context.Context, doc string, bust int64) {
		d, err := a.pipeline.Compile(ctx, doc, config.GetBaseURL(), bust)
		if errors.Is(err, deck.ErrStaleGeneration) {
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("compile")
			return
		}
		if err := a.write(d, format, bust); err != nil {
			logger.Error().Err(err).Msg("write deck")
			return
		}
		logger.Info().
			Uint64("generation", d.Generation).
			Int("slides", d.Len()).
			Int("reused", d.Stats.Hits).
			Msg("compiled")
	}, config.GetOutput())
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	line, _ := cmd.Flags().GetInt("line")
	watch, _ := cmd.Flags().GetBool("watch")

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	// Log output would corrupt the alt screen
	a, err := newApp(logger.Level(zerolog.Disabled))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := a.pipeline.Compile(ctx, doc, config.GetBaseURL(), 0)
	if err != nil {
		return err
	}

	opts := ui.Options{Clipboard: executor.SystemClipboard()}
	if line > 0 {
		opts.Start = max(d.SlideAtLine(line), 0)
	}

	if watch && path != "-" {
		opts.Updates, opts.Errors = watchDeck(ctx, a, path)
	}

	return ui.Run(d, opts)
}

// watchDeck recompiles path on change. Only the newest deck is kept; a
// watcher failure is delivered once on the error channel.
func watchDeck(ctx context.Context, a *app, path string) (<-chan *deck.Deck, <-chan error) {
	updates := make(chan *deck.Deck, 1)
	errs := make(chan error, 1)
	go func() {
		err := deck.Watch(ctx, path, config.GetDebounce(), zerolog.Nop(), func(ctx context.Context, doc string, bust int64) {
			next, err := a.pipeline.Compile(ctx, doc, config.GetBaseURL(), bust)
			if err != nil {
				return
			}
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- next:
			default:
			}
		})
		if err != nil {
			errs <- err
		}
	}()
	return updates, errs
}

func runLocate(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	// Source ranges only; the diagram stage is skipped
	p := deck.NewPipeline(newRenderer(newHighlighter(), logger), nil, logger)
	d, err := p.Compile(cmd.Context(), doc, "", 0)
	if err != nil {
		return err
	}

	if slide, _ := cmd.Flags().GetInt("slide"); slide > 0 {
		line := d.LineOfSlide(slide - 1)
		if line == 0 {
			return fmt.Errorf("slide %d out of range (deck has %d)", slide, d.Len())
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("line argument or --slide required")
	}
	line, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid line %q: %w", args[1], err)
	}
	i := d.SlideAtLine(line)
	if i < 0 {
		return fmt.Errorf("line %d is not inside a slide", line)
	}
	fmt.Fprintln(cmd.OutOrStdout(), i+1)
	return nil
}

// readDocument reads a file, or stdin for "-"
func readDocument(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("error resolving path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
