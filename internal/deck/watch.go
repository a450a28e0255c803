package deck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of edits into one compile
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the current document text and the asset cache bust
type ChangeFunc func(ctx context.Context, doc string, bust int64)

// Watch calls fn once with the current document and again after each burst
// of changes settles. Changes to other files in the document's directory
// (images, themes) bump the cache bust. Events for ignored paths, such as
// the deck output, are dropped. Every call runs on its own goroutine.
// Watch returns when ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, log zerolog.Logger, fn ChangeFunc, ignore ...string) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	skip := make(map[string]bool, len(ignore))
	for _, p := range ignore {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		skip[abs] = true
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var bust int64
	emit := func() {
		data, err := os.ReadFile(target)
		if err != nil {
			log.Warn().Err(err).Str("path", target).Msg("read document")
			return
		}
		go fn(ctx, string(data), bust)
	}
	emit()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(ev.Name)
			if skip[name] {
				continue
			}
			if name != target {
				bust = time.Now().UnixMilli()
				log.Info().Str("path", ev.Name).Msg("asset changed")
			} else {
				log.Info().Str("path", ev.Name).Msg("document changed")
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			emit()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher")
		}
	}
}
