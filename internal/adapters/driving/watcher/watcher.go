// Package watcher ingests manual manifests dropped into a watched
// directory. New or rewritten *.json files are loaded and indexed
// without restarting the process.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
	"github.com/custodia-labs/manualkit/internal/logger"
	"github.com/custodia-labs/manualkit/internal/manifest"
)

// settleDelay is how long a file must be quiet before it is ingested.
// Extraction tools write manifests incrementally; ingesting on the
// first write event would read a truncated file.
const settleDelay = 500 * time.Millisecond

// Watcher ingests manifest files from a directory as they appear.
type Watcher struct {
	dir       string
	assistant driving.AssistantService
	settle    time.Duration

	// pending maps manifest paths to their settle timers.
	pending map[string]*time.Timer
}

// New creates a watcher for the given directory.
func New(dir string, assistant driving.AssistantService) *Watcher {
	return &Watcher{
		dir:       dir,
		assistant: assistant,
		settle:    settleDelay,
		pending:   make(map[string]*time.Timer),
	}
}

// Run ingests any manifests already present, then watches for new ones
// until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	logger.Info("watching %s for manual manifests", w.dir)

	settled := make(chan string)
	// done releases settle timers that fired after shutdown began; a
	// Stop() cannot reach a timer whose callback is already blocked on
	// the settled send.
	done := make(chan struct{})
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			for _, timer := range w.pending {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isManifest(event.Name) {
				continue
			}
			w.schedule(event.Name, settled, done)

		case path := <-settled:
			delete(w.pending, path)
			w.ingestFile(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// schedule resets the settle timer for a path. Repeated write events
// push ingestion back until the file goes quiet.
func (w *Watcher) schedule(path string, settled chan<- string, done <-chan struct{}) {
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		select {
		case settled <- path:
		case <-done:
		}
	})
}

// ingestExisting loads manifests already present in the directory.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isManifest(entry.Name()) {
			continue
		}
		w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// ingestFile loads one manifest and indexes it. Failures are logged,
// never fatal; a bad manifest must not stop the watch loop.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	m, err := manifest.Load(path)
	if err != nil {
		logger.Warn("skipping %s: %v", filepath.Base(path), err)
		return
	}

	result, err := w.assistant.Ingest(ctx, m.ToRequest())
	if err != nil {
		logger.Warn("ingesting %s failed: %v", m.ProductID, err)
		return
	}

	logger.Info("ingested %s: %d chunks (%d text, %d image)",
		result.ProductID, result.DocumentCount, result.TextCount, result.ImageCount)
}

// isManifest reports whether a path looks like a manifest file.
// Hidden files and partial downloads are ignored.
func isManifest(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}
