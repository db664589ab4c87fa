// ABOUTME: Outbox watcher submitting report manifests dropped into a directory
// ABOUTME: Debounces fsnotify events, submits sequentially, then files into sent/ or failed/
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"github.com/iTRMAutomation/mlc-village-recon-tool/submit"
	"go.uber.org/zap"
)

const (
	SentDir   = "sent"
	FailedDir = "failed"

	defaultDebounce = 500 * time.Millisecond
)

// Submitter runs one submission.
type Submitter interface {
	Submit(ctx context.Context, report *models.Report, trace *submit.Trace) (*submit.Result, error)
}

// Outcome is the result of processing one manifest.
type Outcome struct {
	Manifest string
	Dest     string
	Result   *submit.Result
	Err      error
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
	// OnProcessed is called after each manifest has been filed.
	OnProcessed func(Outcome)
}

// Watcher processes manifests in one directory.
type Watcher struct {
	dir       string
	submitter Submitter
	debounce  time.Duration
	log       *zap.Logger
	onDone    func(Outcome)
	pending   map[string]time.Time
}

// New creates a Watcher for dir.
func New(dir string, submitter Submitter, opts Options) *Watcher {
	w := &Watcher{
		dir:       dir,
		submitter: submitter,
		debounce:  opts.Debounce,
		log:       opts.Logger,
		onDone:    opts.OnProcessed,
		pending:   make(map[string]time.Time),
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	return w
}

// Run processes existing manifests, then watches for new ones until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{w.dir, filepath.Join(w.dir, SentDir), filepath.Join(w.dir, FailedDir)} {
		if err := os.MkdirAll(sub, 0755); err != nil {
			return fmt.Errorf("failed to create outbox directory: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.log.Info("watching outbox", zap.String("dir", w.dir))

	existing, err := w.Scan()
	if err != nil {
		return err
	}
	for _, path := range existing {
		if ctx.Err() != nil {
			return nil
		}
		w.Process(ctx, path)
	}

	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && isManifest(event.Name) {
				w.pending[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush processes manifests that have been quiet for the debounce interval, oldest first.
func (w *Watcher) flush(ctx context.Context) {
	var ready []string
	for path, seen := range w.pending {
		if time.Since(seen) >= w.debounce {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return w.pending[ready[i]].Before(w.pending[ready[j]]) })

	for _, path := range ready {
		delete(w.pending, path)
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		w.Process(ctx, path)
	}
}

// Scan lists manifests currently waiting in the outbox, sorted by name.
func (w *Watcher) Scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	var out []string
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if entry.Type().IsRegular() && isManifest(path) {
			out = append(out, path)
		}
	}
	return out, nil
}

// Process submits one manifest and files it under sent/ or failed/.
func (w *Watcher) Process(ctx context.Context, path string) Outcome {
	outcome := Outcome{Manifest: path}
	trace := submit.NewTrace(w.log, nil)

	report, err := models.LoadManifest(path)
	if err == nil {
		outcome.Result, err = w.submitter.Submit(ctx, report, trace)
	}
	outcome.Err = err

	if err != nil {
		w.log.Warn("manifest failed", zap.String("manifest", path), zap.Error(err))
		outcome.Dest, outcome.Err = w.file(path, FailedDir, ".error.txt", []byte(failureReport(err, trace)), err)
	} else {
		body, encErr := json.MarshalIndent(outcome.Result, "", "  ")
		if encErr != nil {
			body = []byte(fmt.Sprintf("{\"error\": %q}", encErr.Error()))
		}
		w.log.Info("manifest submitted", zap.String("manifest", path), zap.String("item_id", outcome.Result.ItemID))
		outcome.Dest, outcome.Err = w.file(path, SentDir, ".result.json", body, nil)
	}

	if w.onDone != nil {
		w.onDone(outcome)
	}
	return outcome
}

// file moves the manifest into sub and writes a sidecar next to it. It returns the new
// manifest path and the error to report.
func (w *Watcher) file(path, sub, suffix string, sidecar []byte, cause error) (string, error) {
	name := filepath.Base(path)
	dest := filepath.Join(w.dir, sub, name)
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", name, sub, err)
	}
	side := filepath.Join(w.dir, sub, strings.TrimSuffix(name, filepath.Ext(name))+suffix)
	if err := os.WriteFile(side, sidecar, 0644); err != nil {
		w.log.Warn("failed to write sidecar", zap.String("path", side), zap.Error(err))
	}
	return dest, cause
}

func failureReport(err error, trace *submit.Trace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v\n", err)
	if entries := trace.Entries(); len(entries) > 0 {
		b.WriteString("\ntrace:\n")
		for _, e := range entries {
			b.WriteString(e.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func isManifest(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(strings.ToLower(name), ".json") && !strings.HasPrefix(name, ".")
}
