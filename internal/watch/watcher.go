package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces a burst of write events into one cycle. Report
// writers tend to truncate, write, and chmod in quick succession.
const DefaultDebounce = 200 * time.Millisecond

// DefaultPollInterval is the fallback polling cadence when fsnotify is
// unavailable (NFS, some container mounts).
const DefaultPollInterval = 5 * time.Second

// ReportWatcher runs a handler whenever the report file changes, using
// fsnotify on the report's parent directory. Watching the directory rather
// than the file survives atomic tmp+rename replacement, which swaps the
// inode out from under a file-level watch.
type ReportWatcher struct {
	path     string
	handler  func()
	debounce time.Duration
}

// NewReportWatcher creates a watcher for the report at path.
func NewReportWatcher(path string, handler func()) *ReportWatcher {
	return &ReportWatcher{
		path:     path,
		handler:  handler,
		debounce: DefaultDebounce,
	}
}

// Run watches the report until ctx is cancelled. The handler runs on the
// watch goroutine, so a slow cycle delays later ones instead of stacking
// them.
func (w *ReportWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	// Single debounce timer, reset on each matching event. Initialized as
	// stopped; the first event starts it.
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			w.run()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.matches(event) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}

// run shields the watch loop from a panicking handler.
func (w *ReportWatcher) run() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "watch: cycle panicked: %v\n", r)
		}
	}()
	w.handler()
}

// matches reports whether the event is a content change of the watched
// report. Write catches in-place edits; Create catches both a first report
// and atomic replacement, which inotify surfaces as a create of the
// destination name. Removal and rename-away are not changes: there is
// nothing to observe until the next report lands.
func (w *ReportWatcher) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(w.path)
}

// PollWatcher detects report changes by stat polling. Used as a fallback
// where fsnotify delivers no events.
type PollWatcher struct {
	path     string
	handler  func()
	interval time.Duration

	lastMod  time.Time
	lastSize int64
	primed   bool
}

// NewPollWatcher creates a polling watcher for the report at path. A
// non-positive interval uses the default.
func NewPollWatcher(path string, handler func(), interval time.Duration) *PollWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollWatcher{
		path:     path,
		handler:  handler,
		interval: interval,
	}
}

// Run polls the report until ctx is cancelled. The file state present at
// startup counts as already observed; a report landing later does not.
func (w *PollWatcher) Run(ctx context.Context) error {
	w.prime()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan()
		}
	}
}

// prime records the current file state so startup does not fire a cycle.
func (w *PollWatcher) prime() {
	if info, err := os.Stat(w.path); err == nil {
		w.lastMod, w.lastSize, w.primed = info.ModTime(), info.Size(), true
	}
}

// scan fires the handler when the report's mtime or size moved. Size is
// checked alongside mtime because some filesystems round mtimes to a
// second, hiding rapid rewrites.
func (w *PollWatcher) scan() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if w.primed && info.ModTime().Equal(w.lastMod) && info.Size() == w.lastSize {
		return
	}
	w.lastMod, w.lastSize, w.primed = info.ModTime(), info.Size(), true
	w.handler()
}
