// api/pdp/policy/watcher.go
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads a tables file on change and hands the result to onReload.
// Files that fail to parse are logged and ignored; the previous tables stay live.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload func(*Tables)
}

func NewWatcher(path string, onReload func(*Tables)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return &Watcher{watcher: w, path: path, onReload: onReload}, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Policy file watcher error", zap.Error(err), zap.String("path", w.path))
		}
	}
}

func (w *Watcher) reload() {
	tables, err := LoadTables(w.path)
	if err != nil {
		logger.Error("Policy tables reload failed", zap.Error(err), zap.String("path", w.path))
		return
	}
	logger.Info("Policy tables reloaded", zap.String("path", w.path))
	w.onReload(tables)
}
