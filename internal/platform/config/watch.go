package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the rules file whenever it changes and reports each attempt
// to onReload: a valid version with a nil error, or a nil Rules with the
// reason it was rejected. Rejected edits leave the running rules in force.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger zerolog.Logger, onReload func(*Rules, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rules watcher: %w", err)
	}
	defer watcher.Close()

	// Editors and config management replace the file rather than write it
	// in place, so watch the directory and filter by name.
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch rules directory: %w", err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			rules, err := LoadRules(path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("rules reload rejected; keeping current rules")
				onReload(nil, err)
				continue
			}
			logger.Info().Str("path", path).Int("transitions", len(rules.Policy.Rules.Rules())).Msg("rules reloaded")
			onReload(rules, nil)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("rules watcher error")
		}
	}
}
