// Package signals lets a running orchestration be stopped from outside the
// process by creating a "kill" file in the signals directory.
package signals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrKilled is the cancellation cause when the kill file appears.
var ErrKilled = errors.New("kill signal received")

// killFile is the name of the signal file inside the signals directory.
const killFile = "kill"

// pollInterval is used when the directory cannot be watched.
const pollInterval = 500 * time.Millisecond

// KillSwitch watches a signals directory for the kill file.
type KillSwitch struct {
	dir     string
	watcher *fsnotify.Watcher
	cancel  context.CancelCauseFunc
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// WithKillSwitch returns a context canceled with ErrKilled once dir/kill is
// created or written. A kill file left over from an earlier run is removed
// first. The returned stop func releases the watcher and must be called.
func WithKillSwitch(parent context.Context, dir string) (context.Context, func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create signals dir: %w", err)
	}
	if err := Clear(dir); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancelCause(parent)
	ks := &KillSwitch{dir: dir, cancel: cancel, done: make(chan struct{})}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(dir); err != nil {
			watcher.Close()
		}
	}

	ks.wg.Add(1)
	if err != nil {
		// Continue without watcher, polling the kill file instead.
		go ks.poll()
	} else {
		ks.watcher = watcher
		go ks.watch()
	}
	return ctx, ks.stop, nil
}

func (ks *KillSwitch) watch() {
	defer ks.wg.Done()
	for {
		select {
		case <-ks.done:
			return
		case event, ok := <-ks.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == killFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				ks.cancel(ErrKilled)
			}
		case _, ok := <-ks.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (ks *KillSwitch) poll() {
	defer ks.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ks.done:
			return
		case <-ticker.C:
			if Killed(ks.dir) {
				ks.cancel(ErrKilled)
			}
		}
	}
}

func (ks *KillSwitch) stop() {
	ks.once.Do(func() {
		close(ks.done)
		if ks.watcher != nil {
			ks.watcher.Close()
		}
		ks.wg.Wait()
		ks.cancel(context.Canceled)
	})
}

// KillPath returns the path of the kill file in dir.
func KillPath(dir string) string {
	return filepath.Join(dir, killFile)
}

// SendKill creates the kill file in dir.
func SendKill(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create signals dir: %w", err)
	}
	return os.WriteFile(KillPath(dir), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Killed reports whether the kill file exists in dir.
func Killed(dir string) bool {
	_, err := os.Stat(KillPath(dir))
	return err == nil
}

// Clear removes the kill file from dir, if any.
func Clear(dir string) error {
	if err := os.Remove(KillPath(dir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear kill signal: %w", err)
	}
	return nil
}
