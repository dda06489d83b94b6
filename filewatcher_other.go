//go:build !linux && !darwin
// +build !linux,!darwin

package main

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// FileWatcher polls modification times where no kernel notification API is wired
type FileWatcher struct {
	*watchTable
	mtimes []time.Time // indexed by handle
}

func NewFileWatcher(onChange func(string)) (*FileWatcher, error) {
	return &FileWatcher{watchTable: newWatchTable(onChange)}, nil
}

func (fw *FileWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	var mtime time.Time
	if info, err := os.Stat(absPath); err == nil {
		mtime = info.ModTime()
	}

	fw.mu.Lock()
	handle := len(fw.mtimes)
	fw.mtimes = append(fw.mtimes, mtime)
	fw.mu.Unlock()
	fw.add(handle, absPath, absPath)
	return nil
}

// Watch delivers change events until ctx is done
func (fw *FileWatcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(debounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fw.poll()
		case <-ctx.Done():
			return nil
		}
	}
}

func (fw *FileWatcher) poll() {
	var changed []int
	fw.each(func(handle int) {
		info, err := os.Stat(fw.handles[handle])
		if err == nil && info.ModTime().After(fw.mtimes[handle]) {
			fw.mtimes[handle] = info.ModTime()
			changed = append(changed, handle)
		}
	})
	for _, handle := range changed {
		fw.changed(handle, "", 0)
	}
}

func (fw *FileWatcher) Close() error {
	fw.debounce.stop()
	return nil
}
