//go:build darwin
// +build darwin

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const vnodeFlags = unix.NOTE_WRITE | unix.NOTE_ATTRIB | unix.NOTE_RENAME | unix.NOTE_DELETE

// FileWatcher holds one open descriptor per job file in a kqueue. Editors
// that save by renaming leave the descriptor on the old inode, so those
// events reopen the path.
type FileWatcher struct {
	kq int
	*watchTable
}

func NewFileWatcher(onChange func(string)) (*FileWatcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue failed: %w", err)
	}
	return &FileWatcher{kq: kq, watchTable: newWatchTable(onChange)}, nil
}

func (fw *FileWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fd, err := unix.Open(absPath, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", absPath, err)
	}
	change := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: vnodeFlags,
	}}
	if _, err := unix.Kevent(fw.kq, change, nil, nil); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to register %s: %w", absPath, err)
	}
	fw.add(fd, absPath, absPath)
	return nil
}

// Watch delivers change events until ctx is done
func (fw *FileWatcher) Watch(ctx context.Context) error {
	pending := make([]unix.Kevent_t, 8)
	poll := unix.NsecToTimespec(int64(100 * time.Millisecond))

	for ctx.Err() == nil {
		n, err := unix.Kevent(fw.kq, nil, pending, &poll)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading kqueue: %w", err)
		}
		for _, ev := range pending[:n] {
			fd := int(ev.Ident)
			path, watched := fw.changed(fd, "", ev.Fflags)
			if watched && ev.Fflags&(unix.NOTE_RENAME|unix.NOTE_DELETE) != 0 {
				fw.reopen(fd, path)
			}
		}
	}
	return nil
}

// reopen moves the watch to whatever file now sits at path
func (fw *FileWatcher) reopen(fd int, path string) {
	fw.drop(fd)
	unix.Close(fd)
	for attempt := 0; attempt < 10; attempt++ {
		if fw.AddFile(path) == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	slog.Warn("lost watch on file", "path", path)
}

func (fw *FileWatcher) Close() error {
	fw.debounce.stop()
	fw.each(func(fd int) { unix.Close(fd) })
	return unix.Close(fw.kq)
}
